// internal/models/admin.go
package models

type AuditLog struct {
	BaseModel
	WalletAddress string `json:"wallet_address" gorm:"size:42;index"`
	Action        string `json:"action" gorm:"size:100;not null;index"`
	ResourceType  string `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID    string `json:"resource_id" gorm:"size:80;index"`
	NewValues     JSONB  `json:"new_values" gorm:"type:text"`
	StatusCode    int    `json:"status_code"`
	DurationMs    int64  `json:"duration_ms"`
	IPAddress     string `json:"ip_address" gorm:"size:45"`
	UserAgent     string `json:"user_agent" gorm:"type:text"`
}
