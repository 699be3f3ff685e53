package utils

import "github.com/gin-gonic/gin"

// Keys set on the gin context by the middleware chain.
const (
	ContextKeyWallet    = "wallet_address"
	ContextKeyRole      = "role"
	ContextKeyLang      = "lang"
	ContextKeyRequestID = "request_id"
)

func contextString(c *gin.Context, key string) string {
	v, exists := c.Get(key)
	if !exists {
		return ""
	}
	s, _ := v.(string)
	return s
}

func GetLangFromContext(c *gin.Context) string {
	if lang := contextString(c, ContextKeyLang); lang != "" {
		return lang
	}
	return "en"
}

// GetWalletFromContext returns the authenticated wallet address.
func GetWalletFromContext(c *gin.Context) (string, bool) {
	wallet := contextString(c, ContextKeyWallet)
	return wallet, wallet != ""
}

// GetRoleFromContext returns the role claim of the session. Unregistered
// wallets carry an empty role.
func GetRoleFromContext(c *gin.Context) (string, bool) {
	if _, exists := c.Get(ContextKeyRole); !exists {
		return "", false
	}
	return contextString(c, ContextKeyRole), true
}

func GetRequestIDFromContext(c *gin.Context) string {
	return contextString(c, ContextKeyRequestID)
}
