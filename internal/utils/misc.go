// internal/utils/misc.go
package utils

import (
	"strings"
)

// Markers stored inside a product's free-text misc field.
const (
	MiscDocumentKey      = "IPFS"
	MiscProofOfDelivery  = "POD_IPFS"
	miscSegmentSeparator = "|"
)

// MiscValue returns the value of the first "KEY:value" segment in misc.
// Segments are separated by "|"; keys match exactly, so IPFS never matches POD_IPFS.
func MiscValue(misc, key string) string {
	for _, segment := range strings.Split(misc, miscSegmentSeparator) {
		k, v, ok := strings.Cut(strings.TrimSpace(segment), ":")
		if ok && k == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// AppendMisc adds a "KEY:value" segment to misc.
func AppendMisc(misc, key, value string) string {
	segment := key + ":" + value
	if strings.TrimSpace(misc) == "" {
		return segment
	}
	return misc + miscSegmentSeparator + segment
}

// MiscNotes returns the misc segments that are not KEY:value markers.
func MiscNotes(misc string) string {
	var notes []string
	for _, segment := range strings.Split(misc, miscSegmentSeparator) {
		s := strings.TrimSpace(segment)
		if s == "" {
			continue
		}
		if k, _, ok := strings.Cut(s, ":"); ok && (k == MiscDocumentKey || k == MiscProofOfDelivery) {
			continue
		}
		notes = append(notes, s)
	}
	return strings.Join(notes, miscSegmentSeparator)
}
