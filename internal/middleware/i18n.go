// internal/middleware/i18n.go
package middleware

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/foodsecure-backend/internal/utils"
)

func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := localeFor(c.Query("lang"))
		if lang == "" {
			lang = parseLanguage(c.GetHeader("Accept-Language"))
		}
		c.Set(utils.ContextKeyLang, lang)
		c.Next()
	}
}

// parseLanguage picks the highest weighted supported locale from an
// Accept-Language header such as "zh-TW,zh;q=0.9,en;q=0.8".
func parseLanguage(header string) string {
	type preference struct {
		tag    string
		weight float64
	}

	var prefs []preference
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		pref := preference{tag: strings.TrimSpace(fields[0]), weight: 1}
		for _, f := range fields[1:] {
			if q, ok := strings.CutPrefix(strings.TrimSpace(f), "q="); ok {
				if w, err := strconv.ParseFloat(q, 64); err == nil {
					pref.weight = w
				}
			}
		}
		if pref.tag != "" && pref.weight > 0 {
			prefs = append(prefs, pref)
		}
	}
	sort.SliceStable(prefs, func(i, j int) bool { return prefs[i].weight > prefs[j].weight })

	for _, p := range prefs {
		if locale := localeFor(p.tag); locale != "" {
			return locale
		}
	}
	return "en"
}

// localeFor maps a language tag to a catalogue name, or "" when unsupported.
// Bare "zh" is treated as unsupported since the catalogue is Traditional only.
func localeFor(tag string) string {
	switch strings.ToLower(strings.ReplaceAll(tag, "_", "-")) {
	case "zh-tw", "zh-hant", "zh-hk", "zh-hant-tw", "zh-hant-hk":
		return "zh_TW"
	case "en", "en-us", "en-gb":
		return "en"
	}
	if strings.HasPrefix(strings.ToLower(tag), "en-") {
		return "en"
	}
	return ""
}
