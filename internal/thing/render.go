package thing

import (
	"regexp"
	"strconv"
)

type placeholder struct {
	pattern *regexp.Regexp
	value   func(Config) string
}

// placeholders are applied in this order.
var placeholders = []placeholder{
	{regexp.MustCompile(`(?i)\{\{\{protocol\}\}\}`), Config.Protocol},
	{regexp.MustCompile(`(?i)\{\{\{name\}\}\}`), Config.Name},
	{regexp.MustCompile(`(?i)\{\{\{device\}\}\}`), func(c Config) string { return strconv.Itoa(c.device) }},
	{regexp.MustCompile(`(?i)\{\{\{base\}\}\}`), Config.Base},
	{regexp.MustCompile(`(?i)\{\{\{uuid\}\}\}`), Config.UUID},
}

// Render replaces every known placeholder in template with its value from
// cfg. Unknown placeholders are left as they are. Render does not modify
// template.
func Render(template []byte, cfg Config) []byte {
	out := append([]byte(nil), template...)
	for _, p := range placeholders {
		out = p.pattern.ReplaceAllLiteral(out, []byte(p.value(cfg)))
	}
	return out
}
