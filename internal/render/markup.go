package render

import "regexp"

// Server markup carries constructs that only mean something in the
// graphical client. Sanitize strips or rewrites those before the text
// reaches the styled printer; everything else passes through for the
// printer's safe-tag handling.
var markupReplacements = []struct {
	re  *regexp.Regexp
	sub string
}{
	// Icon tags make no sense outside the main client.
	{regexp.MustCompile(`<psicon[^>]*/>`), ""},
	// Nested payload markers become line breaks.
	{regexp.MustCompile(`\|(raw|html|uhtml)\|`), "\n"},
	// Images and fonts can't render in a terminal; keep inner text.
	{regexp.MustCompile(`<(img|font)[^>]*>|</(font|img)>`), ""},
	// Named whitespace entities become plain spaces.
	{regexp.MustCompile(`&(nbsp|ThickSpace);`), " "},
}

// Sanitize neutralizes graphical-client markup in a string.
func Sanitize(markup string) string {
	for _, r := range markupReplacements {
		markup = r.re.ReplaceAllString(markup, r.sub)
	}
	return markup
}
