package jibit

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiDigits maps Extended Arabic-Indic (Persian) and Arabic-Indic digits
// to their ASCII forms. National codes and mobile numbers are often typed
// on Persian keyboards.
func asciiDigits() transform.Transformer {
	return runes.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		default:
			return r
		}
	})
}

// normalizeField trims v, composes it to NFC and converts its digits to
// ASCII.
func normalizeField(v string) string {
	out, _, err := transform.String(transform.Chain(norm.NFC, asciiDigits()), v)
	if err != nil {
		out = v
	}

	return strings.TrimSpace(out)
}
