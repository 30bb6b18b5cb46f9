package utils

import (
	"strings"
	"unicode"
)

// Humanize turns identifiers such as "refund_pending" or "PAYMENT-LINK" into
// "Refund Pending" and "Payment Link".
func Humanize(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
