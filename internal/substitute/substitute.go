// Package substitute expands business-data placeholders in outbound chatbot
// text. Tokens are written in square brackets ([NOME-DO-CLIENTE],
// [CODIGO-PEDIDO], ...) and matched whole-token, case-insensitively, with
// accent-folded and underscore/hyphen spelling variants all resolving to the
// same canonical name. Unknown placeholders are replaced with the empty
// string, so substitution is idempotent for a fixed catalog state.
package substitute

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical placeholder names. Values maps are keyed by these.
const (
	KeyCustomerName = "NOME-DO-CLIENTE"
	KeyDeliveryURL  = "DELIVERY-URL"
	KeyAddress      = "ENDERECO"
	KeyHours        = "HORARIOS"
	KeyOrderCode    = "CODIGO-PEDIDO"
	KeyLastOrder    = "ULTIMO-PEDIDO"
	KeyCompanyPhone = "TELEFONE-EMPRESA"
	KeyCompanyName  = "NOME-EMPRESA"
	KeyInstagram    = "INSTAGRAM"
	KeyPauseMinutes = "TEMPO"
)

// tokenRE matches a bracketed placeholder: letters (accented included),
// digits, hyphens, and underscores between square brackets.
var tokenRE = regexp.MustCompile(`\[([\p{L}\p{N}_\-]+)\]`)

// foldAccents removes combining marks so "ENDEREÇO" and "ENDERECO" canonical
// to the same key.
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Canonical normalizes a raw token name: accent-folded, upper-cased, with
// underscores rewritten to hyphens.
func Canonical(name string) string {
	if folded, _, err := transform.String(foldAccents, name); err == nil {
		name = folded
	}
	name = strings.ToUpper(name)
	return strings.ReplaceAll(name, "_", "-")
}

// Apply replaces every placeholder token in text using values keyed by
// canonical names. Tokens without a value are removed.
func Apply(text string, values map[string]string) string {
	return tokenRE.ReplaceAllStringFunc(text, func(tok string) string {
		name := Canonical(tok[1 : len(tok)-1])
		return values[name]
	})
}
