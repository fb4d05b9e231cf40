// Package phone normaliza números de celular quenianos pro formato que o
// gateway exige (2547XXXXXXXX).
package phone

import (
	"errors"
	"strings"
)

var ErrInvalid = errors.New("invalid kenyan phone number")

// Normalize remove formatação e converte as variantes aceitas de entrada
// (07XXXXXXXX, 7XXXXXXXX, +2547XXXXXXXX) pro formato canônico. Qualquer
// coisa fora do prefixo móvel 2547 com 12 dígitos é rejeitada.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "0"):
		digits = "254" + digits[1:]
	case strings.HasPrefix(digits, "254"):
		// já no formato internacional
	case len(digits) == 9:
		digits = "254" + digits
	}

	if len(digits) != 12 || !strings.HasPrefix(digits, "2547") {
		return "", ErrInvalid
	}
	return digits, nil
}
