package pattern

import (
	"strconv"

	"github.com/coregx/coregex"
	"github.com/segmentio/asm/ascii"
)

// token matches one signature element: a hex byte or a one or two character
// wildcard.
var token = compileToken(`^(?:[0-9A-Fa-f]{2}|\?\??)$`)

func compileToken(expr string) *coregex.Regexp {
	re, err := coregex.Compile(expr)
	if err != nil {
		panic(err)
	}
	return re
}

// Parse builds a pattern from a signature string such as
// "48 8B 05 ?? ?? ?? ?? 48 85 C0". Elements are separated by spaces or tabs;
// "?" and "??" are wildcards.
func Parse(sig string) (*Basic, error) {
	if !ascii.ValidPrintString(stripTabs(sig)) {
		return nil, &SyntaxError{Offset: firstNonPrint(sig), Msg: "non-printable input"}
	}

	raw := make([]byte, 0, len(sig)/3+1)
	mask := make([]byte, 0, len(sig)/3+1)
	for i := 0; i < len(sig); {
		if sig[i] == ' ' || sig[i] == '\t' {
			i++
			continue
		}
		j := i
		for j < len(sig) && sig[j] != ' ' && sig[j] != '\t' {
			j++
		}
		tok := sig[i:j]
		if !token.MatchString(tok) {
			return nil, &SyntaxError{Offset: i, Token: tok, Msg: "invalid element"}
		}
		if tok[0] == '?' {
			raw = append(raw, 0)
			mask = append(mask, 0)
		} else {
			v, _ := strconv.ParseUint(tok, 16, 8)
			raw = append(raw, byte(v))
			mask = append(mask, 0xff)
		}
		i = j
	}
	if len(raw) == 0 {
		return nil, &SyntaxError{Msg: "empty signature"}
	}
	return New(raw, mask)
}

// MustParse is like Parse but panics on error. It simplifies safe
// initialization of global signatures.
func MustParse(sig string) *Basic {
	p, err := Parse(sig)
	if err != nil {
		panic(err)
	}
	return p
}

func stripTabs(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\t' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] == '\t' {
					b[j] = ' '
				}
			}
			return string(b)
		}
	}
	return s
}

func firstNonPrint(s string) int {
	for i := 0; i < len(s); i++ {
		if c := s[i]; (c < ' ' || c > '~') && c != '\t' {
			return i
		}
	}
	return 0
}
