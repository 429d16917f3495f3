package coupon

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// Generator issues human-enterable codes such as CNO-7QK2XD.
type Generator struct {
	prefix  string
	pattern *regexp.Regexp
}

func NewGenerator(prefix string) *Generator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	return &Generator{
		prefix:  prefix,
		pattern: regexp.MustCompile(fmt.Sprintf(`^%s-[A-Z0-9]{%d}$`, regexp.QuoteMeta(prefix), codeLength)),
	}
}

func (g *Generator) New() (string, error) {
	var b strings.Builder
	b.Grow(len(g.prefix) + 1 + codeLength)
	b.WriteString(g.prefix)
	b.WriteByte('-')

	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate coupon code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Valid reports whether code has this generator's format.
func (g *Generator) Valid(code string) bool {
	return g.pattern.MatchString(code)
}

// Normalize uppercases and trims a code typed in by staff.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
