package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// CodeLength is the number of characters in a game code.
const CodeLength = 6

const codeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewGameCode returns a random code of uppercase letters and digits.
func NewGameCode() (string, error) {
	base := big.NewInt(int64(len(codeChars)))
	code := make([]byte, CodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("generate game code: %w", err)
		}
		code[i] = codeChars[n.Int64()]
	}
	return string(code), nil
}

// ValidGameCode reports whether code has the shape NewGameCode produces.
func ValidGameCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeChars, rune(code[i])) {
			return false
		}
	}
	return true
}

// NormalizeCode trims and upper-cases user-typed codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
