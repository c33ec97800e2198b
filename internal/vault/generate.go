package vault

import (
	"crypto/rand"
	"errors"
	"math/big"
	"unicode"
)

const (
	lowerSet  = "abcdefghijklmnopqrstuvwxyz"
	upperSet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitSet  = "0123456789"
	symbolSet = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// Password length bounds for GeneratePassword.
const (
	MinLength     = 4
	MaxLength     = 128
	DefaultLength = 16
)

// ErrLength is returned for a length outside MinLength..MaxLength.
var ErrLength = errors.New("password length out of range")

// GenerateOptions selects the character classes of a generated password.
type GenerateOptions struct {
	Length  int
	Upper   bool
	Lower   bool
	Digits  bool
	Symbols bool
}

// DefaultGenerateOptions enables every class at the default length.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Length: DefaultLength, Upper: true, Lower: true, Digits: true, Symbols: true}
}

// GeneratePassword returns a random password drawn from the selected classes.
// With no class selected, letters and digits are used.
func GeneratePassword(opts GenerateOptions) (string, error) {
	if opts.Length == 0 {
		opts.Length = DefaultLength
	}
	if opts.Length < MinLength || opts.Length > MaxLength {
		return "", ErrLength
	}
	var charset string
	if opts.Lower {
		charset += lowerSet
	}
	if opts.Upper {
		charset += upperSet
	}
	if opts.Digits {
		charset += digitSet
	}
	if opts.Symbols {
		charset += symbolSet
	}
	if charset == "" {
		charset = lowerSet + upperSet + digitSet
	}

	limit := big.NewInt(int64(len(charset)))
	out := make([]byte, opts.Length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}

// Strength scores a password from 0 to 100: up to 40 for length and 15 for
// each character class present.
func Strength(pw string) int {
	score := 0
	n := len(pw)
	if n >= 8 {
		score += 25
	}
	if n >= 12 {
		score += 10
	}
	if n >= 16 {
		score += 5
	}

	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case r < unicode.MaxASCII && unicode.IsLower(r):
			lower = true
		case r < unicode.MaxASCII && unicode.IsUpper(r):
			upper = true
		case r < unicode.MaxASCII && unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	for _, has := range []bool{lower, upper, digit, symbol} {
		if has {
			score += 15
		}
	}
	return min(score, 100)
}
