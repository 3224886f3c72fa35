// FILENAME: internal/payload/case.go

// Package payload turns configured wordlists into payload tuples and gives
// scripts read access to wordlists and captured templates.
package payload

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Case selects a text transform. The flags are not orthogonal: Upper wins
// over Lower, which wins over UpperFirst.
type Case struct {
	Upper      bool `yaml:"uppercase"`
	Lower      bool `yaml:"lowercase"`
	UpperFirst bool `yaml:"upper_first_char"`
}

// Apply transforms s according to the highest-priority enabled flag.
func (c Case) Apply(s string) string {
	switch {
	case c.Upper:
		return strings.ToUpper(s)
	case c.Lower:
		return strings.ToLower(s)
	case c.UpperFirst:
		return capitalize(s)
	}
	return s
}

// ApplyAll transforms every element of tuple in place and returns it.
func (c Case) ApplyAll(tuple []string) []string {
	if c == (Case{}) {
		return tuple
	}
	for i, s := range tuple {
		tuple[i] = c.Apply(s)
	}
	return tuple
}

// capitalize uppercases the first rune and lowercases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
