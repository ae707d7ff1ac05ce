// Package shortid generates the opaque identifiers used both as public file
// tokens and as record keys. IDs are short, URL-safe and collision-resistant
// enough that no uniqueness check against the store is performed.
package shortid

import (
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the URL-safe character set every id is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Length of generated ids. Valid accepts 7-14 so the length can be tuned
// without breaking previously issued ids.
const Length = 10

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{7,14}$`)

// New returns a fresh id. Safe for concurrent use.
func New() (string, error) {
	return gonanoid.Generate(Alphabet, Length)
}

// Valid reports whether s has the shape of an id this package issues.
func Valid(s string) bool {
	return idPattern.MatchString(s)
}
