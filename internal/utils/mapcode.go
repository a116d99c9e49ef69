package utils

import (
	"crypto/rand"
	"strings"
)

// mapCodeAlphabet leaves out 0/O and 1/I/L so codes survive being read aloud.
const mapCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// MapCodePrefix starts every generated map code.
const MapCodePrefix = "MAP-"

// NewMapCode returns a shareable code such as "MAP-7KQ2H9XD".
func NewMapCode() (string, error) {
	const n = 8
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(MapCodePrefix) + n)
	b.WriteString(MapCodePrefix)
	for _, v := range buf {
		b.WriteByte(mapCodeAlphabet[int(v)%len(mapCodeAlphabet)])
	}
	return b.String(), nil
}
