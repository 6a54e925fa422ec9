// Package idcodec provides compact base-63 encoding for symbol and file
// identifiers exposed at the engine boundary (pack output, CLI/MCP
// parameters). Internally the Store keys rows by SQLite rowid; idcodec
// gives those integers a short, URL/Markdown-safe external representation
// (3 characters for any rowid below 250,047 and at most 11 for a full
// 64-bit value, vs up to 16 hex digits).
//
// Alphabet: A-Z (0-25), a-z (26-51), 0-9 (52-61), _ (62).
package idcodec

import "errors"

const (
	Base     = 63
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"
)

var (
	ErrEmptyString = errors.New("idcodec: empty string")
	ErrInvalidChar = errors.New("idcodec: invalid character")
	ErrOverflow    = errors.New("idcodec: value overflows target type")
)

var charValue [256]int8

func init() {
	for i := range charValue {
		charValue[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		charValue[Alphabet[i]] = int8(i)
	}
}

// Encode encodes a uint64 value to a base-63 string. Returns "A" (value 0)
// for the zero value so an encoded ID is never the empty string.
func Encode(value uint64) string {
	if value == 0 {
		return string(Alphabet[0])
	}
	var buf [16]byte
	pos := len(buf)
	for value > 0 {
		pos--
		buf[pos] = Alphabet[value%Base]
		value /= Base
	}
	return string(buf[pos:])
}

// Decode decodes a base-63 string to a uint64 value.
func Decode(encoded string) (uint64, error) {
	if encoded == "" {
		return 0, ErrEmptyString
	}
	var value uint64
	for i := 0; i < len(encoded); i++ {
		v := charValue[encoded[i]]
		if v < 0 {
			return 0, ErrInvalidChar
		}
		if value > (^uint64(0)-uint64(v))/Base {
			return 0, ErrOverflow
		}
		value = value*Base + uint64(v)
	}
	return value, nil
}

// IsValid reports whether encoded is a well-formed base-63 string.
func IsValid(encoded string) bool {
	if encoded == "" {
		return false
	}
	for i := 0; i < len(encoded); i++ {
		if charValue[encoded[i]] < 0 {
			return false
		}
	}
	return true
}
