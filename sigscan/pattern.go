// Package sigscan locates byte-pattern signatures inside executable
// images.
//
// Signatures are written in the conventional space-separated hex form
// used by reverse engineering tools, with "?" or "??" marking wildcard
// bytes:
//
//	"48 8b 0d ? ? ? ? 48 81 c1 b0 00 00 00"
//
// A signature is only considered found when it matches exactly once
// within the scanned image. Zero matches and multiple matches both mean
// the image is not the build the signature was authored against.
package sigscan

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePatternOrExit calls ParsePattern, invoking DefaultExitFn if an
// error occurs.
func ParsePatternOrExit(signature string) Pattern {
	pattern, err := ParsePattern(signature)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to parse pattern - %w", err))
	}
	return pattern
}

// ParsePattern parses a space-separated hex signature string into
// a Pattern.
func ParsePattern(signature string) (Pattern, error) {
	fields := strings.Fields(signature)
	if len(fields) == 0 {
		return Pattern{}, fmt.Errorf("signature cannot be empty")
	}

	pattern := Pattern{
		bytes: make([]byte, len(fields)),
		mask:  make([]bool, len(fields)),
	}

	for i, field := range fields {
		if field == "?" || field == "??" {
			pattern.mask[i] = true
			continue
		}

		value, err := strconv.ParseUint(field, 16, 8)
		if err != nil {
			return Pattern{}, fmt.Errorf("bad byte %q at index %d - %w",
				field, i, err)
		}

		pattern.bytes[i] = byte(value)
	}

	if pattern.mask[0] {
		return Pattern{}, fmt.Errorf("signature cannot start with a wildcard")
	}

	return pattern, nil
}

// Pattern is a parsed byte signature.
type Pattern struct {
	bytes []byte
	mask  []bool
}

// Len returns the number of bytes the Pattern covers.
func (o Pattern) Len() int {
	return len(o.bytes)
}

// MatchesAt returns true when the Pattern matches data at index i.
func (o Pattern) MatchesAt(data []byte, i int) bool {
	if i < 0 || len(data)-i < len(o.bytes) {
		return false
	}

	for j, b := range o.bytes {
		if !o.mask[j] && data[i+j] != b {
			return false
		}
	}

	return true
}

// String renders the Pattern back into signature form.
func (o Pattern) String() string {
	var sb strings.Builder

	for i, b := range o.bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}

		if o.mask[i] {
			sb.WriteByte('?')
		} else {
			fmt.Fprintf(&sb, "%02x", b)
		}
	}

	return sb.String()
}
