package sigscan

import (
	"fmt"
	"log"

	"gitlab.com/stephen-fox/patchkit/memory"
)

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs.
	DefaultExitFn = func(err error) {
		log.Fatalln(err)
	}
)

// NewScanner creates a Scanner over the specified Image, which should
// cover the executable's code section.
func NewScanner(img *memory.Image) *Scanner {
	return &Scanner{
		img: img,
	}
}

// Scanner finds unique pattern matches within an executable image.
// It satisfies the scanner requirement of the hook package's resolver.
type Scanner struct {
	img *memory.Image
}

// FindUnique parses the specified signature string and returns the
// address of its single match within the image. Zero matches or more
// than one match are errors; an ambiguous signature cannot anchor
// a patch.
func (o *Scanner) FindUnique(signature string) (uintptr, error) {
	pattern, err := ParsePattern(signature)
	if err != nil {
		return 0, fmt.Errorf("failed to parse signature - %w", err)
	}

	matches := o.FindAll(pattern, 2)

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return 0, fmt.Errorf("signature %q has no matches in the image", signature)
	default:
		return 0, fmt.Errorf("signature %q matches more than once in the image", signature)
	}
}

// FindAll returns the addresses of up to limit matches of the Pattern
// within the image. A limit less than or equal to zero means no limit.
func (o *Scanner) FindAll(pattern Pattern, limit int) []uintptr {
	data := o.img.Bytes()

	var matches []uintptr

	for i := 0; i <= len(data)-pattern.Len(); i++ {
		if !pattern.MatchesAt(data, i) {
			continue
		}

		matches = append(matches, o.img.Base()+uintptr(i))

		if limit > 0 && len(matches) == limit {
			break
		}
	}

	return matches
}
