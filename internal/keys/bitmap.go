package keys

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFormat reports a malformed range list.
var ErrInvalidFormat = errors.New("invalid range list")

// Bitmap is a dense bit set over an input code space. It is not safe for
// concurrent use.
type Bitmap struct {
	words []uint64
	size  int
}

// NewBitmap creates an empty bitmap covering codes [0, size).
func NewBitmap(size int) *Bitmap {
	return &Bitmap{
		words: make([]uint64, (size+63)/64),
		size:  size,
	}
}

// Size returns the code space size the bitmap covers.
func (b *Bitmap) Size() int { return b.size }

// Set marks code. Out-of-range codes are ignored.
func (b *Bitmap) Set(code int) {
	if code < 0 || code >= b.size {
		return
	}
	b.words[code/64] |= 1 << (uint(code) % 64)
}

// Clear unmarks code.
func (b *Bitmap) Clear(code int) {
	if code < 0 || code >= b.size {
		return
	}
	b.words[code/64] &^= 1 << (uint(code) % 64)
}

// Test reports whether code is marked. Out-of-range codes are unmarked.
func (b *Bitmap) Test(code int) bool {
	if code < 0 || code >= b.size {
		return false
	}
	return b.words[code/64]&(1<<(uint(code)%64)) != 0
}

// Codes returns every marked code in ascending order.
func (b *Bitmap) Codes() []int {
	var codes []int
	for c := 0; c < b.size; c++ {
		if b.Test(c) {
			codes = append(codes, c)
		}
	}
	return codes
}

// ParseRangeList parses a comma-separated list of codes and code ranges
// ("5,9-11") into a bitmap over [0, size). Range endpoints may appear in
// either order, so "11-9" marks the same codes as "9-11". An empty string
// yields an empty bitmap. Any malformed or out-of-range entry fails the
// whole parse with ErrInvalidFormat.
func ParseRangeList(s string, size int) (*Bitmap, error) {
	b := NewBitmap(size)
	s = strings.TrimSpace(s)
	if s == "" {
		return b, nil
	}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		lo, hi, err := parseRange(tok)
		if err != nil {
			return nil, err
		}
		if lo < 0 || hi >= size {
			return nil, fmt.Errorf("%w: %q outside code space 0-%d", ErrInvalidFormat, tok, size-1)
		}
		for c := lo; c <= hi; c++ {
			b.Set(c)
		}
	}
	return b, nil
}

func parseRange(tok string) (lo, hi int, err error) {
	first, last := tok, tok
	if i := strings.IndexByte(tok, '-'); i >= 0 {
		first, last = tok[:i], tok[i+1:]
	}
	lo, err = strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidFormat, tok)
	}
	hi, err = strconv.Atoi(strings.TrimSpace(last))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidFormat, tok)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, nil
}

// RangeList renders the marked codes as an ascending range list ("5,9-11").
// An empty bitmap renders as the empty string.
func (b *Bitmap) RangeList() string {
	var sb strings.Builder
	c := 0
	for c < b.size {
		if !b.Test(c) {
			c++
			continue
		}
		start := c
		for c < b.size && b.Test(c) {
			c++
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		if c-start == 1 {
			fmt.Fprintf(&sb, "%d", start)
		} else {
			fmt.Fprintf(&sb, "%d-%d", start, c-1)
		}
	}
	return sb.String()
}
