//go:build !linux

package gpio

import "errors"

// Chip is not available on non-Linux platforms.
type Chip struct{}

// NewChip returns an error on non-Linux platforms.
func NewChip(name string) (*Chip, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// RequestLine is not implemented on non-Linux platforms.
func (c *Chip) RequestLine(offset int, cfg LineConfig, handler func()) (Line, error) {
	return nil, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}
