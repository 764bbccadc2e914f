//go:build !linux

package input

import "errors"

// VirtualKeyboard is not available on non-Linux platforms.
type VirtualKeyboard struct{}

// NewVirtualKeyboard returns an error on non-Linux platforms.
func NewVirtualKeyboard(devicePath, name string) (*VirtualKeyboard, error) {
	return nil, errors.New("input: not supported on this platform (requires Linux)")
}

// KeyDown is not implemented on non-Linux platforms.
func (v *VirtualKeyboard) KeyDown(code int) error {
	return errors.New("input: not supported")
}

// KeyUp is not implemented on non-Linux platforms.
func (v *VirtualKeyboard) KeyUp(code int) error {
	return errors.New("input: not supported")
}

// Close is not implemented on non-Linux platforms.
func (v *VirtualKeyboard) Close() error {
	return nil
}
