//go:build linux

package input

import (
	"fmt"

	"github.com/bendahl/uinput"
)

// VirtualKeyboard is a uinput-backed keyboard device.
type VirtualKeyboard struct {
	kb uinput.Keyboard
}

// NewVirtualKeyboard creates a virtual keyboard named name on the given
// uinput device path.
func NewVirtualKeyboard(devicePath, name string) (*VirtualKeyboard, error) {
	kb, err := uinput.CreateKeyboard(devicePath, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	return &VirtualKeyboard{kb: kb}, nil
}

// KeyDown asserts the key.
func (v *VirtualKeyboard) KeyDown(code int) error {
	if err := v.kb.KeyDown(code); err != nil {
		return fmt.Errorf("key down %d: %w", code, err)
	}
	return nil
}

// KeyUp releases the key.
func (v *VirtualKeyboard) KeyUp(code int) error {
	if err := v.kb.KeyUp(code); err != nil {
		return fmt.Errorf("key up %d: %w", code, err)
	}
	return nil
}

// Close destroys the virtual device.
func (v *VirtualKeyboard) Close() error {
	if err := v.kb.Close(); err != nil {
		return fmt.Errorf("close virtual keyboard: %w", err)
	}
	return nil
}
