// Package input provides the synthetic input transport the daemon reports
// key events through. The real implementation creates a virtual keyboard via
// uinput; the fake records key activity for tests.
package input

// Keyboard emits key state into the system's input stack.
type Keyboard interface {
	// KeyDown asserts the key identified by a Linux input key code.
	KeyDown(code int) error

	// KeyUp releases the key.
	KeyUp(code int) error

	// Close destroys the virtual device.
	Close() error
}

// DefaultDevicePath is the uinput device node.
const DefaultDevicePath = "/dev/uinput"
