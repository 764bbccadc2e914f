//go:build linux

package gpio

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// Chip provides lines from a Linux GPIO character device.
type Chip struct {
	chip *gpiocdev.Chip
}

// NewChip opens the named GPIO character device (e.g. "gpiochip0").
func NewChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &Chip{chip: chip}, nil
}

// RequestLine acquires offset as an input with both-edge detection.
// Hardware debounce is attempted first when cfg.Debounce is set; kernels or
// pins that cannot debounce fall back to a plain request and the returned
// line reports Debounced false.
func (c *Chip) RequestLine(offset int, cfg LineConfig, handler func()) (Line, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { handler() }),
	}
	if cfg.Consumer != "" {
		opts = append(opts, gpiocdev.WithConsumer(cfg.Consumer))
	}
	switch cfg.Pull {
	case "up":
		opts = append(opts, gpiocdev.WithPullUp)
	case "down":
		opts = append(opts, gpiocdev.WithPullDown)
	}

	if cfg.Debounce > 0 {
		withDebounce := append([]gpiocdev.LineReqOption{gpiocdev.WithDebounce(cfg.Debounce)}, opts...)
		line, err := c.chip.RequestLine(offset, withDebounce...)
		if err == nil {
			return &realLine{line: line, debounced: true}, nil
		}
		log.Printf("gpio: line %d: hardware debounce unavailable, falling back to timer: %v", offset, err)
	}

	line, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}
	return &realLine{line: line}, nil
}

// Close releases the chip.
func (c *Chip) Close() error {
	if err := c.chip.Close(); err != nil {
		return fmt.Errorf("close chip: %w", err)
	}
	return nil
}

type realLine struct {
	line      *gpiocdev.Line
	debounced bool
}

func (l *realLine) Value() (int, error) {
	v, err := l.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read line: %w", err)
	}
	return v, nil
}

func (l *realLine) Debounced() bool {
	return l.debounced
}

func (l *realLine) Close() error {
	if err := l.line.Close(); err != nil {
		return fmt.Errorf("close line: %w", err)
	}
	return nil
}
