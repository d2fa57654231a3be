package headless

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no browser is configured.
var ErrUnavailable = errors.New("headless renderer not configured")

// Noop renders nothing.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Render always fails with ErrUnavailable.
func (Noop) Render(context.Context, string) (Page, error) {
	return Page{}, ErrUnavailable
}

// Close is a no-op.
func (Noop) Close() error { return nil }
