// Package console renders log lines as text on a framebuffer.
package console

import (
	"sync"

	"wcet/hal"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const (
	fontHeight = 10
	fontOffset = 6
)

// Console is a hal.Logger drawing on a framebuffer. If the framebuffer is a
// sync.Locker it is held while drawing.
type Console struct {
	mu   sync.Mutex
	fb   hal.Framebuffer
	lock sync.Locker
	t    *tinyterm.Terminal
}

// New returns a Console on fb, or nil if fb is nil.
func New(fb hal.Framebuffer) *Console {
	if fb == nil {
		return nil
	}
	c := &Console{fb: fb}
	if l, ok := fb.(sync.Locker); ok {
		c.lock = l
	}
	c.Reset()
	return c
}

// Reset clears the screen and homes the cursor.
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fb.ClearRGB(0, 0, 0)
	c.withFB(func() {
		c.t = tinyterm.NewTerminal(newFBDisplay(c.fb))
		c.t.Configure(&tinyterm.Config{
			Font:       &proggy.TinySZ8pt7b,
			FontHeight: fontHeight,
			FontOffset: fontOffset,
		})
	})
	_ = c.fb.Present()
}

func (c *Console) withFB(fn func()) {
	if c.lock != nil {
		c.lock.Lock()
		defer c.lock.Unlock()
	}
	fn()
}

func (c *Console) WriteLineString(s string) {
	c.WriteLineBytes([]byte(s))
}

func (c *Console) WriteLineBytes(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.withFB(func() {
		_, _ = c.t.Write(b)
		_, _ = c.t.Write([]byte{'\n'})
		_ = c.fb.Present()
	})
}

// Tee fans every line out to each non-nil Logger in order.
type Tee []hal.Logger

func (t Tee) WriteLineString(s string) {
	for _, l := range t {
		if l != nil {
			l.WriteLineString(s)
		}
	}
}

func (t Tee) WriteLineBytes(b []byte) {
	for _, l := range t {
		if l != nil {
			l.WriteLineBytes(b)
		}
	}
}
