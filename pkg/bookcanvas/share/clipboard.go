package share

import (
	"errors"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// CopiedFor is how long Copied stays true after a successful copy.
const CopiedFor = 2 * time.Second

var ErrClipboardUnavailable = errors.New("clipboard is not available on this system")

// Copier puts share links on the local clipboard. Copying is best effort;
// a failure is reported and leaves the copied flag unset.
type Copier struct {
	mu       sync.Mutex
	copiedAt time.Time

	write func(string) error
	now   func() time.Time
}

func NewCopier() *Copier {
	c := &Copier{now: time.Now}
	if !clipboard.Unsupported {
		c.write = clipboard.WriteAll
	}
	return c
}

func (c *Copier) Copy(text string) error {
	if c.write == nil {
		return ErrClipboardUnavailable
	}
	if err := c.write(text); err != nil {
		return err
	}
	c.mu.Lock()
	c.copiedAt = c.now()
	c.mu.Unlock()
	return nil
}

// Copied reports whether a copy succeeded within the last CopiedFor.
func (c *Copier) Copied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.copiedAt.IsZero() {
		return false
	}
	return c.now().Sub(c.copiedAt) < CopiedFor
}
