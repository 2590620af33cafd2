package bootstrap

import "go.uber.org/zap"

var _cleaner = new(cleaner)

// cleaner runs registered cleanup functions in reverse-registration order,
// mirroring the teacher's bootstrap.go call sites (forbearing-gst registers
// a Close/Clean per provider as it's initialized, then runs them all at
// shutdown) even though the teacher's own snapshot never shipped the
// function that does the running — this file supplies it.
type cleaner struct {
	fns []func()
}

func (c *cleaner) Register(fn ...func()) {
	c.fns = append(c.fns, fn...)
}

func (c *cleaner) Run() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		fn := c.fns[i]
		if fn == nil {
			continue
		}
		fn()
	}
	c.fns = nil
}

// RegisterCleanup registers fn to run during Cleanup, in reverse order of
// registration so the last-initialized collaborator tears down first.
func RegisterCleanup(fn ...func()) { _cleaner.Register(fn...) }

// Cleanup runs every registered cleanup function. Safe to call more than
// once; the second call is a no-op.
func Cleanup() {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("panic during cleanup", "panic", r)
		}
	}()
	_cleaner.Run()
}
