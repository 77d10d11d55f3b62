package loader

import (
	"errors"
	"sync/atomic"
)

// ErrStaleLoad is returned when a load finished after a newer one started.
var ErrStaleLoad = errors.New("load superseded by a newer request")

// Token identifies one load started through a Session.
type Token uint64

// Session orders overlapping loads. Each Begin supersedes every earlier
// token; results carrying a superseded token must be dropped.
// Safe for concurrent use.
type Session struct {
	gen atomic.Uint64
}

// Begin starts a new load and returns its token.
func (s *Session) Begin() Token {
	return Token(s.gen.Add(1))
}

// Current reports whether tok belongs to the most recent load.
func (s *Session) Current(tok Token) bool {
	return uint64(tok) == s.gen.Load()
}

// Check returns ErrStaleLoad when tok has been superseded.
func (s *Session) Check(tok Token) error {
	if !s.Current(tok) {
		return ErrStaleLoad
	}
	return nil
}
