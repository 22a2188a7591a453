package keys

import (
	"context"
	"sync"
)

// Token is the cancellation handle of one scan request
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *Token) Context() context.Context { return t.ctx }

func (t *Token) Cancel() { t.cancel() }

func (t *Token) IsCancelled() bool { return t.ctx.Err() != nil }

// Registry owns at most one outstanding scan token. Issuing a new token
// and committing a result are serialized, so the result of a superseded
// request is never applied.
type Registry struct {
	mu      sync.Mutex
	current *Token
}

// CancelIfPresent cancels and forgets the outstanding token, if any
func (r *Registry) CancelIfPresent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Cancel()
		r.current = nil
	}
}

// Issue cancels any outstanding token and stores a fresh one derived from parent
func (r *Registry) Issue(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	t := &Token{ctx: ctx, cancel: cancel}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Cancel()
	}
	r.current = t
	return t
}

// Commit runs fn only while t is still the outstanding, uncancelled token,
// then forgets it. It reports whether fn ran.
func (r *Registry) Commit(t *Token, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != t || t.IsCancelled() {
		return false
	}
	r.current = nil
	fn()
	return true
}

// Release forgets t if it is still outstanding and frees its context
func (r *Registry) Release(t *Token) {
	r.mu.Lock()
	if r.current == t {
		r.current = nil
	}
	r.mu.Unlock()
	t.Cancel()
}

// Outstanding reports whether a token is held
func (r *Registry) Outstanding() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}
