package cardkit

import (
	"sync"
	"sync/atomic"
)

// ChangeToken signals that a mounted card's backing content has changed.
// Tokens are single-use: once changed, they stay changed, and the caller
// should obtain a fresh token after reacting.
type ChangeToken interface {
	// HasChanged returns true once a change has occurred.
	HasChanged() bool

	// RegisterChangeCallback registers a callback invoked on change and
	// returns a function to unregister it. A token that has already
	// changed invokes the callback immediately.
	RegisterChangeCallback(callback func()) (unregister func())
}

// CallbackChangeToken is a ChangeToken driven by an explicit signal,
// used by backends with native change events.
type CallbackChangeToken struct {
	mu        sync.Mutex
	changed   atomic.Bool
	callbacks []func()
}

// NewCallbackChangeToken creates an unsignalled change token.
func NewCallbackChangeToken() *CallbackChangeToken {
	return &CallbackChangeToken{}
}

func (t *CallbackChangeToken) HasChanged() bool {
	return t.changed.Load()
}

func (t *CallbackChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	t.mu.Lock()
	if t.changed.Load() {
		t.mu.Unlock()
		callback()
		return func() {}
	}
	t.callbacks = append(t.callbacks, callback)
	index := len(t.callbacks) - 1
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if index < len(t.callbacks) {
			// Nil out instead of removing to keep indices stable.
			t.callbacks[index] = nil
		}
	}
}

// SignalChange marks the token as changed and invokes the registered
// callbacks once. Later signals are no-ops.
func (t *CallbackChangeToken) SignalChange() {
	if t.changed.Swap(true) {
		return
	}

	t.mu.Lock()
	callbacks := make([]func(), len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.mu.Unlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
}

// NeverChangeToken is a ChangeToken for content that cannot change
// externally, such as an archive buffered whole at mount time.
type NeverChangeToken struct{}

func (NeverChangeToken) HasChanged() bool { return false }

func (NeverChangeToken) RegisterChangeCallback(func()) func() {
	return func() {}
}

var (
	_ ChangeToken = (*CallbackChangeToken)(nil)
	_ ChangeToken = NeverChangeToken{}
)
