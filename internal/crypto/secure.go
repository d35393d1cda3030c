// Package crypto holds the custody key vault: symmetric encryption of
// private keys and mnemonics under a process-wide key, the locked memory
// that key lives in, and password-protected backup export.
//
//nolint:revive // Internal package name is intentional
package crypto

import (
	"crypto/rand"
	"io"
	"runtime"
	"sync"
)

// Reader is the source of randomness for IVs and generated secrets.
// Tests may replace it to simulate entropy failures.
//
//nolint:gochecknoglobals // Package-level RNG is required for testability
var Reader io.Reader = rand.Reader

// LockedBuffer holds the vault key outside swap where mlock is available.
// It is wiped on Wipe or when garbage collected.
type LockedBuffer struct {
	mu     sync.Mutex
	buf    []byte
	locked bool
}

// NewLockedBuffer moves src into a locked buffer. src is zeroed.
func NewLockedBuffer(src []byte) *LockedBuffer {
	b := &LockedBuffer{buf: make([]byte, len(src))}
	b.locked = mlock(b.buf)
	copy(b.buf, src)
	ZeroBytes(src)

	runtime.SetFinalizer(b, (*LockedBuffer).Wipe)
	return b
}

// Bytes returns the buffer, or nil after Wipe. Callers must not retain it.
func (b *LockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf
}

// Locked reports whether the pages are pinned in RAM.
func (b *LockedBuffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Wipe zeroes and releases the buffer. It is idempotent.
func (b *LockedBuffer) Wipe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf == nil {
		return
	}
	ZeroBytes(b.buf)
	if b.locked {
		munlock(b.buf)
		b.locked = false
	}
	b.buf = nil
	runtime.SetFinalizer(b, nil)
}

// ZeroBytes overwrites b with zeros.
func ZeroBytes(b []byte) {
	clear(b)
}
