// Copyright 2023 Cloudflare, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package secret holds private key bytes in memory that is zeroed when the
// owning key is closed.
//
// On Linux the memory is an anonymous mapping outside the Go heap, locked
// against swap where RLIMIT_MEMLOCK allows it and excluded from core
// dumps. Elsewhere it is an ordinary heap slice that is zeroed on Close.
package secret

import (
	"errors"
	"runtime"
	"sync"
)

// ErrClosed is returned by Buffer operations after Close.
var ErrClosed = errors.New("secret: buffer is closed")

// Buffer is an owned region of secret bytes. A Buffer must not be copied.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
	free   func([]byte) error
}

// FromBytes copies src into a new Buffer and zeroes src.
func FromBytes(src []byte) (*Buffer, error) {
	if len(src) == 0 {
		return nil, errors.New("secret: empty source")
	}

	data, free, err := alloc(len(src))
	if err != nil {
		return nil, err
	}
	copy(data, src)
	Wipe(src)

	b := &Buffer{data: data, free: free}
	runtime.SetFinalizer(b, (*Buffer).Close)
	return b, nil
}

// Use calls fn with the secret bytes. fn must not retain the slice.
func (b *Buffer) Use(fn func([]byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	fn(b.data)
	return nil
}

// Len returns the size of the secret.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Close zeroes and releases the memory. Close is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	runtime.SetFinalizer(b, nil)

	Wipe(b.data)
	err := b.free(b.data)
	b.data = nil
	return err
}

// Wipe overwrites p with zeros.
func Wipe(p []byte) {
	clear(p)
}
