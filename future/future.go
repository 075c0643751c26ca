/*
Copyright 2016 Workiva, LLC
Copyright 2016 Sokolov Yura aka funny_falcon

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

 http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package future provides a one-shot result cell, built on top of this
// module's own channel runtime rather than the builtin chan. It is
// spec.md §9's "SingletonChan" Open Question resolved as a separate,
// optional collaborator outside the gochan core (§1: "a single-shot
// singleton channel (trivially derivable)").
package future

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/lemon-mint/go-chan"
)

// ErrCanceled signals that a Future was canceled by a call to Cancel.
var ErrCanceled = errors.New("future: canceled")

// Future is a single-shot result cell. Many goroutines may wait for the
// result either with GetResult or by selecting/receiving from WaitChannel,
// which closes once the future is filled. A Future must not be copied
// after first use.
type Future[T any] struct {
	m      sync.Mutex
	val    T
	err    error
	ch     gochan.Channel[struct{}]
	filled uint32
}

// New returns a ready, unfilled future.
func New[T any]() *Future[T] {
	return &Future[T]{}
}

func (f *Future[T]) waitChan() gochan.Channel[struct{}] {
	f.m.Lock()
	if f.ch == nil {
		f.ch = gochan.Make[struct{}](1)
	}
	ch := f.ch
	f.m.Unlock()
	return ch
}

// WaitChannel returns a channel that closes once the future is filled.
// Select on it alongside other operations with gochan.Recv.
func (f *Future[T]) WaitChannel() gochan.Channel[struct{}] {
	if atomic.LoadUint32(&f.filled) == 1 {
		return closedSentinel
	}
	return f.waitChan()
}

// GetResult blocks until the future is filled and returns its value or
// error, whichever was set.
func (f *Future[T]) GetResult() (T, error) {
	if atomic.LoadUint32(&f.filled) == 0 {
		f.waitChan().Receive()
	}
	return f.val, f.err
}

// Fill sets the future's result if it has not already been filled. It
// reports an error if the future was already filled.
func (f *Future[T]) Fill(v T, e error) error {
	f.m.Lock()
	if f.filled == 0 {
		f.val = v
		f.err = e
		atomic.StoreUint32(&f.filled, 1)
		ch := f.ch
		f.ch = closedSentinel
		f.m.Unlock()
		if ch != nil {
			ch.Close()
		}
		return nil
	}
	f.m.Unlock()
	return errors.New("future: already filled")
}

// SetValue is Fill(v, nil).
func (f *Future[T]) SetValue(v T) error { return f.Fill(v, nil) }

// SetError is Fill(zero, e), ignoring its return.
func (f *Future[T]) SetError(e error) {
	var zero T
	_ = f.Fill(zero, e)
}

// Cancel is SetError(ErrCanceled).
func (f *Future[T]) Cancel() { f.SetError(ErrCanceled) }

// closedSentinel is a capacity-1 channel closed once at package init, handed
// out by WaitChannel/Fill once a future is already resolved so callers never
// allocate a fresh channel just to observe it as already closed.
var closedSentinel = gochan.Make[struct{}](1)

func init() {
	closedSentinel.Close()
}
