/*
Copyright 2011-2026 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package internal

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// ErrWriteLimit is returned by a BufferStream once its write limit is reached
var ErrWriteLimit = errors.New("Write limit reached")

// BufferStream a closable read/write stream of bytes backed by a bytes.Buffer.
// A write limit can be set to simulate a sink that fails after a number of
// bytes.
type BufferStream struct {
	buf     *bytes.Buffer
	closed  bool
	limit   int
	written int
}

// NewBufferStream creates a new instance of BufferStream, optionally
// initialized with the provided bytes
func NewBufferStream(args ...[]byte) *BufferStream {
	this := &BufferStream{limit: -1}

	if len(args) == 1 {
		this.buf = bytes.NewBuffer(args[0])
	} else {
		this.buf = bytes.NewBuffer(make([]byte, 0))
	}

	return this
}

// SetWriteLimit makes writes fail once 'limit' bytes have been written.
// A negative limit removes the limit.
func (this *BufferStream) SetWriteLimit(limit int) {
	this.limit = limit
}

// Write returns an error if the stream is closed, otherwise writes the given
// data to the internal buffer, up to the write limit.
// Returns the number of bytes written.
func (this *BufferStream) Write(b []byte) (int, error) {
	if this.closed == true {
		return 0, errors.New("Stream closed")
	}

	if this.limit >= 0 && this.written+len(b) > this.limit {
		n, _ := this.buf.Write(b[0 : this.limit-this.written])
		this.written += n
		return n, ErrWriteLimit
	}

	n, err := this.buf.Write(b)
	this.written += n
	return n, err
}

// Read returns an error if the stream is closed, otherwise reads data from
// the internal buffer at the read offset position.
// Returns the number of bytes read or (0, io.EOF) when no more data remains.
func (this *BufferStream) Read(b []byte) (int, error) {
	if this.closed == true {
		return 0, errors.New("Stream closed")
	}

	return this.buf.Read(b)
}

// ReadAt reads from the unread part of the buffer at offset 'off'
func (this *BufferStream) ReadAt(b []byte, off int64) (int, error) {
	if this.closed == true {
		return 0, errors.New("Stream closed")
	}

	return bytes.NewReader(this.buf.Bytes()).ReadAt(b, off)
}

// Close makes the stream unavailable for future reads or writes.
func (this *BufferStream) Close() error {
	this.closed = true
	return nil
}

// Bytes returns the unread part of the stream
func (this *BufferStream) Bytes() []byte {
	return this.buf.Bytes()
}

// Len returns the size of the unread part of the stream
func (this *BufferStream) Len() int {
	return this.buf.Len()
}

var _ io.ReaderAt = (*BufferStream)(nil)
