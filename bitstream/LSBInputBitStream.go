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

package bitstream

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"

	unshrink "github.com/flanglet/unshrink-go"
)

const (
	_MAX_BITS_PER_READ = 32
)

// LSBInputBitStream is an implementation of InputBitStream for streams
// packed least significant bit first (PKZIP Shrink/Reduce/Implode style).
// Bytes are pulled from the underlying reader one at a time, only when
// the pending bits cannot satisfy the current request.
type LSBInputBitStream struct {
	closed    bool
	read      uint64 // bits consumed
	availBits uint   // bits not consumed in current
	is        io.ByteReader
	current   uint64 // pending bits, next bit is bit 0
}

// NewLSBInputBitStream creates a bitstream for reading, using the provided
// stream as the underlying I/O object. Readers that do not implement
// io.ByteReader are wrapped with a bufio.Reader.
func NewLSBInputBitStream(stream io.Reader) (*LSBInputBitStream, error) {
	if stream == nil {
		return nil, errors.New("Invalid null input stream parameter")
	}

	this := new(LSBInputBitStream)

	if br, isByteReader := stream.(io.ByteReader); isByteReader == true {
		this.is = br
	} else {
		this.is = bufio.NewReader(stream)
	}

	return this, nil
}

// ReadBits reads 'count' bits from the stream and returns them as an uint64.
// The first bit read ends up in bit 0 of the result.
// Returns ErrBitStreamExhausted if the stream ends before 'count' bits could
// be collected. The bits already pulled stay pending.
func (this *LSBInputBitStream) ReadBits(count uint) (uint64, error) {
	if count == 0 || count > _MAX_BITS_PER_READ {
		return 0, fmt.Errorf("Invalid bit count: %d (must be in [1..%d])", count, _MAX_BITS_PER_READ)
	}

	if this.closed == true {
		return 0, errors.New("Stream closed")
	}

	for this.availBits < count {
		if err := this.pullByte(); err != nil {
			return 0, err
		}
	}

	res := this.current & (0xFFFFFFFFFFFFFFFF >> (64 - count))
	this.current >>= count
	this.availBits -= count
	this.read += uint64(count)
	return res, nil
}

// Append the next byte above the pending bits.
func (this *LSBInputBitStream) pullByte() error {
	b, err := this.is.ReadByte()

	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return unshrink.ErrBitStreamExhausted
		}

		return errors.Wrap(err, "Failed to read from the input stream")
	}

	this.current |= uint64(b) << this.availBits
	this.availBits += 8
	return nil
}

// PendingBits returns the number of bits pulled from the underlying stream
// but not consumed yet
func (this *LSBInputBitStream) PendingBits() uint {
	return this.availBits
}

// Close prevents further reads
func (this *LSBInputBitStream) Close() error {
	this.closed = true
	this.availBits = 0
	this.current = 0
	return nil
}

// Read returns the number of bits read so far
func (this *LSBInputBitStream) Read() uint64 {
	return this.read
}

// Closed says whether this stream can be read from
func (this *LSBInputBitStream) Closed() bool {
	return this.closed
}
