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
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// LSBOutputBitStream is an implementation of OutputBitStream that packs
// values least significant bit first. It is the writing counterpart of
// LSBInputBitStream.
type LSBOutputBitStream struct {
	closed    bool
	written   uint64
	availBits uint   // pending bits in current
	current   uint64 // pending bits, oldest bit is bit 0
	os        io.Writer
	buffer    []byte
	position  int // index of next free byte in buffer
}

// NewLSBOutputBitStream creates a bitstream for writing, using the provided
// stream as the underlying I/O object.
func NewLSBOutputBitStream(stream io.Writer, bufferSize uint) (*LSBOutputBitStream, error) {
	if stream == nil {
		return nil, errors.New("Invalid null output stream parameter")
	}

	if bufferSize < 1024 {
		return nil, errors.New("Invalid buffer size parameter (must be at least 1024 bytes)")
	}

	if bufferSize > 1<<29 {
		return nil, errors.New("Invalid buffer size parameter (must be at most 536870912 bytes)")
	}

	this := new(LSBOutputBitStream)
	this.os = stream
	this.buffer = make([]byte, bufferSize)
	return this, nil
}

// WriteBits writes the 'count' least significant bits of 'value',
// lowest bit first.
func (this *LSBOutputBitStream) WriteBits(value uint64, count uint) error {
	if count == 0 || count > _MAX_BITS_PER_READ {
		return fmt.Errorf("Invalid bit count: %d (must be in [1..%d])", count, _MAX_BITS_PER_READ)
	}

	if this.closed == true {
		return errors.New("Stream closed")
	}

	this.current |= (value & (0xFFFFFFFFFFFFFFFF >> (64 - count))) << this.availBits
	this.availBits += count
	this.written += uint64(count)

	for this.availBits >= 8 {
		this.buffer[this.position] = byte(this.current)
		this.position++
		this.current >>= 8
		this.availBits -= 8

		if this.position >= len(this.buffer) {
			if err := this.flush(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (this *LSBOutputBitStream) flush() error {
	if this.position == 0 {
		return nil
	}

	n := this.position
	this.position = 0

	if _, err := this.os.Write(this.buffer[0:n]); err != nil {
		return errors.Wrap(err, "Failed to write to the output stream")
	}

	return nil
}

// Close pads the last byte with zero bits, flushes the buffer and
// prevents further writes.
func (this *LSBOutputBitStream) Close() error {
	if this.closed == true {
		return nil
	}

	if this.availBits > 0 {
		this.buffer[this.position] = byte(this.current)
		this.position++
		this.current = 0
		this.availBits = 0
	}

	this.closed = true
	return this.flush()
}

// Written returns the number of bits written so far (padding excluded)
func (this *LSBOutputBitStream) Written() uint64 {
	return this.written
}
