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

	unshrink "github.com/flanglet/unshrink-go"
)

// DebugInputBitStream is an implementation of InputBitStream used for debugging.
type DebugInputBitStream struct {
	delegate unshrink.InputBitStream
	out      io.Writer
	hexa     bool
	index    uint64
}

// NewDebugInputBitStream creates a DebugInputBitStream wrapped around 'ibs'.
// All calls are delegated to the 'ibs' InputBitStream and every value read
// is logged to the provided io.Writer, one line per value.
func NewDebugInputBitStream(ibs unshrink.InputBitStream, writer io.Writer) (*DebugInputBitStream, error) {
	if ibs == nil {
		return nil, errors.New("The delegate cannot be null")
	}

	if writer == nil {
		return nil, errors.New("The writer cannot be null")
	}

	this := new(DebugInputBitStream)
	this.delegate = ibs
	this.out = writer
	return this, nil
}

// ReadBits reads 'length' bits from the bitstream delegate and logs the
// value as '#index [bit offset] wN binary decimal'.
func (this *DebugInputBitStream) ReadBits(length uint) (uint64, error) {
	offset := this.delegate.Read()
	res, err := this.delegate.ReadBits(length)
	this.index++

	if err != nil {
		fmt.Fprintf(this.out, "#%d [%d] w%d read failed: %v\n", this.index, offset, length, err)
		return res, err
	}

	if this.hexa == true {
		fmt.Fprintf(this.out, "#%d [%d] w%d %0*b %d (0x%X)\n", this.index, offset, length, int(length), res, res, res)
	} else {
		fmt.Fprintf(this.out, "#%d [%d] w%d %0*b %d\n", this.index, offset, length, int(length), res, res)
	}

	return res, nil
}

// Close makes the bitstream unavailable for further reads.
// Calls Close() on the underlying bitstream delegate.
func (this *DebugInputBitStream) Close() error {
	return this.delegate.Close()
}

// Read returns the number of bits read
// Calls Read() on the underlying bitstream delegate.
func (this *DebugInputBitStream) Read() uint64 {
	return this.delegate.Read()
}

// ShowHexa sets the internal show hexa state. When true, also displays
// the hexadecimal value of each value read.
func (this *DebugInputBitStream) ShowHexa(show bool) {
	this.hexa = show
}
