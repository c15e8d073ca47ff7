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

package shrink

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	unshrink "github.com/flanglet/unshrink-go"
)

const (
	_CTRL_GROW_WIDTH    = 1
	_CTRL_PARTIAL_CLEAR = 2
)

// Decoder decodes one Shrink (ZIP method 1) stream: LZW codes of 9 to 13
// bits where code 256 introduces a sub-opcode that either widens the codes
// or releases the dictionary leaves.
// A Decoder is not safe for concurrent use and decodes a single stream.
type Decoder struct {
	ibs         unshrink.InputBitStream
	os          io.Writer
	table       *CodeTable
	buffer      []byte // bytes of the current string, last byte first
	codeWidth   uint
	hasPrevious bool
	previous    int  // previous data code
	firstByte   byte // first byte of the string of the previous code
	written     int64
	outputSize  int64
	id          int
	used        bool
	listeners   []unshrink.Listener
}

// NewDecoder creates a new instance of Decoder reading codes from 'ibs' and
// writing exactly 'outputSize' decoded bytes to 'os'.
func NewDecoder(ibs unshrink.InputBitStream, os io.Writer, outputSize int64) (*Decoder, error) {
	ctx := make(map[string]any)
	ctx["outputSize"] = outputSize
	return NewDecoderWithCtx(ibs, os, &ctx)
}

// NewDecoderWithCtx creates a new instance of Decoder using a configuration
// map as parameter. The map must contain 'outputSize' (int64) and may
// contain 'entryId' (int) which is reported in the events.
func NewDecoderWithCtx(ibs unshrink.InputBitStream, os io.Writer, ctx *map[string]any) (*Decoder, error) {
	if ibs == nil {
		return nil, errors.New("Invalid null input bitstream parameter")
	}

	if os == nil {
		return nil, errors.New("Invalid null output stream parameter")
	}

	if ctx == nil {
		return nil, errors.New("Invalid null context parameter")
	}

	this := &Decoder{}

	if val, containsKey := (*ctx)["outputSize"]; containsKey {
		size, isInt64 := val.(int64)

		if isInt64 == false {
			return nil, fmt.Errorf("Invalid output size parameter type: %T", val)
		}

		this.outputSize = size
	} else {
		return nil, errors.New("Missing output size parameter")
	}

	if this.outputSize < 0 {
		return nil, fmt.Errorf("Invalid output size parameter: %d (must be at least 0)", this.outputSize)
	}

	this.id = -1

	if val, containsKey := (*ctx)["entryId"]; containsKey {
		id, isInt := val.(int)

		if isInt == false {
			return nil, fmt.Errorf("Invalid entry id parameter type: %T", val)
		}

		this.id = id
	}

	this.ibs = ibs
	this.os = os
	this.table = NewCodeTable()
	this.buffer = make([]byte, 0, TABLE_SIZE)
	this.codeWidth = INITIAL_CODE_WIDTH
	this.previous = NO_PARENT
	this.listeners = make([]unshrink.Listener, 0)
	return this, nil
}

// AddListener adds an event listener to this decoder.
// Returns true if the listener has been added.
func (this *Decoder) AddListener(bl unshrink.Listener) bool {
	if bl == nil {
		return false
	}

	this.listeners = append(this.listeners, bl)
	return true
}

// RemoveListener removes an event listener from this decoder.
// Returns true if the listener has been removed.
func (this *Decoder) RemoveListener(bl unshrink.Listener) bool {
	for i, e := range this.listeners {
		if e == bl {
			this.listeners = append(this.listeners[:i], this.listeners[i+1:]...)
			return true
		}
	}

	return false
}

// Decode runs the decoder until 'outputSize' bytes have been written.
// Returns the number of bytes written and an *unshrink.Error on failure.
// Bytes written before a failure are left in the output stream.
func (this *Decoder) Decode() (int64, error) {
	if this.used == true {
		return 0, unshrink.NewError(unshrink.ERR_GENERIC, "Decoder already used")
	}

	this.used = true
	this.notify(unshrink.EVT_DECOMPRESSION_START)

	if err := this.run(); err != nil {
		return this.written, err
	}

	this.notify(unshrink.EVT_DECOMPRESSION_END)
	return this.written, nil
}

func (this *Decoder) run() error {
	for this.written < this.outputSize {
		code, err := this.readCode()

		if err != nil {
			return err
		}

		if code == CONTROL_CODE {
			err = this.processControlCode()
		} else {
			err = this.processDataCode(code)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (this *Decoder) readCode() (int, error) {
	code, err := this.ibs.ReadBits(this.codeWidth)

	if err == nil {
		return int(code), nil
	}

	if errors.Is(err, unshrink.ErrBitStreamExhausted) {
		msg := fmt.Sprintf("Not enough compressed data (%d of %d bytes decoded)", this.written, this.outputSize)
		return 0, unshrink.WrapError(err, unshrink.ERR_INSUFFICIENT_CDATA, msg)
	}

	return 0, unshrink.WrapError(err, unshrink.ERR_READ_FAILED, "Failed to read compressed data")
}

func (this *Decoder) processControlCode() error {
	ctrl, err := this.readCode()

	if err != nil {
		return err
	}

	if ctrl == _CTRL_GROW_WIDTH && this.codeWidth < MAX_CODE_WIDTH {
		this.codeWidth++
		this.notify(unshrink.EVT_CODE_WIDTH)
		return nil
	}

	if ctrl == _CTRL_PARTIAL_CLEAR {
		this.table.PartialClear()
		this.notify(unshrink.EVT_PARTIAL_CLEAR)
		return nil
	}

	return unshrink.NewErrorf(unshrink.ERR_BAD_CDATA, "Invalid control code %d (code width %d)", ctrl, this.codeWidth)
}

func (this *Decoder) processDataCode(code int) error {
	if code < 0 || code >= TABLE_SIZE {
		return unshrink.NewErrorf(unshrink.ERR_GENERIC, "Invalid code: %d", code)
	}

	if this.hasPrevious == false {
		if this.table.IsKnown(code) == false {
			return unshrink.NewErrorf(unshrink.ERR_BAD_CDATA, "Invalid first code: %d", code)
		}

		first, err := this.emit(code)

		if err != nil {
			return err
		}

		this.previous = code
		this.firstByte = first
		this.hasPrevious = true
		return nil
	}

	var first byte

	if this.table.IsKnown(code) == true {
		var err error

		if first, err = this.emit(code); err != nil {
			return err
		}

		if _, err = this.table.AddEntry(this.previous, first); err != nil {
			return err
		}
	} else {
		// The encoder used the entry it was about to create:
		// previous string + first byte of previous string.
		slot, err := this.table.AddEntry(this.previous, this.firstByte)

		if err != nil {
			return err
		}

		if first, err = this.emit(slot); err != nil {
			return err
		}
	}

	this.previous = code
	this.firstByte = first
	return nil
}

// Write the string of 'code' to the output and return its first byte.
// The chain is walked from the last byte back to the root, then reversed.
func (this *Decoder) emit(code int) (byte, error) {
	if code < 0 || code >= TABLE_SIZE {
		return 0, unshrink.NewErrorf(unshrink.ERR_GENERIC, "Invalid code: %d", code)
	}

	entries := this.table.entries
	this.buffer = this.buffer[:0]
	cur := code

	for {
		e := entries[cur]
		this.buffer = append(this.buffer, e.value)

		if len(this.buffer) >= TABLE_SIZE {
			return 0, unshrink.NewErrorf(unshrink.ERR_GENERIC, "Code chain too long for code %d", code)
		}

		if cur < 256 {
			break
		}

		if e.parent == _NO_PARENT {
			return 0, unshrink.NewErrorf(unshrink.ERR_GENERIC, "Broken code chain for code %d at %d", code, cur)
		}

		cur = int(e.parent)
	}

	buf := this.buffer
	first := buf[len(buf)-1]

	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}

	// Never write past the expected size
	if remaining := this.outputSize - this.written; int64(len(buf)) > remaining {
		buf = buf[0:remaining]
	}

	n, err := this.os.Write(buf)
	this.written += int64(n)

	if err != nil {
		return 0, unshrink.WrapError(err, unshrink.ERR_WRITE_FAILED, "Failed to write decoded data")
	}

	if n != len(buf) {
		return 0, unshrink.WrapError(io.ErrShortWrite, unshrink.ERR_WRITE_FAILED, "Failed to write decoded data")
	}

	return first, nil
}

func (this *Decoder) notify(evtType int) {
	if len(this.listeners) == 0 {
		return
	}

	defer func() {
		//lint:ignore SA9003 Ignore panics in listeners
		// nolint:staticcheck
		if r := recover(); r != nil {
		}
	}()

	evt := unshrink.NewEvent(evtType, this.id, this.written, this.ibs.Read(), this.codeWidth, time.Now())

	for _, bl := range this.listeners {
		bl.ProcessEvent(evt)
	}
}

// CodeWidth returns the current code width in bits
func (this *Decoder) CodeWidth() uint {
	return this.codeWidth
}

// Written returns the number of bytes written to the output so far
func (this *Decoder) Written() int64 {
	return this.written
}
