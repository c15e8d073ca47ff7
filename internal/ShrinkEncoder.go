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
	"github.com/pkg/errors"

	unshrink "github.com/flanglet/unshrink-go"
	"github.com/flanglet/unshrink-go/bitstream"
	"github.com/flanglet/unshrink-go/shrink"
)

// ShrinkEncoder produces Shrink (ZIP method 1) streams.
// It keeps an exact copy of the decoder dictionary: the decoder only adds
// the entry (previous code, first byte) when it reads the next data code,
// so the encoder predicts the slot of that pending entry and may emit it
// before it exists (the KwKwK case).
// When the dictionary is almost full, a literal is emitted (so that the
// previous code is a root) followed by a partial clear.
type ShrinkEncoder struct {
	obs            unshrink.OutputBitStream
	table          *shrink.CodeTable
	children       map[int]int // parent<<8 | value -> code
	free           int         // free slots from the table search start
	codeWidth      uint
	hasPrevious    bool
	previous       int
	clearThreshold int
	clears         int
	growths        int
}

// NewShrinkEncoder creates a new instance of ShrinkEncoder writing codes
// to the provided bitstream
func NewShrinkEncoder(obs unshrink.OutputBitStream) (*ShrinkEncoder, error) {
	if obs == nil {
		return nil, errors.New("Invalid null output bitstream parameter")
	}

	this := &ShrinkEncoder{}
	this.obs = obs
	this.table = shrink.NewCodeTable()
	this.children = make(map[int]int)
	this.free = this.table.FreeCount()
	this.codeWidth = shrink.INITIAL_CODE_WIDTH
	this.previous = shrink.NO_PARENT
	this.clearThreshold = 1
	return this, nil
}

// SetClearThreshold makes the encoder clear the dictionary as soon as no
// more than 'threshold' free entries remain (at least 1).
func (this *ShrinkEncoder) SetClearThreshold(threshold int) error {
	if threshold < 1 || threshold >= shrink.TABLE_SIZE-shrink.FIRST_FREE_CODE {
		return errors.Errorf("Invalid clear threshold: %d", threshold)
	}

	this.clearThreshold = threshold
	return nil
}

// Encode appends the codes for 'block' to the stream. Several calls
// produce one continuous stream.
func (this *ShrinkEncoder) Encode(block []byte) error {
	for i := 0; i < len(block); {
		forceLiteral := this.hasPrevious == true && this.free <= this.clearThreshold
		code, length := int(block[i]), 1

		if forceLiteral == false {
			code, length = this.longestMatch(block[i:])
		}

		if err := this.emit(code, block[i]); err != nil {
			return err
		}

		if forceLiteral == true {
			if err := this.partialClear(); err != nil {
				return err
			}
		}

		i += length
	}

	return nil
}

func (this *ShrinkEncoder) longestMatch(block []byte) (int, int) {
	pending := shrink.NO_PARENT

	if this.hasPrevious == true {
		pending, _ = this.table.FindFreeSlot()
	}

	code, n := int(block[0]), 1

	for n < len(block) {
		if next, found := this.children[code<<8|int(block[n])]; found == true {
			code = next
			n++
			continue
		}

		// Previous string followed by its own first byte: the entry
		// the decoder is about to create.
		if pending != shrink.NO_PARENT && code == this.previous && block[n] == block[0] {
			code = pending
			n++
		}

		break
	}

	return code, n
}

func (this *ShrinkEncoder) emit(code int, first byte) error {
	for code >= 1<<this.codeWidth {
		if err := this.writeControl(1); err != nil {
			return err
		}

		this.codeWidth++
		this.growths++
	}

	if err := this.obs.WriteBits(uint64(code), this.codeWidth); err != nil {
		return err
	}

	if this.hasPrevious == true {
		slot, err := this.table.AddEntry(this.previous, first)

		if err != nil {
			return errors.Wrap(err, "Encoder dictionary out of sync")
		}

		this.children[this.previous<<8|int(first)] = slot
		this.free--
	}

	this.previous = code
	this.hasPrevious = true
	return nil
}

func (this *ShrinkEncoder) partialClear() error {
	if err := this.writeControl(2); err != nil {
		return err
	}

	this.table.PartialClear()
	this.clears++
	this.free = this.table.FreeCount()

	for k := range this.children {
		delete(this.children, k)
	}

	for code := shrink.FIRST_FREE_CODE; code < shrink.TABLE_SIZE; code++ {
		if parent, value, _ := this.table.Entry(code); parent != shrink.NO_PARENT {
			this.children[parent<<8|int(value)] = code
		}
	}

	return nil
}

func (this *ShrinkEncoder) writeControl(ctrl int) error {
	if err := this.obs.WriteBits(shrink.CONTROL_CODE, this.codeWidth); err != nil {
		return err
	}

	return this.obs.WriteBits(uint64(ctrl), this.codeWidth)
}

// Close flushes the underlying bitstream
func (this *ShrinkEncoder) Close() error {
	return this.obs.Close()
}

// Clears returns the number of partial clears emitted
func (this *ShrinkEncoder) Clears() int {
	return this.clears
}

// Growths returns the number of code width increases emitted
func (this *ShrinkEncoder) Growths() int {
	return this.growths
}

// CodeWidth returns the current code width
func (this *ShrinkEncoder) CodeWidth() uint {
	return this.codeWidth
}

// Shrink encodes 'block' into a new Shrink stream. A positive clear
// threshold replaces the default one (see SetClearThreshold).
func Shrink(block []byte, clearThreshold int) ([]byte, error) {
	bs := NewBufferStream()
	obs, err := bitstream.NewLSBOutputBitStream(bs, 65536)

	if err != nil {
		return nil, err
	}

	enc, err := NewShrinkEncoder(obs)

	if err != nil {
		return nil, err
	}

	if clearThreshold > 0 {
		if err = enc.SetClearThreshold(clearThreshold); err != nil {
			return nil, err
		}
	}

	if err = enc.Encode(block); err != nil {
		return nil, err
	}

	if err = enc.Close(); err != nil {
		return nil, err
	}

	return bs.Bytes(), nil
}
