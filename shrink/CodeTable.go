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
	unshrink "github.com/flanglet/unshrink-go"
)

const (
	INITIAL_CODE_WIDTH = 9
	MAX_CODE_WIDTH     = 13
	TABLE_SIZE         = 1 << MAX_CODE_WIDTH // 8192 codes
	CONTROL_CODE       = 256                 // followed by a sub-opcode
	FIRST_FREE_CODE    = 257                 // first dynamic entry
	NO_PARENT          = -1                  // API form of "no parent"

	_NO_PARENT = uint16(0xFFFF) // stored form of NO_PARENT (codeEntry.parent)
)

type codeEntry struct {
	parent uint16 // previous entry in the chain or _NO_PARENT
	value  byte
}

// CodeTable is the Shrink dictionary: a flat array of entries where each
// dynamic entry is (string of parent) + value. Entries 0 to 255 are the
// fixed single byte roots, entry 256 is never used, entries 257+ are free
// when they have no parent.
type CodeTable struct {
	entries     []codeEntry
	hasChild    []bool // scratch marks for PartialClear
	searchStart int
	lastAdded   int
}

// NewCodeTable creates a new instance of CodeTable with all dynamic entries free
func NewCodeTable() *CodeTable {
	this := &CodeTable{}
	this.entries = make([]codeEntry, TABLE_SIZE)
	this.hasChild = make([]bool, TABLE_SIZE)
	this.Reset()
	return this
}

// Reset restores the initial state: roots set, all dynamic entries free
func (this *CodeTable) Reset() {
	for i := range this.hasChild {
		this.hasChild[i] = false
	}

	for i := 0; i < 256; i++ {
		this.entries[i] = codeEntry{parent: _NO_PARENT, value: byte(i)}
	}

	for i := 256; i < TABLE_SIZE; i++ {
		this.entries[i] = codeEntry{parent: _NO_PARENT}
	}

	this.searchStart = FIRST_FREE_CODE
	this.lastAdded = NO_PARENT
}

// IsKnown returns true if the code is a root or a used dynamic entry
func (this *CodeTable) IsKnown(code int) bool {
	if code < 0 || code >= TABLE_SIZE || code == CONTROL_CODE {
		return false
	}

	return code < 256 || this.entries[code].parent != _NO_PARENT
}

// Entry returns the parent (NO_PARENT for roots and free entries) and the
// value of an entry. Returns false if the code is out of range.
func (this *CodeTable) Entry(code int) (int, byte, bool) {
	if code < 0 || code >= TABLE_SIZE {
		return NO_PARENT, 0, false
	}

	e := this.entries[code]

	if e.parent == _NO_PARENT {
		return NO_PARENT, e.value, true
	}

	return int(e.parent), e.value, true
}

// FindFreeSlot returns the first free dynamic entry at or after the search
// start. Returns an ERR_BAD_CDATA error if the table is full: a valid stream
// always clears the table before exhausting it.
func (this *CodeTable) FindFreeSlot() (int, error) {
	for k := this.searchStart; k < TABLE_SIZE; k++ {
		if this.entries[k].parent == _NO_PARENT {
			return k, nil
		}
	}

	return NO_PARENT, unshrink.NewError(unshrink.ERR_BAD_CDATA, "Code table full")
}

// AddEntry stores (parent, value) in the first free slot and returns it
func (this *CodeTable) AddEntry(parent int, value byte) (int, error) {
	if parent < 0 || parent >= TABLE_SIZE || parent == CONTROL_CODE {
		return NO_PARENT, unshrink.NewErrorf(unshrink.ERR_GENERIC, "Invalid parent code: %d", parent)
	}

	slot, err := this.FindFreeSlot()

	if err != nil {
		return NO_PARENT, err
	}

	this.entries[slot] = codeEntry{parent: uint16(parent), value: value}
	this.lastAdded = slot
	this.searchStart = slot + 1
	return slot, nil
}

// PartialClear releases every dynamic entry that is not the parent of
// another dynamic entry. Entries still used as a prefix survive so that
// no chain is left dangling. Returns the number of entries released.
func (this *CodeTable) PartialClear() int {
	for i := FIRST_FREE_CODE; i < TABLE_SIZE; i++ {
		if p := this.entries[i].parent; p != _NO_PARENT {
			this.hasChild[p] = true
		}
	}

	freed := 0

	for i := FIRST_FREE_CODE; i < TABLE_SIZE; i++ {
		if this.hasChild[i] == true {
			this.hasChild[i] = false
			continue
		}

		if this.entries[i].parent != _NO_PARENT {
			freed++
		}

		this.entries[i] = codeEntry{parent: _NO_PARENT}
	}

	// Roots may have been marked in the first pass
	for i := 0; i < 256; i++ {
		this.hasChild[i] = false
	}

	this.searchStart = FIRST_FREE_CODE
	return freed
}

// FreeCount returns the number of free entries that can still be allocated
// before the table is full (from the search start).
func (this *CodeTable) FreeCount() int {
	n := 0

	for k := this.searchStart; k < TABLE_SIZE; k++ {
		if this.entries[k].parent == _NO_PARENT {
			n++
		}
	}

	return n
}

// LastAdded returns the slot of the last entry added (NO_PARENT if none)
func (this *CodeTable) LastAdded() int {
	return this.lastAdded
}

// SearchStart returns the slot where the next free slot search starts
func (this *CodeTable) SearchStart() int {
	return this.searchStart
}
