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

// Package unshrink defines the top level interfaces, error codes and events
// used by the ZIP "Shrink" (method 1) decompressor.
//
// The implementation of these interfaces is available in sub-folders:
// bitstream provides the LSB-first bit readers, shrink contains the code
// table and the decoder, app contains the command line tool.
package unshrink

const (
	// Decoding errors
	ERR_OK                 = 0
	ERR_GENERIC            = 1
	ERR_BAD_CDATA          = 2
	ERR_ALLOCATION_FAILED  = 3
	ERR_READ_FAILED        = 6
	ERR_WRITE_FAILED       = 7
	ERR_INSUFFICIENT_CDATA = 8

	// Application errors
	ERR_OPEN_FILE      = 10
	ERR_READ_FILE      = 11
	ERR_WRITE_FILE     = 12
	ERR_OVERWRITE_FILE = 13
	ERR_CREATE_FILE    = 14
	ERR_MISSING_PARAM  = 17
	ERR_INVALID_PARAM  = 18
	ERR_CRC_CHECK      = 19
	ERR_UNKNOWN        = 127
)

// InputBitStream is a bitstream reader
type InputBitStream interface {
	// ReadBits reads 'length' (in [1..32]) bits from the bitstream.
	// Returns the bits read as an uint64, least significant bit first.
	// Returns ErrBitStreamExhausted if the input ends before 'length' bits
	// are available.
	ReadBits(length uint) (uint64, error)

	// Close makes the bitstream unavailable for further reads.
	Close() error

	// Read returns the number of bits read
	Read() uint64
}

// OutputBitStream is a bitstream writer
type OutputBitStream interface {
	// WriteBits writes the 'length' (in [1..32]) least significant bits of
	// 'bits' to the bitstream, least significant bit first.
	WriteBits(bits uint64, length uint) error

	// Close flushes the pending bits (padded with zeros) and makes the
	// bitstream unavailable for further writes.
	Close() error

	// Written returns the number of bits written
	Written() uint64
}

// Listener is an interface implemented by event processors
type Listener interface {
	// ProcessEvent is the method called whenever a Listener receives an event.
	ProcessEvent(evt *Event)
}
