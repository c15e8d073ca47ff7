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

package unshrink

import (
	"fmt"
	"time"
)

const (
	EVT_DECOMPRESSION_START = 0 // Decoding of a stream starts
	EVT_CODE_WIDTH          = 1 // Code width increased
	EVT_PARTIAL_CLEAR       = 2 // Dictionary leaves released
	EVT_DECOMPRESSION_END   = 3 // Decoding of a stream ends
	EVT_ENTRY_START         = 4 // Extraction of an entry starts
	EVT_ENTRY_END           = 5 // Extraction of an entry ends
	EVT_ENTRY_FAILED        = 6 // Extraction of an entry failed

	EVT_HASH_NONE   = 0
	EVT_HASH_32BITS = 32
	EVT_HASH_64BITS = 64
)

// Event a decompression event
type Event struct {
	eventType int
	id        int
	size      int64
	read      uint64
	width     uint
	hash      uint64
	hashType  int
	eventTime time.Time
	msg       string
}

// NewEventFromString creates a new Event instance that wraps a message
func NewEventFromString(evtType, id int, msg string, evtTime time.Time) *Event {
	if evtTime.IsZero() {
		evtTime = time.Now()
	}

	return &Event{eventType: evtType, id: id, size: 0, msg: msg, eventTime: evtTime}
}

// NewEvent creates a new Event instance with decoder progress info:
// output bytes written so far, bits read so far and current code width.
func NewEvent(evtType, id int, size int64, read uint64, width uint, evtTime time.Time) *Event {
	if evtTime.IsZero() {
		evtTime = time.Now()
	}

	return &Event{eventType: evtType, id: id, size: size, read: read, width: width,
		eventTime: evtTime}
}

// NewHashEvent creates a new Event instance with size and hash info
// Returns nil if the hashType is not in { EVT_HASH_NONE, EVT_HASH_32BITS, EVT_HASH_64BITS }
func NewHashEvent(evtType, id int, size int64, hash uint64, hashType int, evtTime time.Time) *Event {
	if evtTime.IsZero() {
		evtTime = time.Now()
	}

	if hashType != EVT_HASH_NONE && hashType != EVT_HASH_32BITS && hashType != EVT_HASH_64BITS {
		return nil
	}

	return &Event{eventType: evtType, id: id, size: size, hash: hash,
		hashType: hashType, eventTime: evtTime}
}

// Type returns the type info
func (this *Event) Type() int {
	return this.eventType
}

// ID returns the id info
func (this *Event) ID() int {
	return this.id
}

// Time returns the time info
func (this *Event) Time() time.Time {
	return this.eventTime
}

// Size returns the number of output bytes
func (this *Event) Size() int64 {
	return this.size
}

// Read returns the number of bits read
func (this *Event) Read() uint64 {
	return this.read
}

// Width returns the code width
func (this *Event) Width() uint {
	return this.width
}

// Hash returns the hash info
func (this *Event) Hash() uint64 {
	return this.hash
}

// HashType returns EVT_HASH_NONE, EVT_HASH_32BITS or EVT_HASH_64BITS
func (this *Event) HashType() int {
	return this.hashType
}

// Message returns the wrapped message (may be empty)
func (this *Event) Message() string {
	return this.msg
}

// String returns a string representation of this event.
// Events wrapping a message return the message,
// other events are rendered as a JSON-like record.
func (this *Event) String() string {
	if len(this.msg) > 0 {
		return this.msg
	}

	hash := ""
	id := ""

	if this.hashType == EVT_HASH_32BITS {
		hash = fmt.Sprintf(", \"hash\": %08x", this.hash)
	} else if this.hashType == EVT_HASH_64BITS {
		hash = fmt.Sprintf(", \"hash\": %016x", this.hash)
	}

	if this.id >= 0 {
		id = fmt.Sprintf(", \"id\": %d", this.id)
	}

	return fmt.Sprintf("{ \"type\":\"%s\"%s, \"size\":%d, \"read\":%d, \"width\":%d, \"time\":%d%s }",
		EventTypeName(this.eventType), id, this.size, this.read, this.width,
		this.eventTime.UnixNano()/1000000, hash)
}

// EventTypeName returns the name of an event type
func EventTypeName(evtType int) string {
	switch evtType {
	case EVT_DECOMPRESSION_START:
		return "DECOMPRESSION_START"

	case EVT_CODE_WIDTH:
		return "CODE_WIDTH"

	case EVT_PARTIAL_CLEAR:
		return "PARTIAL_CLEAR"

	case EVT_DECOMPRESSION_END:
		return "DECOMPRESSION_END"

	case EVT_ENTRY_START:
		return "ENTRY_START"

	case EVT_ENTRY_END:
		return "ENTRY_END"

	case EVT_ENTRY_FAILED:
		return "ENTRY_FAILED"
	}

	return "UNKNOWN"
}
