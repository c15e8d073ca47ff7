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

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	unshrink "github.com/flanglet/unshrink-go"
)

// An implementation of Listener to log entry and decoder events (verbose
// option of the EntryDecompressor)

// InfoPrinter turns events into log records
type InfoPrinter struct {
	log    *logrus.Entry
	level  uint
	starts map[int]time.Time
	lock   sync.Mutex
}

// NewInfoPrinter creates a new instance of InfoPrinter. Decoder internals
// (code width changes, partial clears) are only reported from level 3.
func NewInfoPrinter(infoLevel uint, logger *logrus.Logger) (*InfoPrinter, error) {
	if logger == nil {
		return nil, errors.New("invalid null logger parameter")
	}

	this := &InfoPrinter{}
	this.level = infoLevel
	this.log = logger.WithField("pkg", "info")
	this.starts = make(map[int]time.Time)
	return this, nil
}

// ProcessEvent receives an event and writes a log record
func (this *InfoPrinter) ProcessEvent(evt *unshrink.Event) {
	if evt == nil {
		return
	}

	switch evt.Type() {
	case unshrink.EVT_ENTRY_START:
		this.lock.Lock()
		this.starts[evt.ID()] = evt.Time()
		this.lock.Unlock()

		if this.level >= 2 {
			this.log.WithFields(logrus.Fields{"id": evt.ID(), "size": evt.Size()}).Info("Decompressing entry")
		}

	case unshrink.EVT_ENTRY_END:
		this.lock.Lock()
		start, found := this.starts[evt.ID()]
		delete(this.starts, evt.ID())
		this.lock.Unlock()

		fields := logrus.Fields{"id": evt.ID(), "size": evt.Size()}

		if found == true {
			fields["elapsed"] = evt.Time().Sub(start).Round(time.Microsecond).String()
		}

		switch evt.HashType() {
		case unshrink.EVT_HASH_32BITS:
			fields["crc32"] = fmt.Sprintf("%08x", evt.Hash())
		case unshrink.EVT_HASH_64BITS:
			fields["xxhash64"] = fmt.Sprintf("%016x", evt.Hash())
		}

		this.log.WithFields(fields).Info("Entry decompressed")

	case unshrink.EVT_ENTRY_FAILED:
		this.lock.Lock()
		delete(this.starts, evt.ID())
		this.lock.Unlock()
		this.log.WithField("id", evt.ID()).Warn(evt.Message())

	case unshrink.EVT_CODE_WIDTH, unshrink.EVT_PARTIAL_CLEAR:
		if this.level >= 3 {
			this.log.WithFields(logrus.Fields{
				"id":      evt.ID(),
				"written": evt.Size(),
				"bits":    evt.Read(),
				"width":   evt.Width(),
			}).Debug(unshrink.EventTypeName(evt.Type()))
		}

	default:
		if this.level >= 3 {
			this.log.Debug(evt.String())
		}
	}
}
