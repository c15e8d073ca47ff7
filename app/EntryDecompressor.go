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
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	unshrink "github.com/flanglet/unshrink-go"
	"github.com/flanglet/unshrink-go/bitstream"
	"github.com/flanglet/unshrink-go/config"
	"github.com/flanglet/unshrink-go/hash"
	"github.com/flanglet/unshrink-go/internal"
	"github.com/flanglet/unshrink-go/shrink"
)

const (
	_DECOMP_INPUT_BUFFER_SIZE  = 65536
	_DECOMP_OUTPUT_BUFFER_SIZE = 65536
	_DECOMP_MAX_CONCURRENCY    = config.MaxJobs
)

// EntryDecompressor decodes a list of Shrink entries, possibly concurrently.
// A failed entry does not stop the batch.
type EntryDecompressor struct {
	entries     []*config.Entry
	jobs        int
	overwrite   bool
	checksum    bool
	stdout      io.Writer
	traceWriter io.Writer
	listeners   []unshrink.Listener
	log         *logrus.Entry
	results     []entryResult
}

type entryResult struct {
	code    int
	written int64
	crc     uint32
	hash    uint64
	err     error
}

// NewEntryDecompressor creates a new instance of EntryDecompressor from
// a validated configuration.
func NewEntryDecompressor(cfg *config.Config) (*EntryDecompressor, error) {
	if cfg == nil {
		return nil, errors.New("Invalid null configuration parameter")
	}

	if len(cfg.Entries) == 0 {
		return nil, errors.New("No entry to decompress")
	}

	for _, e := range cfg.Entries {
		if internal.IsReservedName(e.Output) == true {
			return nil, errors.Errorf("'%s' is a reserved name", e.Output)
		}
	}

	this := &EntryDecompressor{}
	this.entries = cfg.Entries
	this.jobs = min(max(cfg.Jobs, 1), _DECOMP_MAX_CONCURRENCY, len(cfg.Entries))
	this.overwrite = cfg.Overwrite
	this.checksum = cfg.Checksum
	this.stdout = os.Stdout
	this.listeners = make([]unshrink.Listener, 0)
	this.log = logrus.WithField("pkg", "decompressor")
	return this, nil
}

// AddListener adds an event listener to this decompressor.
// Returns true if the listener has been added.
func (this *EntryDecompressor) AddListener(bl unshrink.Listener) bool {
	if bl == nil {
		return false
	}

	this.listeners = append(this.listeners, bl)
	return true
}

// RemoveListener removes an event listener from this decompressor.
// Returns true if the listener has been removed.
func (this *EntryDecompressor) RemoveListener(bl unshrink.Listener) bool {
	for i, e := range this.listeners {
		if e == bl {
			this.listeners = append(this.listeners[:i], this.listeners[i+1:]...)
			return true
		}
	}

	return false
}

// SetTrace dumps every code read to 'w' (nil disables the trace)
func (this *EntryDecompressor) SetTrace(w io.Writer) {
	this.traceWriter = w
}

// SetStdOut replaces the writer used for the STDOUT output name
func (this *EntryDecompressor) SetStdOut(w io.Writer) {
	if w != nil {
		this.stdout = w
	}
}

// Failed returns the number of entries that could not be decoded by the
// last call to Decompress.
func (this *EntryDecompressor) Failed() int {
	n := 0

	for _, r := range this.results {
		if r.code != 0 {
			n++
		}
	}

	return n
}

func entryDecompressWorker(tasks <-chan *entryDecompressTask, results chan<- entryTaskResult) {
	// Pull tasks from channel and run them
	for t := range tasks {
		results <- entryTaskResult{id: t.id, res: t.call()}
	}
}

type entryTaskResult struct {
	id  int
	res entryResult
}

// Decompress decodes all the entries provided at construction. Entries may
// be processed concurrently depending on the number of jobs. Entries written
// to STDOUT are decoded one at a time, in list order, next to the pool.
// Returns the exit code (the code of the first failed entry in list order,
// 0 if all succeeded) and the total number of bytes written.
func (this *EntryDecompressor) Decompress() (int, int64) {
	before := time.Now()
	nbEntries := len(this.entries)
	this.results = make([]entryResult, nbEntries)
	tasks := make(chan *entryDecompressTask, nbEntries)
	stdoutTasks := make(chan *entryDecompressTask, nbEntries)
	results := make(chan entryTaskResult, nbEntries)

	if nbEntries > 1 {
		this.log.Infof("%d entries to decompress using %d job(s)", nbEntries, this.jobs)
	}

	// Files: largest entries first. STDOUT: one after the other in list order.
	order := make([]int, 0, nbEntries)

	for i, e := range this.entries {
		if e.Output == config.StdOut {
			stdoutTasks <- this.newTask(i)
		} else {
			order = append(order, i)
		}
	}

	close(stdoutTasks)

	sort.SliceStable(order, func(i, j int) bool {
		return this.entries[order[i]].Size > this.entries[order[j]].Size
	})

	for _, i := range order {
		tasks <- this.newTask(i)
	}

	close(tasks)

	// Create one worker per job. A worker calls several tasks sequentially.
	for j := 0; j < min(this.jobs, len(order)); j++ {
		go entryDecompressWorker(tasks, results)
	}

	if len(order) < nbEntries {
		go entryDecompressWorker(stdoutTasks, results)
	}

	// Wait for all task results
	for i := 0; i < nbEntries; i++ {
		r := <-results
		this.results[r.id] = r.res
	}

	close(results)
	code := 0
	written := int64(0)

	for _, r := range this.results {
		written += r.written

		if code == 0 && r.code != 0 {
			code = r.code
		}
	}

	if nbEntries > 1 {
		this.log.WithFields(logrus.Fields{
			"failed":  this.Failed(),
			"written": written,
			"elapsed": time.Since(before).Round(time.Millisecond).String(),
		}).Info("Batch complete")
	}

	return code, written
}

func (this *EntryDecompressor) newTask(i int) *entryDecompressTask {
	return &entryDecompressTask{
		id:          i,
		entry:       this.entries[i],
		overwrite:   this.overwrite,
		checksum:    this.checksum,
		stdout:      this.stdout,
		traceWriter: this.traceWriter,
		listeners:   this.listeners,
		log:         this.log.WithField("entry", this.entries[i].Name),
	}
}

func notifyEDListeners(listeners []unshrink.Listener, evt *unshrink.Event) {
	defer func() {
		//lint:ignore SA9003 Ignore panics in listeners
		// nolint:staticcheck
		if r := recover(); r != nil {
		}
	}()

	for _, bl := range listeners {
		bl.ProcessEvent(evt)
	}
}

type entryDecompressTask struct {
	id          int
	entry       *config.Entry
	overwrite   bool
	checksum    bool
	stdout      io.Writer
	traceWriter io.Writer
	listeners   []unshrink.Listener
	log         *logrus.Entry
}

func (this *entryDecompressTask) call() entryResult {
	e := this.entry

	if len(this.listeners) > 0 {
		evt := unshrink.NewEvent(unshrink.EVT_ENTRY_START, this.id, e.Size, 0, 0, time.Now())
		notifyEDListeners(this.listeners, evt)
	}

	res := this.decode()

	if res.code != 0 {
		this.log.WithField("code", res.code).Errorf("Decompression failed: %v", res.err)

		if len(this.listeners) > 0 {
			msg := fmt.Sprintf("Entry %s failed: %v", e.Name, res.err)
			evt := unshrink.NewEventFromString(unshrink.EVT_ENTRY_FAILED, this.id, msg, time.Now())
			notifyEDListeners(this.listeners, evt)
		}

		return res
	}

	if len(this.listeners) > 0 {
		var evt *unshrink.Event

		if this.checksum == true {
			evt = unshrink.NewHashEvent(unshrink.EVT_ENTRY_END, this.id, res.written, res.hash, unshrink.EVT_HASH_64BITS, time.Now())
		} else {
			evt = unshrink.NewHashEvent(unshrink.EVT_ENTRY_END, this.id, res.written, uint64(res.crc), unshrink.EVT_HASH_32BITS, time.Now())
		}

		notifyEDListeners(this.listeners, evt)
	}

	return res
}

func (this *entryDecompressTask) decode() entryResult {
	e := this.entry
	this.log.Debugf("Input '%s' [%d, %d), output '%s', size %d", e.Input, e.Offset, e.End, e.Output, e.Size)

	fd, err := internal.StatInput(e.Input)

	if err != nil {
		return entryResult{code: unshrink.ERR_OPEN_FILE, err: errors.Wrap(err, "cannot access input")}
	}

	end := e.End

	if end == 0 {
		end = fd.Size
	}

	if e.Offset > fd.Size || end < e.Offset {
		err = errors.Errorf("invalid compressed data range [%d, %d) for a file of %d bytes", e.Offset, end, fd.Size)
		return entryResult{code: unshrink.ERR_INVALID_PARAM, err: err}
	}

	input, err := os.Open(e.Input)

	if err != nil {
		return entryResult{code: unshrink.ERR_OPEN_FILE, err: errors.Wrap(err, "cannot open input")}
	}

	defer input.Close()
	output, closer, code, err := this.createOutput()

	if err != nil {
		return entryResult{code: code, err: err}
	}

	bw := bufio.NewWriterSize(output, _DECOMP_OUTPUT_BUFFER_SIZE)
	crc := crc32.NewIEEE()
	xxh := hash.NewXXHash64(0)
	var dst io.Writer

	if this.checksum == true {
		dst = io.MultiWriter(bw, crc, xxh)
	} else {
		dst = io.MultiWriter(bw, crc)
	}

	written, err := this.decodeStream(input, e.Offset, end, dst)

	// Flush what was decoded even on failure
	if ferr := bw.Flush(); ferr != nil && err == nil {
		err = unshrink.WrapError(ferr, unshrink.ERR_WRITE_FILE, "Failed to write output")
	}

	if closer != nil {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = unshrink.WrapError(cerr, unshrink.ERR_WRITE_FILE, "Failed to close output")
		}
	}

	res := entryResult{written: written, crc: crc.Sum32(), hash: xxh.Sum64(), err: err}

	if err != nil {
		res.code = unshrink.ErrorCode(err)
		return res
	}

	if e.HasCRC == true && res.crc != e.CRC32 {
		res.code = unshrink.ERR_CRC_CHECK
		res.err = errors.Errorf("CRC-32 mismatch: expected %08x, got %08x", e.CRC32, res.crc)
		return res
	}

	this.log.WithFields(logrus.Fields{
		"read":    end - e.Offset,
		"written": written,
	}).Debug("Entry decoded")

	return res
}

func (this *entryDecompressTask) decodeStream(input io.ReaderAt, start, end int64, dst io.Writer) (int64, error) {
	sr := io.NewSectionReader(input, start, end-start)
	var ibs unshrink.InputBitStream
	lsb, err := bitstream.NewLSBInputBitStream(bufio.NewReaderSize(sr, _DECOMP_INPUT_BUFFER_SIZE))

	if err != nil {
		return 0, unshrink.WrapError(err, unshrink.ERR_READ_FILE, "Cannot create input bitstream")
	}

	ibs = lsb

	if this.traceWriter != nil {
		if ibs, err = bitstream.NewDebugInputBitStream(lsb, this.traceWriter); err != nil {
			return 0, unshrink.WrapError(err, unshrink.ERR_UNKNOWN, "Cannot create trace bitstream")
		}
	}

	defer ibs.Close()
	ctx := map[string]any{
		"outputSize": this.entry.Size,
		"entryId":    this.id,
	}

	d, err := shrink.NewDecoderWithCtx(ibs, dst, &ctx)

	if err != nil {
		return 0, unshrink.WrapError(err, unshrink.ERR_INVALID_PARAM, "Cannot create decoder")
	}

	for _, bl := range this.listeners {
		d.AddListener(bl)
	}

	return d.Decode()
}

// Returns the output writer, its closer (nil for STDOUT), an error code
// and an error
func (this *entryDecompressTask) createOutput() (io.Writer, io.Closer, int, error) {
	name := this.entry.Output

	if name == config.StdOut {
		return this.stdout, nil, 0, nil
	}

	if internal.SameFile(this.entry.Input, name) == true {
		return nil, nil, unshrink.ERR_CREATE_FILE, errors.New("the input and output files must be different")
	}

	if _, err := os.Stat(name); err == nil && this.overwrite == false {
		return nil, nil, unshrink.ERR_OVERWRITE_FILE,
			errors.Errorf("file '%s' exists and the 'force' command line option has not been provided", name)
	}

	output, err := os.Create(name)

	if err != nil {
		// Attempt to create the full folder hierarchy to file
		if err = os.MkdirAll(filepath.Dir(name), os.ModePerm); err == nil {
			output, err = os.Create(name)
		}

		if err != nil {
			return nil, nil, unshrink.ERR_CREATE_FILE, errors.Wrapf(err, "cannot open output file '%s' for writing", name)
		}
	}

	return output, output, 0, nil
}
