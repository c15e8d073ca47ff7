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
	"bytes"
	"hash/crc32"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	unshrink "github.com/flanglet/unshrink-go"
	"github.com/flanglet/unshrink-go/config"
	"github.com/flanglet/unshrink-go/hash"
	"github.com/flanglet/unshrink-go/internal"
)

type eventRecorder struct {
	lock   sync.Mutex
	events []*unshrink.Event
}

func (this *eventRecorder) ProcessEvent(evt *unshrink.Event) {
	this.lock.Lock()
	this.events = append(this.events, evt)
	this.lock.Unlock()
}

func (this *eventRecorder) count(evtType int) int {
	this.lock.Lock()
	defer this.lock.Unlock()
	n := 0

	for _, evt := range this.events {
		if evt.Type() == evtType {
			n++
		}
	}

	return n
}

func (this *eventRecorder) last(evtType int) *unshrink.Event {
	this.lock.Lock()
	defer this.lock.Unlock()

	for i := len(this.events) - 1; i >= 0; i-- {
		if this.events[i].Type() == evtType {
			return this.events[i]
		}
	}

	return nil
}

func payload(seed int64, size, alphabet int) []byte {
	rnd := rand.New(rand.NewSource(seed))
	block := make([]byte, size)

	for i := range block {
		block[i] = byte('a' + rnd.Intn(alphabet))
	}

	return block
}

// Writes a fake archive (header then compressed streams back to back) and
// returns one entry per payload
func writeArchive(t *testing.T, dir string, payloads ...[]byte) []*config.Entry {
	t.Helper()
	archive := []byte("PK\x03\x04 fake local header")
	entries := make([]*config.Entry, len(payloads))
	name := filepath.Join(dir, "archive.zip")

	for i, p := range payloads {
		compressed, err := internal.Shrink(p, 0)
		require.NoError(t, err)
		start := int64(len(archive))
		archive = append(archive, compressed...)

		entries[i] = &config.Entry{
			Name:   "entry" + string(rune('0'+i)),
			Input:  name,
			Output: filepath.Join(dir, "out", "entry"+string(rune('0'+i))+".txt"),
			Offset: start,
			End:    int64(len(archive)),
			Size:   int64(len(p)),
			CRC32:  crc32.ChecksumIEEE(p),
			HasCRC: true,
		}
	}

	require.NoError(t, os.WriteFile(name, archive, 0o644))
	return entries
}

func TestDecompressEntries(t *testing.T) {
	dir := t.TempDir()
	payloads := [][]byte{payload(1, 50000, 4), payload(2, 10, 2), payload(3, 200000, 26), {}}
	entries := writeArchive(t, dir, payloads...)
	entries[3].HasCRC = false

	ed, err := NewEntryDecompressor(&config.Config{Entries: entries, Jobs: 3})
	require.NoError(t, err)
	rec := &eventRecorder{}
	ed.AddListener(rec)

	code, written := ed.Decompress()
	assert.Equal(t, 0, code)
	assert.Equal(t, 0, ed.Failed())
	assert.Equal(t, int64(250010), written)

	for i, p := range payloads {
		data, err := os.ReadFile(entries[i].Output)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(p, data), "entry %d", i)
	}

	assert.Equal(t, 4, rec.count(unshrink.EVT_ENTRY_START))
	assert.Equal(t, 4, rec.count(unshrink.EVT_ENTRY_END))
	assert.Equal(t, 4, rec.count(unshrink.EVT_DECOMPRESSION_START))
	assert.Equal(t, 4, rec.count(unshrink.EVT_DECOMPRESSION_END))
	assert.Equal(t, 0, rec.count(unshrink.EVT_ENTRY_FAILED))
	assert.Positive(t, rec.count(unshrink.EVT_CODE_WIDTH))

	evt := rec.last(unshrink.EVT_ENTRY_END)
	assert.Equal(t, unshrink.EVT_HASH_32BITS, evt.HashType())
	assert.Equal(t, uint64(crc32.ChecksumIEEE(payloads[evt.ID()])), evt.Hash())
}

func TestDecompressFailedEntriesDoNotStopBatch(t *testing.T) {
	dir := t.TempDir()
	payloads := [][]byte{payload(4, 1000, 3), payload(5, 2000, 3), payload(6, 3000, 3)}
	entries := writeArchive(t, dir, payloads...)
	entries[0].CRC32 ^= 1
	entries[1].Size += 5
	entries[1].HasCRC = false

	ed, err := NewEntryDecompressor(&config.Config{Entries: entries, Jobs: 2})
	require.NoError(t, err)
	rec := &eventRecorder{}
	ed.AddListener(rec)

	code, _ := ed.Decompress()
	assert.Equal(t, unshrink.ERR_CRC_CHECK, code)
	assert.Equal(t, 2, ed.Failed())
	assert.Equal(t, unshrink.ERR_CRC_CHECK, ed.results[0].code)
	assert.Equal(t, unshrink.ERR_INSUFFICIENT_CDATA, ed.results[1].code)
	assert.Equal(t, 0, ed.results[2].code)
	assert.Equal(t, 2, rec.count(unshrink.EVT_ENTRY_FAILED))
	assert.Equal(t, 1, rec.count(unshrink.EVT_ENTRY_END))

	// Partial output is kept
	data, err := os.ReadFile(entries[1].Output)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payloads[1], data))

	data, err = os.ReadFile(entries[2].Output)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payloads[2], data))
}

func TestDecompressOverwrite(t *testing.T) {
	dir := t.TempDir()
	entries := writeArchive(t, dir, payload(7, 500, 5))
	require.NoError(t, os.MkdirAll(filepath.Dir(entries[0].Output), 0o755))
	require.NoError(t, os.WriteFile(entries[0].Output, []byte("old"), 0o644))

	ed, err := NewEntryDecompressor(&config.Config{Entries: entries, Jobs: 1})
	require.NoError(t, err)
	code, _ := ed.Decompress()
	assert.Equal(t, unshrink.ERR_OVERWRITE_FILE, code)
	data, _ := os.ReadFile(entries[0].Output)
	assert.Equal(t, "old", string(data))

	ed, err = NewEntryDecompressor(&config.Config{Entries: entries, Jobs: 1, Overwrite: true})
	require.NoError(t, err)
	code, written := ed.Decompress()
	assert.Equal(t, 0, code)
	assert.Equal(t, int64(500), written)
}

func TestDecompressStdOutWithChecksum(t *testing.T) {
	dir := t.TempDir()
	p := payload(8, 4096, 7)
	entries := writeArchive(t, dir, p)
	entries[0].Output = config.StdOut

	ed, err := NewEntryDecompressor(&config.Config{Entries: entries, Jobs: 1, Checksum: true})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	ed.SetStdOut(out)
	rec := &eventRecorder{}
	ed.AddListener(rec)

	code, _ := ed.Decompress()
	assert.Equal(t, 0, code)
	assert.True(t, bytes.Equal(p, out.Bytes()))

	evt := rec.last(unshrink.EVT_ENTRY_END)
	require.NotNil(t, evt)
	assert.Equal(t, unshrink.EVT_HASH_64BITS, evt.HashType())
	assert.Equal(t, hash.NewXXHash64(0).Hash(p), evt.Hash())
}

func TestDecompressStdOutEntriesInListOrder(t *testing.T) {
	dir := t.TempDir()
	p0 := payload(12, 300000, 5)
	p1 := payload(13, 100, 3)
	p2 := payload(14, 300000, 9)
	entries := writeArchive(t, dir, p0, p1, p2)
	entries[0].Output = config.StdOut
	entries[2].Output = config.StdOut

	ed, err := NewEntryDecompressor(&config.Config{Entries: entries, Jobs: 2})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	ed.SetStdOut(out)

	code, written := ed.Decompress()
	assert.Equal(t, 0, code)
	assert.Equal(t, int64(600100), written)
	assert.True(t, bytes.Equal(append(append([]byte{}, p0...), p2...), out.Bytes()))

	data, err := os.ReadFile(entries[1].Output)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(p1, data))
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

func TestDecompressStdOutNotComparable(t *testing.T) {
	dir := t.TempDir()
	p := payload(15, 1000, 4)
	entries := writeArchive(t, dir, p)
	entries[0].Output = config.StdOut

	ed, err := NewEntryDecompressor(&config.Config{Entries: entries, Jobs: 1})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	ed.SetStdOut(writerFunc(out.Write))

	var code int
	assert.NotPanics(t, func() { code, _ = ed.Decompress() })
	assert.Equal(t, 0, code)
	assert.True(t, bytes.Equal(p, out.Bytes()))
}

func TestDecompressInputErrors(t *testing.T) {
	dir := t.TempDir()
	entries := writeArchive(t, dir, payload(9, 100, 2), payload(10, 100, 2))
	entries[0].Input = filepath.Join(dir, "missing.zip")
	entries[1].Offset = 1 << 20
	entries[1].End = 0

	ed, err := NewEntryDecompressor(&config.Config{Entries: entries, Jobs: 1})
	require.NoError(t, err)
	code, written := ed.Decompress()
	assert.Equal(t, unshrink.ERR_OPEN_FILE, code)
	assert.Equal(t, int64(0), written)
	assert.Equal(t, unshrink.ERR_INVALID_PARAM, ed.results[1].code)
	assert.Equal(t, 2, ed.Failed())
}

func TestDecompressTrace(t *testing.T) {
	dir := t.TempDir()
	entries := writeArchive(t, dir, []byte("ABABABA"))

	ed, err := NewEntryDecompressor(&config.Config{Entries: entries, Jobs: 1})
	require.NoError(t, err)
	trace := &bytes.Buffer{}
	ed.SetTrace(trace)

	code, _ := ed.Decompress()
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(trace.String()), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "#1 [0] w9 001000001 65", lines[0])
}

func TestNewEntryDecompressorInvalid(t *testing.T) {
	_, err := NewEntryDecompressor(nil)
	assert.Error(t, err)
	_, err = NewEntryDecompressor(&config.Config{})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	p := payload(11, 3000, 4)
	entries := writeArchive(t, dir, p)
	e := entries[0]

	assert.Equal(t, unshrink.ERR_MISSING_PARAM, run(nil, &bytes.Buffer{}))
	assert.Equal(t, unshrink.ERR_INVALID_PARAM, run([]string{"--bogus"}, &bytes.Buffer{}))

	args := []string{
		"-i", e.Input, "-o", config.StdOut,
		"--offset", itoa(e.Offset), "--end", itoa(e.End), "-s", itoa(e.Size),
	}

	out := &bytes.Buffer{}
	assert.Equal(t, 0, run(args, out))
	assert.True(t, bytes.Equal(p, out.Bytes()))

	// Wrong CRC
	out.Reset()
	assert.Equal(t, unshrink.ERR_CRC_CHECK, run(append(args, "--crc32", "deadbeef"), out))

	// Manifest
	manifest := filepath.Join(dir, "manifest.toml")
	content := "[config]\njobs = 2\n\n[[entry]]\nname = \"x\"\ninput = \"archive.zip\"\n" +
		"offset = " + itoa(e.Offset) + "\nsize = " + itoa(e.Size) + "\noutput = \"x.txt\"\n"
	require.NoError(t, os.WriteFile(manifest, []byte(content), 0o644))
	assert.Equal(t, 0, run([]string{"-m", manifest, "-v"}, &bytes.Buffer{}))

	data, err := os.ReadFile(filepath.Join(dir, "x.txt"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(p, data))

	// Output exists now
	assert.Equal(t, unshrink.ERR_OVERWRITE_FILE, run([]string{"-m", manifest}, &bytes.Buffer{}))
	assert.Equal(t, 0, run([]string{"-m", manifest, "-f"}, &bytes.Buffer{}))
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
