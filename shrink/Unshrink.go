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
	"bufio"
	"bytes"
	"io"

	unshrink "github.com/flanglet/unshrink-go"
	"github.com/flanglet/unshrink-go/bitstream"
)

const (
	_INPUT_BUFFER_SIZE = 65536
)

// Decompress decodes the Shrink data located in [start, end) of 'src' and
// writes exactly 'outputSize' bytes to 'dst'. Trailing compressed bytes that
// are not needed to produce the output are never read.
// Returns the number of bytes written and an *unshrink.Error on failure.
func Decompress(src io.ReaderAt, start, end int64, dst io.Writer, outputSize int64, listeners ...unshrink.Listener) (int64, error) {
	if src == nil {
		return 0, unshrink.NewError(unshrink.ERR_INVALID_PARAM, "Invalid null input parameter")
	}

	if start < 0 || end < start {
		return 0, unshrink.NewErrorf(unshrink.ERR_INVALID_PARAM, "Invalid compressed data range: [%d, %d)", start, end)
	}

	sr := io.NewSectionReader(src, start, end-start)
	ibs, err := bitstream.NewLSBInputBitStream(bufio.NewReaderSize(sr, _INPUT_BUFFER_SIZE))

	if err != nil {
		return 0, unshrink.WrapError(err, unshrink.ERR_INVALID_PARAM, "Cannot create input bitstream")
	}

	defer ibs.Close()
	d, err := NewDecoder(ibs, dst, outputSize)

	if err != nil {
		return 0, unshrink.WrapError(err, unshrink.ERR_INVALID_PARAM, "Cannot create decoder")
	}

	for _, bl := range listeners {
		d.AddListener(bl)
	}

	return d.Decode()
}

// DecompressBytes decodes a whole Shrink payload held in memory.
// On failure the bytes decoded so far are returned with the error.
func DecompressBytes(src []byte, outputSize int) ([]byte, error) {
	if outputSize < 0 {
		return nil, unshrink.NewErrorf(unshrink.ERR_INVALID_PARAM, "Invalid output size: %d", outputSize)
	}

	dst := bytes.NewBuffer(make([]byte, 0, outputSize))
	_, err := Decompress(bytes.NewReader(src), 0, int64(len(src)), dst, int64(outputSize))
	return dst.Bytes(), err
}
