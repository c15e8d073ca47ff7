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

package hash

import (
	gohash "hash"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ gohash.Hash64 = (*XXHash64)(nil)

func TestXXHash64KnownValues(t *testing.T) {
	h := NewXXHash64(0)
	assert.Equal(t, uint64(0xEF46DB3751D8E999), h.Sum64())
	assert.Equal(t, uint64(0xEF46DB3751D8E999), h.Hash(nil))
	assert.Equal(t, uint64(0xD24EC4F1A98C6E5B), h.Hash([]byte("a")))
	assert.Equal(t, uint64(0x44BC2CF5AD770999), h.Hash([]byte("abc")))
	assert.Equal(t, []byte{0xEF, 0x46, 0xDB, 0x37, 0x51, 0xD8, 0xE9, 0x99}, h.Sum(nil))
}

func TestXXHash64Incremental(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	data := make([]byte, 10000)
	rnd.Read(data)

	for _, seed := range []uint64{0, 1, 0x123456789ABCDEF} {
		whole := NewXXHash64(seed)
		whole.Write(data)
		expected := whole.Sum64()

		for _, chunk := range []int{1, 3, 7, 31, 32, 33, 1000} {
			h := NewXXHash64(seed)

			for i := 0; i < len(data); i += chunk {
				end := min(i+chunk, len(data))
				n, err := h.Write(data[i:end])
				assert.NoError(t, err)
				assert.Equal(t, end-i, n)
			}

			assert.Equal(t, expected, h.Sum64(), "seed %d chunk %d", seed, chunk)
		}

		// Sum64 does not alter the state
		assert.Equal(t, expected, whole.Sum64())
		whole.Reset()
		whole.Write(data[0:100])
		assert.Equal(t, whole.Hash(data[0:100]), whole.Sum64())
	}
}

func TestXXHash64Seed(t *testing.T) {
	h := NewXXHash64(0)
	h.Write([]byte("unshrink"))
	a := h.Sum64()
	h.SetSeed(7)
	h.Write([]byte("unshrink"))
	assert.NotEqual(t, a, h.Sum64())
	assert.Equal(t, 8, h.Size())
	assert.Equal(t, 32, h.BlockSize())
}
