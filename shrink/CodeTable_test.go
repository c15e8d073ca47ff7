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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	unshrink "github.com/flanglet/unshrink-go"
)

func TestCodeTableInitialState(t *testing.T) {
	table := NewCodeTable()

	for i := 0; i < 256; i++ {
		parent, value, ok := table.Entry(i)
		require.True(t, ok)
		assert.Equal(t, NO_PARENT, parent)
		assert.Equal(t, byte(i), value)
		assert.True(t, table.IsKnown(i))
	}

	assert.False(t, table.IsKnown(CONTROL_CODE))
	assert.False(t, table.IsKnown(FIRST_FREE_CODE))
	assert.False(t, table.IsKnown(TABLE_SIZE))
	assert.False(t, table.IsKnown(-1))
	assert.Equal(t, FIRST_FREE_CODE, table.SearchStart())
	assert.Equal(t, NO_PARENT, table.LastAdded())
	assert.Equal(t, TABLE_SIZE-FIRST_FREE_CODE, table.FreeCount())

	_, _, ok := table.Entry(TABLE_SIZE)
	assert.False(t, ok)
}

func TestCodeTableAddEntry(t *testing.T) {
	table := NewCodeTable()

	slot, err := table.AddEntry('A', 'B')
	require.NoError(t, err)
	assert.Equal(t, 257, slot)
	slot, err = table.AddEntry(257, 'C')
	require.NoError(t, err)
	assert.Equal(t, 258, slot)
	assert.Equal(t, 258, table.LastAdded())
	assert.Equal(t, 259, table.SearchStart())

	parent, value, _ := table.Entry(258)
	assert.Equal(t, 257, parent)
	assert.Equal(t, byte('C'), value)

	_, err = table.AddEntry(CONTROL_CODE, 'x')
	assert.Equal(t, unshrink.ERR_GENERIC, unshrink.ErrorCode(err))
	_, err = table.AddEntry(TABLE_SIZE, 'x')
	assert.Equal(t, unshrink.ERR_GENERIC, unshrink.ErrorCode(err))
}

func TestCodeTableFull(t *testing.T) {
	table := NewCodeTable()

	for i := FIRST_FREE_CODE; i < TABLE_SIZE; i++ {
		slot, err := table.AddEntry('A', 'A')
		require.NoError(t, err)
		require.Equal(t, i, slot)
	}

	assert.Equal(t, 0, table.FreeCount())
	_, err := table.AddEntry('A', 'A')
	assert.Equal(t, unshrink.ERR_BAD_CDATA, unshrink.ErrorCode(err))
}

func TestCodeTablePartialClear(t *testing.T) {
	table := NewCodeTable()
	mustAdd(t, table, 'A', 'B') // 257
	mustAdd(t, table, 257, 'C') // 258
	mustAdd(t, table, 'B', 'D') // 259
	mustAdd(t, table, 258, 'E') // 260

	assert.Equal(t, 2, table.PartialClear())
	assert.True(t, table.IsKnown(257))
	assert.True(t, table.IsKnown(258))
	assert.False(t, table.IsKnown(259))
	assert.False(t, table.IsKnown(260))
	assert.Equal(t, FIRST_FREE_CODE, table.SearchStart())

	parent, value, _ := table.Entry(258)
	assert.Equal(t, 257, parent)
	assert.Equal(t, byte('C'), value)

	// Marks do not leak into the next clear
	assert.Equal(t, 1, table.PartialClear())
	assert.True(t, table.IsKnown(257))
	assert.False(t, table.IsKnown(258))

	slot, err := table.AddEntry('Z', 'Z')
	require.NoError(t, err)
	assert.Equal(t, 258, slot)
}

func TestCodeTablePartialClearRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(12345))
	table := NewCodeTable()

	for round := 0; round < 50; round++ {
		n := rnd.Intn(table.FreeCount() + 1)

		for i := 0; i < n; i++ {
			parent := rnd.Intn(256)

			// Pick a used dynamic parent half of the time
			if rnd.Intn(2) == 0 {
				if p := FIRST_FREE_CODE + rnd.Intn(TABLE_SIZE-FIRST_FREE_CODE); table.IsKnown(p) {
					parent = p
				}
			}

			mustAdd(t, table, parent, byte(rnd.Intn(256)))
		}

		isParent := make(map[int]bool)
		used := 0

		for code := FIRST_FREE_CODE; code < TABLE_SIZE; code++ {
			if parent, _, _ := table.Entry(code); parent != NO_PARENT {
				isParent[parent] = true
				used++
			}
		}

		before := make([]int, TABLE_SIZE)

		for code := range before {
			before[code], _, _ = table.Entry(code)
		}

		freed := table.PartialClear()
		survivors := 0

		for code := FIRST_FREE_CODE; code < TABLE_SIZE; code++ {
			if table.IsKnown(code) {
				survivors++
				require.True(t, isParent[code], "code %d survived without child", code)
				parent, _, _ := table.Entry(code)
				require.Equal(t, before[code], parent)
			} else if isParent[code] && before[code] != NO_PARENT {
				t.Fatalf("code %d had a child but was released", code)
			}
		}

		require.Equal(t, used, survivors+freed)

		for i := 0; i < 256; i++ {
			parent, value, _ := table.Entry(i)
			require.Equal(t, NO_PARENT, parent)
			require.Equal(t, byte(i), value)
		}
	}
}

func mustAdd(t *testing.T, table *CodeTable, parent int, value byte) int {
	t.Helper()
	slot, err := table.AddEntry(parent, value)
	require.NoError(t, err)
	return slot
}

func TestCodeTableReset(t *testing.T) {
	table := NewCodeTable()
	mustAdd(t, table, 'A', 'B')
	mustAdd(t, table, 257, 'B')
	table.Reset()
	assert.False(t, table.IsKnown(257))
	assert.Equal(t, TABLE_SIZE-FIRST_FREE_CODE, table.FreeCount())
	assert.Equal(t, NO_PARENT, table.LastAdded())
	assert.Equal(t, 0, table.PartialClear())
}

func BenchmarkPartialClear(b *testing.B) {
	table := NewCodeTable()

	for i := 0; i < b.N; i++ {
		table.Reset()
		parent := int('A')

		// Long chains plus one leaf per 16 entries
		for code := FIRST_FREE_CODE; code < TABLE_SIZE; code++ {
			slot, err := table.AddEntry(parent, byte(code))

			if err != nil {
				b.Fatal(err)
			}

			if code&15 != 0 {
				parent = slot
			} else {
				parent = int('A')
			}
		}

		table.PartialClear()
	}
}
