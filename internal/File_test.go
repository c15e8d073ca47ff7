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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatInput(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "data.zip")
	require.NoError(t, os.WriteFile(name, make([]byte, 123), 0o644))

	fd, err := StatInput(name)
	require.NoError(t, err)
	assert.Equal(t, int64(123), fd.Size)
	assert.Equal(t, "data.zip", fd.Name)
	assert.Equal(t, name, fd.FullPath)

	_, err = StatInput(dir)
	assert.Error(t, err)
	_, err = StatInput(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSameFile(t *testing.T) {
	assert.True(t, SameFile("a/b.txt", "a/../a/b.txt"))
	assert.False(t, SameFile("a/b.txt", "a/c.txt"))
}

func TestIsReservedName(t *testing.T) {
	assert.False(t, IsReservedName("readme.txt"))

	if runtime.GOOS == "windows" {
		assert.True(t, IsReservedName("NUL"))
		assert.True(t, IsReservedName("out\\con.txt"))
	} else {
		assert.False(t, IsReservedName("NUL"))
	}
}
