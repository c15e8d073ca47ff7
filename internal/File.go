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
	"strings"

	"github.com/pkg/errors"
)

// FileData a basic structure encapsulating a file path and size
type FileData struct {
	FullPath string
	Path     string
	Name     string
	Size     int64
}

// NewFileData creates an instance of FileData from a file path and size
func NewFileData(fullPath string, size int64) *FileData {
	this := &FileData{}
	this.FullPath = fullPath
	this.Size = size
	this.Path, this.Name = filepath.Split(fullPath)
	return this
}

// StatInput returns the FileData of an existing regular file (or link to one)
func StatInput(name string) (*FileData, error) {
	fi, err := os.Stat(name)

	if err != nil {
		return nil, err
	}

	if fi.Mode().IsRegular() == false {
		return nil, errors.Errorf("'%s' is not a regular file", name)
	}

	return NewFileData(name, fi.Size()), nil
}

// SameFile returns true if both names resolve to the same path
func SameFile(name1, name2 string) bool {
	path1, err1 := filepath.Abs(name1)
	path2, err2 := filepath.Abs(name2)
	return err1 == nil && err2 == nil && path1 == path2
}

// IsReservedName returns true for device names that cannot be used as file
// names on Windows
func IsReservedName(fileName string) bool {
	if runtime.GOOS != "windows" {
		return false
	}

	// Sorted list
	var reserved = []string{"AUX", "COM0", "COM1", "COM2", "COM3", "COM4", "COM5", "COM6",
		"COM7", "COM8", "COM9", "COM¹", "COM²", "COM³", "CON", "LPT0", "LPT1", "LPT2",
		"LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9", "NUL", "PRN"}

	base := strings.ToUpper(filepath.Base(fileName))

	if idx := strings.IndexByte(base, '.'); idx > 0 {
		base = base[0:idx]
	}

	for _, r := range reserved {
		res := strings.Compare(base, r)

		if res == 0 {
			return true
		}

		if res < 0 {
			break
		}
	}

	return false
}
