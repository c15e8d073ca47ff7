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

	"github.com/pkg/errors"
)

// ErrBitStreamExhausted is returned by the bitstream readers when the input
// ends before the requested number of bits is available.
var ErrBitStreamExhausted = errors.New("No more data to read in the bitstream")

// Error an extended error containing a message, a code value and
// optionally the error that caused it
type Error struct {
	msg   string
	code  int
	cause error
}

// NewError creates a new Error with the provided code and message
func NewError(code int, msg string) *Error {
	return &Error{msg: msg, code: code}
}

// NewErrorf creates a new Error with the provided code and a formatted message
func NewErrorf(code int, format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...), code: code}
}

// WrapError creates a new Error with the provided code and message that
// records 'err' as its cause.
func WrapError(err error, code int, msg string) *Error {
	return &Error{msg: msg, code: code, cause: err}
}

// Error returns the underlying error
func (this *Error) Error() string {
	if this.cause != nil {
		return fmt.Sprintf("%v: %v (code %v)", this.msg, this.cause, this.code)
	}

	return fmt.Sprintf("%v (code %v)", this.msg, this.code)
}

// Message returns the message string associated with the error
func (this *Error) Message() string {
	return this.msg
}

// ErrorCode returns the code value associated with the error
func (this *Error) ErrorCode() int {
	return this.code
}

// Cause returns the wrapped error (may be nil)
func (this *Error) Cause() error {
	return this.cause
}

// Unwrap returns the wrapped error (may be nil)
func (this *Error) Unwrap() error {
	return this.cause
}

// ErrorCode returns the code of the first Error found in the chain of 'err'.
// Returns ERR_OK if 'err' is nil and ERR_UNKNOWN if the chain carries no code.
func ErrorCode(err error) int {
	if err == nil {
		return ERR_OK
	}

	var e *Error

	if errors.As(err, &e) {
		return e.code
	}

	return ERR_UNKNOWN
}
