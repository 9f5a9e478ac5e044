// Copyright 2023 Cloudflare, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protocol

import (
	"encoding/hex"
	"fmt"
	"log/slog"
)

// ErrorType is an error type.
type ErrorType uint16

const (
	// ErrorTagNotStrictlyIncreasing means a field was added to a message out
	// of canonical tag order.
	ErrorTagNotStrictlyIncreasing ErrorType = iota
	// ErrorInvalidTag means a byte sequence does not name a known tag.
	ErrorInvalidTag
	// ErrorInvalidNumTags means the declared field count is structurally
	// invalid.
	ErrorInvalidNumTags
	// ErrorInvalidValueLength means a field's length does not fit what the
	// reader expects.
	ErrorInvalidValueLength
	// ErrorEncodingFailure wraps an I/O error raised while serializing.
	ErrorEncodingFailure
	// ErrorRequestTooShort means a request is below MinRequestSize.
	ErrorRequestTooShort
	// ErrorInvalidAlignment means an offset or length is not 32-bit aligned.
	ErrorInvalidAlignment
	// ErrorInvalidOffsetValue means an offset points outside the message.
	ErrorInvalidOffsetValue
	// ErrorMessageTooShort means too few bytes remain for a structural read.
	ErrorMessageTooShort
	// ErrorInvalidRequest is the catch-all for semantically invalid input.
	ErrorInvalidRequest
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTagNotStrictlyIncreasing:
		return "tag not strictly increasing"
	case ErrorInvalidTag:
		return "invalid tag"
	case ErrorInvalidNumTags:
		return "invalid number of tags"
	case ErrorInvalidValueLength:
		return "invalid value length"
	case ErrorEncodingFailure:
		return "encoding failure"
	case ErrorRequestTooShort:
		return "request too short"
	case ErrorInvalidAlignment:
		return "invalid alignment"
	case ErrorInvalidOffsetValue:
		return "invalid offset"
	case ErrorMessageTooShort:
		return "message too short"
	case ErrorInvalidRequest:
		return "invalid request"
	default:
		return "unknown"
	}
}

// Error represents a protocol error. Only the fields relevant to Type are
// set.
type Error struct {
	// Type is the error type.
	Type ErrorType

	// Tag is the offending tag for ErrorTagNotStrictlyIncreasing and
	// ErrorInvalidValueLength.
	Tag Tag

	// Value is the tag count, length or offset that caused the error.
	Value uint32

	// Bytes holds the unrecognized bytes for ErrorInvalidTag.
	Bytes []byte

	// Err is the underlying I/O error for ErrorEncodingFailure.
	Err error
}

func (e Error) Error() string {
	s := "protocol: " + e.Type.String()
	switch e.Type {
	case ErrorTagNotStrictlyIncreasing:
		s += fmt.Sprintf(": %s", e.Tag)
	case ErrorInvalidTag:
		s += ": " + hex.EncodeToString(e.Bytes)
	case ErrorInvalidNumTags:
		s += fmt.Sprintf(": %d", e.Value)
	case ErrorInvalidValueLength:
		s += fmt.Sprintf(": %s has length %d", e.Tag, e.Value)
	case ErrorEncodingFailure:
		if e.Err != nil {
			s += ": " + e.Err.Error()
		}
	case ErrorInvalidAlignment, ErrorInvalidOffsetValue:
		s += fmt.Sprintf(": offset %d", e.Value)
	}
	return s
}

// Unwrap returns the I/O error behind an ErrorEncodingFailure.
func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an Error of the same type, so the exported
// sentinels can be used with errors.Is regardless of payload.
func (e Error) Is(target error) bool {
	switch t := target.(type) {
	case Error:
		return t.Type == e.Type
	case *Error:
		return t != nil && t.Type == e.Type
	}
	return false
}

// LogValue implements slog.LogValuer.
func (e Error) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("kind", e.Type.String())}
	switch e.Type {
	case ErrorTagNotStrictlyIncreasing:
		attrs = append(attrs, slog.String("tag", e.Tag.String()))
	case ErrorInvalidTag:
		attrs = append(attrs, slog.String("bytes", hex.EncodeToString(e.Bytes)))
	case ErrorInvalidNumTags:
		attrs = append(attrs, slog.Any("num_tags", e.Value))
	case ErrorInvalidValueLength:
		attrs = append(attrs, slog.String("tag", e.Tag.String()), slog.Any("length", e.Value))
	case ErrorEncodingFailure:
		if e.Err != nil {
			attrs = append(attrs, slog.String("cause", e.Err.Error()))
		}
	case ErrorInvalidAlignment, ErrorInvalidOffsetValue:
		attrs = append(attrs, slog.Any("offset", e.Value))
	}
	return slog.GroupValue(attrs...)
}

func errTagNotStrictlyIncreasing(tag Tag) Error {
	return Error{Type: ErrorTagNotStrictlyIncreasing, Tag: tag}
}

func errInvalidTag(b []byte) Error {
	return Error{Type: ErrorInvalidTag, Bytes: append([]byte(nil), b...)}
}

func errInvalidNumTags(n uint32) Error {
	return Error{Type: ErrorInvalidNumTags, Value: n}
}

func errInvalidValueLength(tag Tag, length int) Error {
	return Error{Type: ErrorInvalidValueLength, Tag: tag, Value: uint32(length)}
}

// errEncoding converts a serialization I/O error into ErrorEncodingFailure.
func errEncoding(err error) Error {
	return Error{Type: ErrorEncodingFailure, Err: err}
}

func errInvalidAlignment(offset uint32) Error {
	return Error{Type: ErrorInvalidAlignment, Value: offset}
}

func errInvalidOffsetValue(offset uint32) Error {
	return Error{Type: ErrorInvalidOffsetValue, Value: offset}
}

var (
	// ErrRequestTooShort is returned for requests below MinRequestSize.
	ErrRequestTooShort = Error{Type: ErrorRequestTooShort}
	// ErrMessageTooShort is returned when a buffer ends before a structural
	// read completes.
	ErrMessageTooShort = Error{Type: ErrorMessageTooShort}
	// ErrInvalidRequest is returned for input that is structurally sound but
	// semantically invalid.
	ErrInvalidRequest = Error{Type: ErrorInvalidRequest}
)
