// Copyright 2016 The Roughtime Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License. */

// Modifications copyright 2023 Cloudflare, Inc.

package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
)

const (
	// MinRequestSize is the minimum number of bytes in a request.
	MinRequestSize = 1024

	// maxNumTags bounds the tag count accepted by Decode.
	maxNumTags = 0xffff
)

// Message is a Roughtime tag-value message. Fields must be added in
// strictly increasing tag order, and exactly NumFields of them must be
// present before the message can be encoded.
type Message struct {
	numFields int
	tags      []Tag
	values    [][]byte
}

// NewMessage returns an empty message that will hold numFields fields.
func NewMessage(numFields int) *Message {
	return &Message{
		numFields: numFields,
		tags:      make([]Tag, 0, numFields),
		values:    make([][]byte, 0, numFields),
	}
}

// AddField appends a field. The value is copied.
func (m *Message) AddField(tag Tag, value []byte) error {
	if len(m.tags) >= m.numFields {
		return errInvalidNumTags(uint32(len(m.tags) + 1))
	}
	if len(m.tags) > 0 && m.tags[len(m.tags)-1] >= tag {
		return errTagNotStrictlyIncreasing(tag)
	}

	m.tags = append(m.tags, tag)
	m.values = append(m.values, append([]byte{}, value...))
	return nil
}

// NumFields returns the declared number of fields.
func (m *Message) NumFields() int { return m.numFields }

// Tags returns the tags of the fields added so far, in order.
func (m *Message) Tags() []Tag {
	return append([]Tag(nil), m.tags...)
}

// Get returns a copy of the value stored under tag.
func (m *Message) Get(tag Tag) ([]byte, bool) {
	value, ok := m.get(tag)
	if !ok {
		return nil, false
	}
	return append([]byte{}, value...), true
}

func (m *Message) get(tag Tag) ([]byte, bool) {
	for i, t := range m.tags {
		if t == tag {
			return m.values[i], true
		}
	}
	return nil, false
}

func (m *Message) getFixedLength(tag Tag, length int) ([]byte, error) {
	value, ok := m.get(tag)
	if !ok {
		return nil, ErrInvalidRequest
	}
	if len(value) != length {
		return nil, errInvalidValueLength(tag, len(value))
	}
	return value, nil
}

// Uint32 decodes the little-endian uint32 stored under tag.
func (m *Message) Uint32(tag Tag) (uint32, error) {
	value, err := m.getFixedLength(tag, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(value), nil
}

// Uint64 decodes the little-endian uint64 stored under tag.
func (m *Message) Uint64(tag Tag) (uint64, error) {
	value, err := m.getFixedLength(tag, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(value), nil
}

// Len returns the number of bytes Encode will produce.
func (m *Message) Len() int {
	if len(m.tags) == 0 {
		return 4
	}
	n := 4 * (2 * len(m.tags))
	for _, v := range m.values {
		n += len(v)
	}
	return n
}

// WriteTo serializes m to w. Write errors are reported as
// ErrorEncodingFailure.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	if len(m.tags) != m.numFields {
		return 0, errInvalidNumTags(uint32(len(m.tags)))
	}

	numTags := len(m.tags)
	header := make([]byte, 0, 4*2*max(numTags, 1))
	header = binary.LittleEndian.AppendUint32(header, uint32(numTags))

	var offset uint32
	for i, v := range m.values {
		offset += uint32(len(v))
		if offset%4 != 0 {
			return 0, errInvalidAlignment(offset)
		}
		if i < numTags-1 {
			header = binary.LittleEndian.AppendUint32(header, offset)
		}
	}
	for _, tag := range m.tags {
		header = binary.LittleEndian.AppendUint32(header, uint32(tag))
	}

	var written int64
	n, err := w.Write(header)
	written += int64(n)
	if err != nil {
		return written, errEncoding(err)
	}
	for _, v := range m.values {
		n, err := w.Write(v)
		written += int64(n)
		if err != nil {
			return written, errEncoding(err)
		}
	}
	return written, nil
}

// Encode serializes m.
func (m *Message) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(m.Len())
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses the output of Encode back into a message.
func Decode(b []byte) (*Message, error) {
	if len(b) < 4 {
		return nil, ErrMessageTooShort
	}
	if len(b)%4 != 0 {
		return nil, errInvalidAlignment(uint32(len(b)))
	}

	numTags := binary.LittleEndian.Uint32(b)
	if numTags == 0 {
		if len(b) != 4 {
			return nil, errInvalidNumTags(0)
		}
		return NewMessage(0), nil
	}
	if numTags > maxNumTags {
		return nil, errInvalidNumTags(numTags)
	}

	headerLen := uint64(4 * 2 * numTags)
	if uint64(len(b)) < headerLen {
		return nil, ErrMessageTooShort
	}

	offsetBytes := b[4 : 4*numTags]
	tagBytes := b[4*numTags : headerLen]
	payload := b[headerLen:]
	payloadLen := uint32(len(payload))

	offsets := make([]uint32, 0, numTags+1)
	offsets = append(offsets, 0)
	for i := uint32(0); i < numTags-1; i++ {
		offset := binary.LittleEndian.Uint32(offsetBytes[4*i:])
		if offset%4 != 0 {
			return nil, errInvalidAlignment(offset)
		}
		if offset > payloadLen {
			return nil, errInvalidOffsetValue(offset)
		}
		offsets = append(offsets, offset)
	}
	offsets = append(offsets, payloadLen)

	msg := NewMessage(int(numTags))
	for i := uint32(0); i < numTags; i++ {
		tag, err := TagFromBytes(tagBytes[4*i : 4*i+4])
		if err != nil {
			return nil, err
		}

		start, end := offsets[i], offsets[i+1]
		if end < start {
			return nil, errInvalidOffsetValue(end)
		}

		if err := msg.AddField(tag, payload[start:end]); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// DecodeRequest parses an inbound request. Requests shorter than
// MinRequestSize are rejected before any field is inspected.
func DecodeRequest(b []byte) (*Message, error) {
	if len(b) < MinRequestSize {
		return nil, ErrRequestTooShort
	}
	return Decode(b)
}
