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

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sort"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allTags = []Tag{
	TagSIG, TagNONC, TagDELE, TagPATH, TagRADI, TagPUBK, TagMIDP,
	TagSREP, TagMINT, TagROOT, TagCERT, TagMAXT, TagINDX, TagPAD,
}

// messageFromMap builds a message from the subset of allTags selected by
// the keys of fields, padding every value to a multiple of four bytes.
func messageFromMap(fields map[uint8][]byte) *Message {
	tags := make([]Tag, 0, len(fields))
	values := make(map[Tag][]byte)
	for k, v := range fields {
		tag := allTags[int(k)%len(allTags)]
		if _, ok := values[tag]; ok {
			continue
		}
		padded := make([]byte, (len(v)+3)/4*4)
		copy(padded, v)
		values[tag] = padded
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	msg := NewMessage(len(tags))
	for _, tag := range tags {
		if err := msg.AddField(tag, values[tag]); err != nil {
			panic(err)
		}
	}
	return msg
}

func testEncodeDecodeRoundtrip(fields map[uint8][]byte) bool {
	msg := messageFromMap(fields)
	encoded, err := msg.Encode()
	if err != nil {
		return false
	}
	if len(encoded) != msg.Len() {
		return false
	}

	decoded, err := Decode(encoded)
	if err != nil {
		return false
	}

	if len(msg.Tags()) != len(decoded.Tags()) {
		return false
	}

	for _, tag := range msg.Tags() {
		payload, _ := msg.Get(tag)
		otherPayload, ok := decoded.Get(tag)
		if !ok {
			return false
		}
		if !bytes.Equal(payload, otherPayload) {
			return false
		}
	}

	return true
}

func TestEncodeDecode(t *testing.T) {
	if err := quick.Check(testEncodeDecodeRoundtrip, &quick.Config{
		MaxCountScale: 10,
	}); err != nil {
		t.Error(err)
	}
}

func TestTagOrder(t *testing.T) {
	assert.True(t, sort.SliceIsSorted(allTags, func(i, j int) bool { return allTags[i] < allTags[j] }))
	assert.Equal(t, "SIG", TagSIG.String())
	assert.Equal(t, `PAD\xff`, TagPAD.String())
	assert.Equal(t, []byte("DELE"), TagDELE.Bytes())

	for _, tag := range allTags {
		got, err := TagFromBytes(tag.Bytes())
		require.NoError(t, err)
		assert.Equal(t, tag, got)
	}

	_, err := TagFromBytes([]byte("NOPE"))
	var perr Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorInvalidTag, perr.Type)
	assert.Equal(t, []byte("NOPE"), perr.Bytes)
}

func testAddFieldOutOfOrder(first, second uint8, v1, v2 []byte) bool {
	a := allTags[int(first)%len(allTags)]
	b := allTags[int(second)%len(allTags)]
	if a < b {
		a, b = b, a
	}

	msg := NewMessage(2)
	if err := msg.AddField(a, v1); err != nil {
		return false
	}
	err := msg.AddField(b, v2)

	var perr Error
	return errors.As(err, &perr) && perr.Type == ErrorTagNotStrictlyIncreasing && perr.Tag == b
}

func TestAddFieldOutOfOrder(t *testing.T) {
	if err := quick.Check(testAddFieldOutOfOrder, nil); err != nil {
		t.Error(err)
	}
}

func TestAddFieldTooMany(t *testing.T) {
	msg := NewMessage(1)
	require.NoError(t, msg.AddField(TagSIG, nil))
	err := msg.AddField(TagSREP, nil)

	var perr Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorInvalidNumTags, perr.Type)
	assert.EqualValues(t, 2, perr.Value)
}

func TestEncodeErrors(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		msg := NewMessage(2)
		require.NoError(t, msg.AddField(TagSIG, make([]byte, 4)))
		_, err := msg.Encode()

		var perr Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrorInvalidNumTags, perr.Type)
	})

	t.Run("unaligned value", func(t *testing.T) {
		msg := NewMessage(2)
		require.NoError(t, msg.AddField(TagSIG, make([]byte, 6)))
		require.NoError(t, msg.AddField(TagSREP, make([]byte, 4)))
		_, err := msg.Encode()

		var perr Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrorInvalidAlignment, perr.Type)
		assert.EqualValues(t, 6, perr.Value)
	})

	t.Run("empty", func(t *testing.T) {
		encoded, err := NewMessage(0).Encode()
		require.NoError(t, err)
		assert.Equal(t, make([]byte, 4), encoded)
	})
}

type failingWriter struct {
	remaining int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.remaining {
		n := w.remaining
		w.remaining = 0
		return n, io.ErrShortWrite
	}
	w.remaining -= len(p)
	return len(p), nil
}

func TestWriteToEncodingFailure(t *testing.T) {
	msg := NewMessage(2)
	require.NoError(t, msg.AddField(TagSIG, make([]byte, 64)))
	require.NoError(t, msg.AddField(TagSREP, make([]byte, 8)))

	for _, limit := range []int{0, 16, 40} {
		_, err := msg.WriteTo(&failingWriter{remaining: limit})

		var perr Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrorEncodingFailure, perr.Type)
		assert.ErrorIs(t, err, io.ErrShortWrite)
	}
}

func encodeRaw(words ...uint32) []byte {
	b := make([]byte, 0, 4*len(words))
	for _, w := range words {
		b = binary.LittleEndian.AppendUint32(b, w)
	}
	return b
}

func TestDecodeErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input []byte
		typ   ErrorType
		value uint32
	}{
		{"empty", nil, ErrorMessageTooShort, 0},
		{"unaligned length", make([]byte, 6), ErrorInvalidAlignment, 6},
		{"too many tags", encodeRaw(0x10000), ErrorInvalidNumTags, 0x10000},
		{"zero tags with trailing bytes", encodeRaw(0, 0xdeadbeef, 0xcafebabe), ErrorInvalidNumTags, 0},
		{"truncated header", encodeRaw(3, 4), ErrorMessageTooShort, 0},
		{"unaligned offset", encodeRaw(2, 2, uint32(TagSIG), uint32(TagSREP), 0, 0), ErrorInvalidAlignment, 2},
		{"offset out of range", encodeRaw(2, 12, uint32(TagSIG), uint32(TagSREP), 0, 0), ErrorInvalidOffsetValue, 12},
		{"decreasing offsets", encodeRaw(3, 8, 4, uint32(TagSIG), uint32(TagDELE), uint32(TagSREP), 0, 0, 0), ErrorInvalidOffsetValue, 4},
		{"unknown tag", encodeRaw(1, 0x41414141), ErrorInvalidTag, 0},
		{"tags out of order", encodeRaw(2, 4, uint32(TagSREP), uint32(TagSIG), 0, 0), ErrorTagNotStrictlyIncreasing, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.input)

			var perr Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.typ, perr.Type, err.Error())
			assert.Equal(t, tc.value, perr.Value)
		})
	}
}

func TestDecodeRequestTooShort(t *testing.T) {
	valid := encodeRaw(1, uint32(TagPAD))
	for _, size := range []int{0, 3, 4, 8, MinRequestSize - 4, MinRequestSize - 1} {
		buf := make([]byte, size)
		copy(buf, valid)
		_, err := DecodeRequest(buf)
		assert.ErrorIs(t, err, ErrRequestTooShort, "size %d", size)
	}

	// A zero tag count must account for the whole buffer.
	_, err := DecodeRequest(make([]byte, MinRequestSize))
	var perr Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorInvalidNumTags, perr.Type)

	// A padded request at exactly the floor decodes.
	request := NewMessage(1)
	require.NoError(t, request.AddField(TagPAD, make([]byte, MinRequestSize-8)))
	encoded, err := request.Encode()
	require.NoError(t, err)
	require.Len(t, encoded, MinRequestSize)

	decoded, err := DecodeRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, []Tag{TagPAD}, decoded.Tags())
}

func TestTypedAccessors(t *testing.T) {
	msg := NewMessage(2)
	require.NoError(t, msg.AddField(TagRADI, encodeRaw(7)))
	require.NoError(t, msg.AddField(TagMIDP, encodeRaw(1, 2)))

	radi, err := msg.Uint32(TagRADI)
	require.NoError(t, err)
	assert.EqualValues(t, 7, radi)

	midp, err := msg.Uint64(TagMIDP)
	require.NoError(t, err)
	assert.EqualValues(t, uint64(2)<<32|1, midp)

	_, err = msg.Uint64(TagRADI)
	var perr Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorInvalidValueLength, perr.Type)
	assert.Equal(t, TagRADI, perr.Tag)
	assert.EqualValues(t, 4, perr.Value)

	_, err = msg.Uint32(TagROOT)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestGetReturnsCopy(t *testing.T) {
	msg := NewMessage(1)
	require.NoError(t, msg.AddField(TagROOT, []byte{1, 2, 3, 4}))

	value, ok := msg.Get(TagROOT)
	require.True(t, ok)
	value[0] = 0xff

	again, _ := msg.Get(TagROOT)
	assert.Equal(t, []byte{1, 2, 3, 4}, again)

	encoded, err := msg.Encode()
	require.NoError(t, err)
	assert.Equal(t, encodeRaw(1, uint32(TagROOT), 0x04030201), encoded)
}
