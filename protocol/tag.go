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
	"encoding/binary"
	"strings"
)

// Tag identifies a field of a Roughtime message. It is four ASCII bytes
// interpreted as a little-endian uint32; the canonical field order is the
// numeric order of that value.
type Tag uint32

// Various tags used in the Roughtime protocol, in canonical order.
const (
	TagSIG  = Tag('S') | Tag('I')<<8 | Tag('G')<<16
	TagNONC = Tag('N') | Tag('O')<<8 | Tag('N')<<16 | Tag('C')<<24
	TagDELE = Tag('D') | Tag('E')<<8 | Tag('L')<<16 | Tag('E')<<24
	TagPATH = Tag('P') | Tag('A')<<8 | Tag('T')<<16 | Tag('H')<<24
	TagRADI = Tag('R') | Tag('A')<<8 | Tag('D')<<16 | Tag('I')<<24
	TagPUBK = Tag('P') | Tag('U')<<8 | Tag('B')<<16 | Tag('K')<<24
	TagMIDP = Tag('M') | Tag('I')<<8 | Tag('D')<<16 | Tag('P')<<24
	TagSREP = Tag('S') | Tag('R')<<8 | Tag('E')<<16 | Tag('P')<<24
	TagMINT = Tag('M') | Tag('I')<<8 | Tag('N')<<16 | Tag('T')<<24
	TagROOT = Tag('R') | Tag('O')<<8 | Tag('O')<<16 | Tag('T')<<24
	TagCERT = Tag('C') | Tag('E')<<8 | Tag('R')<<16 | Tag('T')<<24
	TagMAXT = Tag('M') | Tag('A')<<8 | Tag('X')<<16 | Tag('T')<<24
	TagINDX = Tag('I') | Tag('N')<<8 | Tag('D')<<16 | Tag('X')<<24
	TagPAD  = Tag('P') | Tag('A')<<8 | Tag('D')<<16 | Tag(0xff)<<24
)

var knownTags = map[Tag]struct{}{
	TagSIG:  {},
	TagNONC: {},
	TagDELE: {},
	TagPATH: {},
	TagRADI: {},
	TagPUBK: {},
	TagMIDP: {},
	TagSREP: {},
	TagMINT: {},
	TagROOT: {},
	TagCERT: {},
	TagMAXT: {},
	TagINDX: {},
	TagPAD:  {},
}

// TagFromBytes parses the wire form of a tag. Unknown tags are rejected
// with ErrorInvalidTag.
func TagFromBytes(b []byte) (Tag, error) {
	if len(b) != 4 {
		return 0, errInvalidTag(b)
	}
	tag := Tag(binary.LittleEndian.Uint32(b))
	if _, ok := knownTags[tag]; !ok {
		return 0, errInvalidTag(b)
	}
	return tag, nil
}

// Bytes returns the wire form of t.
func (t Tag) Bytes() []byte {
	return binary.LittleEndian.AppendUint32(make([]byte, 0, 4), uint32(t))
}

func (t Tag) String() string {
	var sb strings.Builder
	for _, c := range t.Bytes() {
		switch {
		case c == 0:
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			sb.WriteString(`\x`)
			sb.WriteByte("0123456789abcdef"[c>>4])
			sb.WriteByte("0123456789abcdef"[c&0xf])
		}
	}
	return sb.String()
}
