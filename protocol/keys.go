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
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/binary"
	"io"
	"time"
)

// Radius is the uncertainty radius, in microseconds, of every response.
const Radius = 1_000_000

var (
	// The delegation is valid from the epoch with no upper bound.
	delegationMinTime = [8]byte{}
	delegationMaxTime = [8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

// Timespec is a point in time as seconds and nanoseconds since the Unix
// epoch.
type Timespec struct {
	Sec  int64
	Nsec int32
}

// TimespecFromTime converts t.
func TimespecFromTime(t time.Time) Timespec {
	return Timespec{Sec: t.Unix(), Nsec: int32(t.Nanosecond())}
}

// Microseconds returns ts in microseconds since the epoch. The
// sub-microsecond remainder is truncated, not rounded. Both fields are
// converted to uint64 unchecked, so a negative Sec or an Nsec outside
// [0, 1e9) wraps rather than failing.
func (ts Timespec) Microseconds() uint64 {
	return uint64(ts.Sec)*1_000_000 + uint64(ts.Nsec)/1_000
}

// Time converts ts to a time.Time.
func (ts Timespec) Time() time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}

// makeDelegation builds the DELE message for an online public key.
func makeDelegation(pub ed25519.PublicKey) (*Message, error) {
	dele := NewMessage(3)
	if err := dele.AddField(TagPUBK, pub); err != nil {
		return nil, err
	}
	if err := dele.AddField(TagMINT, delegationMinTime[:]); err != nil {
		return nil, err
	}
	if err := dele.AddField(TagMAXT, delegationMaxTime[:]); err != nil {
		return nil, err
	}
	return dele, nil
}

// signedMessage builds the two-field {SIG, tag} message wrapping body.
func signedMessage(sig []byte, tag Tag, body []byte) (*Message, error) {
	msg := NewMessage(2)
	if err := msg.AddField(TagSIG, sig); err != nil {
		return nil, err
	}
	if err := msg.AddField(tag, body); err != nil {
		return nil, err
	}
	return msg, nil
}

// OnlineKey is the short-lived key delegated by a LongTermKey. It signs
// responses only. An OnlineKey is not safe for concurrent use.
type OnlineKey struct {
	signer *signer
}

// GenerateOnlineKey creates a fresh online key from r, or from crypto/rand
// when r is nil.
func GenerateOnlineKey(r io.Reader) (*OnlineKey, error) {
	s, err := generateSigner(r)
	if err != nil {
		return nil, err
	}
	return &OnlineKey{signer: s}, nil
}

// PublicKey returns the online public key.
func (k *OnlineKey) PublicKey() ed25519.PublicKey {
	return k.signer.publicKey()
}

// Declaration returns the unsigned DELE message for this key.
func (k *OnlineKey) Declaration() (*Message, error) {
	return makeDelegation(k.signer.public)
}

// Attest returns {SIG, SREP}, where SREP carries the radius, the midpoint
// now and the Merkle root, signed by this key. The root is not validated.
func (k *OnlineKey) Attest(now Timespec, root []byte) (*Message, error) {
	var radi [4]byte
	binary.LittleEndian.PutUint32(radi[:], Radius)

	var midp [8]byte
	binary.LittleEndian.PutUint64(midp[:], now.Microseconds())

	srep := NewMessage(3)
	if err := srep.AddField(TagRADI, radi[:]); err != nil {
		return nil, err
	}
	if err := srep.AddField(TagMIDP, midp[:]); err != nil {
		return nil, err
	}
	if err := srep.AddField(TagROOT, root); err != nil {
		return nil, err
	}
	srepBytes, err := srep.Encode()
	if err != nil {
		return nil, err
	}

	k.signer.update([]byte(signedResponseContext))
	k.signer.update(srepBytes)
	sig, err := k.signer.sign()
	if err != nil {
		return nil, err
	}

	return signedMessage(sig, TagSREP, srepBytes)
}

// Close zeroes the private key. The key cannot be used afterwards.
func (k *OnlineKey) Close() error {
	return k.signer.close()
}

func (k *OnlineKey) String() string {
	return k.signer.String()
}

// LongTermKey is the server's long-term identity. It signs delegations of
// online keys only. A LongTermKey is not safe for concurrent use.
type LongTermKey struct {
	signer *signer
}

// DeriveLongTermKey derives the long-term key from a 32-byte seed. The same
// seed always yields the same key.
func DeriveLongTermKey(seed []byte) (*LongTermKey, error) {
	s, err := newSignerFromSeed(seed)
	if err != nil {
		return nil, err
	}
	return &LongTermKey{signer: s}, nil
}

// PublicKey returns the long-term public key.
func (k *LongTermKey) PublicKey() ed25519.PublicKey {
	return k.signer.publicKey()
}

// Fingerprint returns the first 32 bytes of SHA-512(0xff || public key),
// the value a client uses to name the root key it expects.
func (k *LongTermKey) Fingerprint() []byte {
	h := sha512.New()
	h.Write([]byte{0xff})
	h.Write(k.signer.public)
	return h.Sum(nil)[:32]
}

// IssueCertificate returns the CERT message {SIG, DELE} delegating to
// online.
func (k *LongTermKey) IssueCertificate(online *OnlineKey) (*Message, error) {
	dele, err := online.Declaration()
	if err != nil {
		return nil, err
	}
	deleBytes, err := dele.Encode()
	if err != nil {
		return nil, err
	}

	k.signer.update([]byte(certificateContext))
	k.signer.update(deleBytes)
	sig, err := k.signer.sign()
	if err != nil {
		return nil, err
	}

	return signedMessage(sig, TagDELE, deleBytes)
}

// Close zeroes the private key. The key cannot be used afterwards.
func (k *LongTermKey) Close() error {
	return k.signer.close()
}

func (k *LongTermKey) String() string {
	return k.signer.String()
}
