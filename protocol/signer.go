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
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/roughtime-keys/protocol/internal/secret"
)

const (
	certificateContext    = "RoughTime v1 delegation signature--\x00"
	signedResponseContext = "RoughTime v1 response signature\x00"
)

// ErrInvalidSeed is returned when a key seed is not ed25519.SeedSize bytes.
var ErrInvalidSeed = errors.New("protocol: invalid key seed")

// signer is a streaming ed25519 signer. Bytes passed to update are buffered
// and signed as one message by sign.
type signer struct {
	private *secret.Buffer
	public  ed25519.PublicKey
	pending bytes.Buffer
}

func newSignerFromSeed(seed []byte) (*signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSeed, len(seed), ed25519.SeedSize)
	}
	return newSigner(ed25519.NewKeyFromSeed(seed))
}

func generateSigner(r io.Reader) (*signer, error) {
	if r == nil {
		r = rand.Reader
	}
	_, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, err
	}
	return newSigner(priv)
}

// newSigner takes ownership of priv; the caller's slice is zeroed.
func newSigner(priv ed25519.PrivateKey) (*signer, error) {
	public := append(ed25519.PublicKey(nil), priv.Public().(ed25519.PublicKey)...)
	buf, err := secret.FromBytes(priv)
	if err != nil {
		return nil, err
	}
	return &signer{private: buf, public: public}, nil
}

func (s *signer) update(p []byte) {
	s.pending.Write(p)
}

// sign signs everything passed to update since the last call and resets
// the buffer.
func (s *signer) sign() ([]byte, error) {
	defer s.pending.Reset()

	var sig []byte
	err := s.private.Use(func(priv []byte) {
		sig = ed25519.Sign(ed25519.PrivateKey(priv), s.pending.Bytes())
	})
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *signer) publicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), s.public...)
}

func (s *signer) close() error {
	s.pending.Reset()
	return s.private.Close()
}

func (s *signer) String() string {
	return hex.EncodeToString(s.public)
}

// verify checks sig over context||payload.
func verify(pub ed25519.PublicKey, context string, payload, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	msg := make([]byte, 0, len(context)+len(payload))
	msg = append(msg, context...)
	msg = append(msg, payload...)
	return ed25519.Verify(pub, msg, sig)
}
