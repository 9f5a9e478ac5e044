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
	"crypto/ed25519"
	"errors"
)

// Verification failures.
var (
	ErrInvalidDelegationSignature = errors.New("protocol: invalid delegation signature")
	ErrInvalidResponseSignature   = errors.New("protocol: invalid response signature")
	ErrDelegationRange            = errors.New("protocol: timestamp out of range for delegation")
)

// Delegation is the verified content of a certificate.
type Delegation struct {
	// PublicKey is the delegated online public key.
	PublicKey ed25519.PublicKey
	// MinTime and MaxTime bound the midpoints the online key may sign, in
	// microseconds since the epoch.
	MinTime uint64
	MaxTime uint64
}

// SignedResponse is the verified content of a signed response.
type SignedResponse struct {
	// Radius is the uncertainty radius in microseconds.
	Radius uint32
	// Midpoint is the attested time in microseconds since the epoch.
	Midpoint uint64
	// Root is the signed Merkle root.
	Root []byte
}

func getValue(msg *Message, tag Tag) ([]byte, error) {
	value, ok := msg.Get(tag)
	if !ok {
		return nil, ErrInvalidRequest
	}
	return value, nil
}

func getSignature(msg *Message) ([]byte, error) {
	sig, err := getValue(msg, TagSIG)
	if err != nil {
		return nil, err
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, errInvalidValueLength(TagSIG, len(sig))
	}
	return sig, nil
}

// VerifyCertificate authenticates cert with rootPublicKey and returns the
// delegation it carries.
func VerifyCertificate(rootPublicKey ed25519.PublicKey, cert *Message) (*Delegation, error) {
	sig, err := getSignature(cert)
	if err != nil {
		return nil, err
	}
	deleBytes, err := getValue(cert, TagDELE)
	if err != nil {
		return nil, err
	}
	if !verify(rootPublicKey, certificateContext, deleBytes, sig) {
		return nil, ErrInvalidDelegationSignature
	}

	dele, err := Decode(deleBytes)
	if err != nil {
		return nil, err
	}
	pub, err := getValue(dele, TagPUBK)
	if err != nil {
		return nil, err
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, errInvalidValueLength(TagPUBK, len(pub))
	}
	minTime, err := dele.Uint64(TagMINT)
	if err != nil {
		return nil, err
	}
	maxTime, err := dele.Uint64(TagMAXT)
	if err != nil {
		return nil, err
	}

	return &Delegation{
		PublicKey: ed25519.PublicKey(pub),
		MinTime:   minTime,
		MaxTime:   maxTime,
	}, nil
}

// VerifySignedResponse authenticates resp with onlinePublicKey and returns
// the signed response it carries.
func VerifySignedResponse(onlinePublicKey ed25519.PublicKey, resp *Message) (*SignedResponse, error) {
	sig, err := getSignature(resp)
	if err != nil {
		return nil, err
	}
	srepBytes, err := getValue(resp, TagSREP)
	if err != nil {
		return nil, err
	}
	if !verify(onlinePublicKey, signedResponseContext, srepBytes, sig) {
		return nil, ErrInvalidResponseSignature
	}

	srep, err := Decode(srepBytes)
	if err != nil {
		return nil, err
	}
	radius, err := srep.Uint32(TagRADI)
	if err != nil {
		return nil, err
	}
	midpoint, err := srep.Uint64(TagMIDP)
	if err != nil {
		return nil, err
	}
	root, err := getValue(srep, TagROOT)
	if err != nil {
		return nil, err
	}

	return &SignedResponse{
		Radius:   radius,
		Midpoint: midpoint,
		Root:     root,
	}, nil
}

// VerifyAttestation verifies cert with rootPublicKey, then resp with the
// delegated key, and checks that the midpoint lies within the delegation.
func VerifyAttestation(rootPublicKey ed25519.PublicKey, cert, resp *Message) (*SignedResponse, error) {
	dele, err := VerifyCertificate(rootPublicKey, cert)
	if err != nil {
		return nil, err
	}
	srep, err := VerifySignedResponse(dele.PublicKey, resp)
	if err != nil {
		return nil, err
	}
	if dele.MaxTime < dele.MinTime || srep.Midpoint < dele.MinTime || dele.MaxTime < srep.Midpoint {
		return nil, ErrDelegationRange
	}
	return srep, nil
}
