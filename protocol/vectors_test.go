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
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	rttesting "github.com/cloudflare/roughtime-keys/protocol/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:generate go run ./internal/cmd

// TestVectors replays the vectors written by ./internal/cmd. Certificates
// and responses are ed25519 signatures over fixed inputs, so regenerating
// them must reproduce the stored bytes exactly.
func TestVectors(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "delegation_*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := os.ReadFile(path)
			require.NoError(t, err)

			var vec rttesting.TestVector
			require.NoError(t, json.Unmarshal(data, &vec))

			rootSeed := mustHex(t, vec.RootKey)
			onlineSeed := mustHex(t, vec.OnlineKey)
			root := mustHex(t, vec.Root)

			longTerm, err := DeriveLongTermKey(rootSeed)
			require.NoError(t, err)
			defer longTerm.Close()
			online, err := GenerateOnlineKey(bytes.NewReader(onlineSeed))
			require.NoError(t, err)
			defer online.Close()

			cert, err := longTerm.IssueCertificate(online)
			require.NoError(t, err)
			certBytes, err := cert.Encode()
			require.NoError(t, err)
			assert.Equal(t, vec.Certificate, hex.EncodeToString(certBytes), vec.Info)

			resp, err := online.Attest(Timespec{Sec: vec.Sec, Nsec: vec.Nsec}, root)
			require.NoError(t, err)
			respBytes, err := resp.Encode()
			require.NoError(t, err)
			assert.Equal(t, vec.Response, hex.EncodeToString(respBytes), vec.Info)

			decodedCert, err := Decode(mustHex(t, vec.Certificate))
			require.NoError(t, err)
			decodedResp, err := Decode(mustHex(t, vec.Response))
			require.NoError(t, err)
			_, err = VerifyAttestation(longTerm.PublicKey(), decodedCert, decodedResp)
			require.NoError(t, err)
		})
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}
