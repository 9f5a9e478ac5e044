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

// Generate test vectors consumed by the unit tests for the protocol package.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cloudflare/roughtime-keys/protocol"
	"github.com/cloudflare/roughtime-keys/protocol/internal/testing"
)

const ROOT_KEY_HEX = "d102b712f341204711daaf20e0d13557a37073e9c25325c1c6bda876eb2d6a2d"

func ensureDir(dirName string) error {
	err := os.Mkdir(dirName, 0777)
	if err == nil {
		return nil
	}
	if os.IsExist(err) {
		// Check that the existing path is a directory.
		info, err := os.Stat(dirName)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return errors.New("path exists but is not a directory")
		}
		return nil
	}
	return err
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	if err := ensureDir("testdata"); err != nil {
		panic(err)
	}

	rootSeed := must(hex.DecodeString(ROOT_KEY_HEX))
	longTerm := must(protocol.DeriveLongTermKey(rootSeed))
	defer longTerm.Close()

	r := testing.NewTestRand()
	for i, ts := range []protocol.Timespec{
		{Sec: 0, Nsec: 0},
		{Sec: 1, Nsec: 500_000_000},
		{Sec: 1_700_000_000, Nsec: 999},
	} {
		onlineSeed := make([]byte, 32)
		if _, err := io.ReadFull(r, onlineSeed); err != nil {
			panic(err)
		}
		root := make([]byte, 64)
		if _, err := io.ReadFull(r, root); err != nil {
			panic(err)
		}

		online := must(protocol.GenerateOnlineKey(bytes.NewReader(onlineSeed)))
		cert := must(must(longTerm.IssueCertificate(online)).Encode())
		resp := must(must(online.Attest(ts, root)).Encode())
		online.Close()

		testVec := testing.TestVector{
			Info:        fmt.Sprintf("delegation %d", i),
			RootKey:     ROOT_KEY_HEX,
			OnlineKey:   hex.EncodeToString(onlineSeed),
			Sec:         ts.Sec,
			Nsec:        ts.Nsec,
			Root:        hex.EncodeToString(root),
			Certificate: hex.EncodeToString(cert),
			Response:    hex.EncodeToString(resp),
		}

		testVecBytes, err := json.Marshal(&testVec)
		if err != nil {
			panic(err)
		}
		if err := os.WriteFile(fmt.Sprintf("testdata/delegation_%03d.json", i), testVecBytes, 0644); err != nil {
			panic(err)
		}
	}
}
