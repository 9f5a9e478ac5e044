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

// Generates a long-term key seed and prints the corresponding public key.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/cloudflare/roughtime-keys/config"
	"github.com/cloudflare/roughtime-keys/protocol"
	"github.com/spf13/pflag"
)

func main() {
	seedFile := pflag.StringP("seed", "s", "", "File to put the long-term key seed in")
	force := pflag.Bool("force", false, "Overwrite an existing seed file")
	pflag.Parse()

	log.SetFlags(log.Lshortfile &^ (log.Ldate | log.Ltime))
	if *seedFile == "" {
		log.Fatal("missing --seed")
	}
	if _, err := os.Stat(*seedFile); err == nil && !*force {
		log.Fatalf("%s exists; pass --force to overwrite", *seedFile)
	}

	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		log.Fatalf("rand.Read() failed: %v", err)
	}
	if err := config.WriteSeed(*seedFile, seed); err != nil {
		log.Fatalf("could not write seed: %v", err)
	}

	longTerm, err := protocol.DeriveLongTermKey(seed)
	if err != nil {
		log.Fatalf("could not derive long-term key: %v", err)
	}
	defer longTerm.Close()

	fmt.Printf("public key:  %s\n", base64.StdEncoding.EncodeToString(longTerm.PublicKey()))
	fmt.Printf("fingerprint: %s\n", hex.EncodeToString(longTerm.Fingerprint()))
}
