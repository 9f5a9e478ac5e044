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

// Delegates a fresh online key from the long-term key and, optionally,
// attests a Merkle root with it.
package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/cloudflare/roughtime-keys/config"
	"github.com/cloudflare/roughtime-keys/protocol"
	"github.com/cloudflare/roughtime-keys/rotation"
	"github.com/cloudflare/roughtime-keys/timesource"
	"github.com/spf13/pflag"
)

var (
	// Command line parameters
	configFile = pflag.StringP("config", "c", "", "YAML configuration file")
	rootHex    = pflag.String("root", "", "hex-encoded Merkle root to attest")
)

func main() {
	log.SetFlags(log.Lshortfile &^ (log.Ldate | log.Ltime))
	pflag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	level, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	seed, err := config.ReadSeed(cfg.SeedFile)
	if err != nil {
		log.Fatal(err)
	}
	longTerm, err := protocol.DeriveLongTermKey(seed)
	if err != nil {
		log.Fatalf("could not derive long-term key: %v", err)
	}
	defer longTerm.Close()
	logger.Info("loaded long-term key",
		"public_key", base64.StdEncoding.EncodeToString(longTerm.PublicKey()),
		"fingerprint", hex.EncodeToString(longTerm.Fingerprint()))

	delegator, err := rotation.New(longTerm, timesource.System{}, rotation.Config{
		Period: cfg.RotationPeriod,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("could not delegate online key: %v", err)
	}
	defer delegator.Close()

	fmt.Printf("CERT %s\n", base64.StdEncoding.EncodeToString(delegator.Certificate()))

	if *rootHex == "" {
		return
	}
	root, err := hex.DecodeString(*rootHex)
	if err != nil {
		log.Fatalf("could not decode root: %v", err)
	}
	att, err := delegator.Attest(root)
	if err != nil {
		log.Fatal(err)
	}
	resp, err := att.Response.Encode()
	if err != nil {
		log.Fatal(err)
	}

	cert, err := protocol.Decode(att.Certificate)
	if err != nil {
		log.Fatal(err)
	}
	srep, err := protocol.VerifyAttestation(longTerm.PublicKey(), cert, att.Response)
	if err != nil {
		log.Fatalf("self-check failed: %v", err)
	}
	logger.Info("attested", "midpoint_us", srep.Midpoint, "radius_us", srep.Radius)

	fmt.Printf("RESP %s\n", base64.StdEncoding.EncodeToString(resp))
}
