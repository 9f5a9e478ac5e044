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

// Package protocol implements the delegation core of the Roughtime protocol.
//
// A LongTermKey, derived from a stored seed, certifies an OnlineKey by
// signing its delegation (DELE). The OnlineKey then signs responses (SREP)
// binding a radius, a midpoint and a Merkle root. Each kind of signature is
// made under its own context string, and each key type exposes only the
// signing operation it is entitled to.
package protocol
