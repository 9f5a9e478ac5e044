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

// Package timesource supplies the timestamps that online keys attest.
package timesource

import "github.com/cloudflare/roughtime-keys/protocol"

// Source returns the current time.
type Source interface {
	Now() protocol.Timespec
}

// System reads the platform clock.
type System struct{}

// Now returns the current system time.
func (System) Now() protocol.Timespec {
	return now()
}

type fixed protocol.Timespec

// Fixed returns a Source that always reports ts.
func Fixed(ts protocol.Timespec) Source {
	return fixed(ts)
}

func (f fixed) Now() protocol.Timespec {
	return protocol.Timespec(f)
}

// Func adapts a function to a Source.
type Func func() protocol.Timespec

// Now calls f.
func (f Func) Now() protocol.Timespec {
	return f()
}
