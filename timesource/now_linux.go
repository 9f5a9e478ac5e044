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

package timesource

import (
	"github.com/cloudflare/roughtime-keys/protocol"
	"golang.org/x/sys/unix"
)

func now() protocol.Timespec {
	var instant unix.Timex
	state, err := unix.Adjtimex(&instant)
	if err != nil {
		panic("adjtimex failed: " + err.Error())
	}

	// With STA_NANO the Usec field carries nanoseconds.
	nsec := int64(instant.Time.Usec)
	if instant.Status&unix.STA_NANO == 0 {
		nsec *= 1_000
	}
	ts := protocol.Timespec{Sec: int64(instant.Time.Sec), Nsec: int32(nsec)}

	// We are inserting a leap second, hence are one second behind.
	if state == unix.TIME_OOP {
		ts.Sec++
	}
	return ts
}
