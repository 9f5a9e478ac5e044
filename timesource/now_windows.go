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
	"golang.org/x/sys/windows"
)

func now() protocol.Timespec {
	var ft windows.Filetime
	windows.GetSystemTimeAsFileTime(&ft)
	ns := ft.Nanoseconds()
	return protocol.Timespec{Sec: ns / 1e9, Nsec: int32(ns % 1e9)}
}
