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

package secret

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func alloc(size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, nil, fmt.Errorf("secret: mmap failed: %w", err)
	}

	// Locking fails once RLIMIT_MEMLOCK is exhausted; the key is still
	// zeroed on Close, so carry on unlocked.
	locked := unix.Mlock(data) == nil
	_ = unix.Madvise(data, unix.MADV_DONTDUMP)

	free := func(p []byte) error {
		if locked {
			if err := unix.Munlock(p); err != nil {
				unix.Munmap(p)
				return fmt.Errorf("secret: munlock failed: %w", err)
			}
		}
		if err := unix.Munmap(p); err != nil {
			return fmt.Errorf("secret: munmap failed: %w", err)
		}
		return nil
	}
	return data, free, nil
}
