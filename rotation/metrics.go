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

package rotation

import (
	"errors"

	"github.com/cloudflare/roughtime-keys/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	rotations    prometheus.Counter
	attestations prometheus.Counter
	errors       *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roughtime",
			Subsystem: "delegation",
			Name:      "rotations_total",
			Help:      "Online keys delegated by the long-term key.",
		}),
		attestations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roughtime",
			Subsystem: "delegation",
			Name:      "attestations_total",
			Help:      "Signed responses produced by the online key.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roughtime",
			Subsystem: "delegation",
			Name:      "errors_total",
			Help:      "Failed rotations and attestations by error kind.",
		}, []string{"op", "kind"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.rotations, m.attestations, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// errorKind labels err by its protocol error type, or "other".
func errorKind(err error) string {
	var perr protocol.Error
	if errors.As(err, &perr) {
		return perr.Type.String()
	}
	return "other"
}
