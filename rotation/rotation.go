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

// Package rotation keeps a delegated online key in service: it rotates the
// key on a schedule, re-issues its certificate, and serialises signing.
package rotation

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudflare/roughtime-keys/protocol"
	"github.com/cloudflare/roughtime-keys/timesource"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultPeriod is the rotation period used when Config.Period is zero.
const DefaultPeriod = 24 * time.Hour

// ErrClosed is returned after Close.
var ErrClosed = errors.New("rotation: delegator is closed")

// Config configures a Delegator.
type Config struct {
	// Period between rotations in Run.
	Period time.Duration

	// Logger receives rotation events and failures. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Registerer, if set, registers the delegator's metrics.
	Registerer prometheus.Registerer

	// Rand is the entropy source for online keys. Defaults to crypto/rand.
	Rand io.Reader
}

// Attestation is a signed response together with the certificate that
// delegates the key which signed it.
type Attestation struct {
	// Certificate is the encoded CERT message.
	Certificate []byte
	// Response is the {SIG, SREP} message.
	Response *protocol.Message
}

// Delegator owns the current online key. All signing with that key
// happens under one lock.
type Delegator struct {
	longTerm *protocol.LongTermKey
	clock    timesource.Source
	period   time.Duration
	rand     io.Reader
	logger   *slog.Logger
	metrics  *metrics

	// rotateMu serialises use of the long-term key.
	rotateMu sync.Mutex

	mu     sync.Mutex
	online *protocol.OnlineKey
	cert   []byte
	closed bool
}

// New returns a Delegator that has already delegated its first online key.
// The caller keeps ownership of longTerm.
func New(longTerm *protocol.LongTermKey, clock timesource.Source, cfg Config) (*Delegator, error) {
	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Period < 0 {
		return nil, fmt.Errorf("rotation: negative period %v", cfg.Period)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("rotation: registering metrics: %w", err)
	}

	d := &Delegator{
		longTerm: longTerm,
		clock:    clock,
		period:   cfg.Period,
		rand:     cfg.Rand,
		logger:   cfg.Logger.With("long_term_key", longTerm.String()),
		metrics:  m,
	}
	if err := d.Rotate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Delegator) fail(op string, err error) error {
	d.metrics.errors.WithLabelValues(op, errorKind(err)).Inc()
	d.logger.Error(op+" failed", "err", logValue(err))
	return fmt.Errorf("rotation: %s: %w", op, err)
}

// logValue exposes the structured form of a protocol error wrapped in err.
func logValue(err error) any {
	var perr protocol.Error
	if errors.As(err, &perr) {
		return perr
	}
	return err.Error()
}

// Rotate delegates to a fresh online key and retires the previous one. If
// any step fails the previous key stays in service.
func (d *Delegator) Rotate() error {
	d.rotateMu.Lock()
	defer d.rotateMu.Unlock()

	online, err := protocol.GenerateOnlineKey(d.rand)
	if err != nil {
		return d.fail("rotate", err)
	}
	cert, err := d.longTerm.IssueCertificate(online)
	if err != nil {
		online.Close()
		return d.fail("rotate", err)
	}
	certBytes, err := cert.Encode()
	if err != nil {
		online.Close()
		return d.fail("rotate", err)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		online.Close()
		return ErrClosed
	}
	previous := d.online
	d.online, d.cert = online, certBytes
	d.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			d.logger.Warn("retiring online key", "online_key", previous.String(), "err", err)
		}
	}
	d.metrics.rotations.Inc()
	d.logger.Info("delegated online key", "online_key", online.String())
	return nil
}

// Attest signs root with the current online key at the current time.
func (d *Delegator) Attest(root []byte) (*Attestation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	resp, err := d.online.Attest(d.clock.Now(), root)
	if err != nil {
		return nil, d.fail("attest", err)
	}
	d.metrics.attestations.Inc()
	return &Attestation{Certificate: d.cert, Response: resp}, nil
}

// Certificate returns the encoded certificate of the current online key.
func (d *Delegator) Certificate() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cert
}

// OnlinePublicKey returns the current online public key.
func (d *Delegator) OnlinePublicKey() ed25519.PublicKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online.PublicKey()
}

// Run rotates the online key every period until ctx is done. A failed
// rotation is logged and retried at the next tick.
func (d *Delegator) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Rotate(); errors.Is(err, ErrClosed) {
				return err
			}
		}
	}
}

// Close zeroes the online key. The long-term key is left to its owner.
func (d *Delegator) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.online.Close()
}
