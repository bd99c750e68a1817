/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package lease implements the Lease Manager: single-writer election
// over one lease key, with last-writer-wins conflict resolution on the
// underlying store.
package lease

import (
	"context"
	"encoding/json"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/store"
)

// DefaultTTLSeconds is the default lease TTL.
const DefaultTTLSeconds = 15

// RenewDivisor sets the renewal period to TTL/RenewDivisor.
const RenewDivisor = 3

// Manager runs the election algorithm and exposes leadership as an
// observable boolean.
type Manager struct {
	s          store.Store
	clk        clock.Clock
	holderID   string
	ttlSeconds int64

	leader  boolState
}

// NewManager constructs a Manager. holderID identifies this replica
// (typically a hostname+pid or uuid); ttlSeconds <= 0 uses DefaultTTLSeconds.
func NewManager(s store.Store, clk clock.Clock, holderID string, ttlSeconds int64) *Manager {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTTLSeconds
	}
	return &Manager{s: s, clk: clk, holderID: holderID, ttlSeconds: ttlSeconds}
}

// IsLeader reports the last-observed leadership state.
func (m *Manager) IsLeader() bool { return m.leader.get() }

// Changed returns a channel that is closed the next time leadership
// transitions. Callers must re-call Changed after each signal to observe
// subsequent transitions (the classic "broadcast close" pattern).
func (m *Manager) Changed() <-chan struct{} { return m.leader.changed() }

// RenewInterval is how often Run attempts to acquire or renew the lease.
func (m *Manager) RenewInterval() (seconds int64) {
	s := m.ttlSeconds / RenewDivisor
	if s <= 0 {
		s = 1
	}
	return s
}

// tryAcquireOrRenew executes one pass of the algorithm steps 1-5.
func (m *Manager) tryAcquireOrRenew(ctx context.Context) (bool, error) {
	now := m.clk.Now()

	raw, found, err := m.s.Get(ctx, apis.ControllerLeaderLeaseKey)
	if err != nil {
		return false, err
	}

	if !found {
		l := apis.Lease{HolderID: m.holderID, AcquiredAt: now, RenewAt: now, TTLSeconds: m.ttlSeconds}
		return true, m.writeLease(ctx, l)
	}

	var l apis.Lease
	if err := json.Unmarshal(raw, &l); err != nil {
		// A corrupt lease value is treated like an absent one: claim it.
		l = apis.Lease{HolderID: m.holderID, AcquiredAt: now, RenewAt: now, TTLSeconds: m.ttlSeconds}
		return true, m.writeLease(ctx, l)
	}

	switch {
	case l.HolderID == m.holderID:
		l.RenewAt = now
		return true, m.writeLease(ctx, l)
	case l.Expired(now):
		l = apis.Lease{HolderID: m.holderID, AcquiredAt: now, RenewAt: now, TTLSeconds: m.ttlSeconds}
		return true, m.writeLease(ctx, l)
	default:
		return false, nil
	}
}

func (m *Manager) writeLease(ctx context.Context, l apis.Lease) error {
	return store.PutJSON(ctx, m.s, apis.ControllerLeaderLeaseKey, l)
}

// Run executes the election loop until ctx is cancelled, ticking every
// RenewInterval seconds. A store error is treated as "not leader this
// round" and retried next period; it never terminates the loop.
func (m *Manager) Run(ctx context.Context) {
	logger := log.FromContext(ctx).WithName("lease")
	tickerFn := m.clk.NewTicker
	ticker := tickerFn(clockDuration(m.RenewInterval()))
	defer ticker.Stop()

	m.tick(ctx, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.tick(ctx, logger)
		}
	}
}

func (m *Manager) tick(ctx context.Context, logger logr.Logger) {
	isLeader, err := m.tryAcquireOrRenew(ctx)
	if err != nil {
		logger.Error(err, "lease renewal failed, treating as not-leader this round")
		isLeader = false
	}
	if m.leader.set(isLeader) {
		if isLeader {
			logger.Info("acquired leadership", "holder", m.holderID)
		} else {
			logger.Info("lost or did not acquire leadership", "holder", m.holderID)
		}
	}
}
