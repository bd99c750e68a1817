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

// Package registration implements the two core-facing entry points a node
// agent calls before it is scheduled to: Register and Heartbeat (keeps a registered Node Ready).
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"k8s.io/utils/clock"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/ca"
	"github.com/corectlio/corectl/pkg/metrics"
	"github.com/corectlio/corectl/pkg/store"
	"github.com/corectlio/corectl/pkg/validation"
)

// ErrInvalidToken is returned when Register is called with a token that
// does not match the configured join token.
var ErrInvalidToken = errors.New("registration: invalid join token")

// ErrInvalidName is returned when Register is called with a node name that
// fails the DNS-1123 label rule.
var ErrInvalidName = errors.New("registration: invalid node name")

// ErrNodeNotFound is returned when Heartbeat targets a node that was never
// registered.
var ErrNodeNotFound = errors.New("registration: node not found")

// idempotencyWindow bounds how long a duplicate registration request
// replays the same response instead of minting a second Node and a second
// certificate, absorbing the agent retrying a register call whose response
// it never saw.
const idempotencyWindow = 5 * time.Minute

// Request is what a node agent sends to join the cluster.
type Request struct {
	NodeName string
	Token    string
	Labels   map[string]string
	Address  string
	Port     int
	Capacity apis.ResourceList
}

// Response is everything the agent needs to start heartbeating and talking
// to the rest of the control plane over mTLS.
type Response struct {
	NodeID      string
	Certificate string
	PrivateKey  string
	ServerCA    string
}

// Registrar handles node Register/Heartbeat requests.
type Registrar struct {
	store     store.Store
	ca        ca.Authority
	clock     clock.Clock
	joinToken string
	seen      *cache.Cache
}

// New constructs a Registrar gated on joinToken.
func New(s store.Store, authority ca.Authority, clk clock.Clock, joinToken string) *Registrar {
	return &Registrar{
		store:     s,
		ca:        authority,
		clock:     clk,
		joinToken: joinToken,
		seen:      cache.New(idempotencyWindow, idempotencyWindow/2),
	}
}

// Register validates req.Token, issues a fresh node certificate, and
// persists the Node in Ready status. If a Node with this name is
// already registered — an agent restarting and rejoining — its existing id
// is reused and the call is treated as a heartbeat rather than a conflict.
// A request that exactly repeats a recently-seen NodeName+Token pair within the
// idempotency window replays the cached response instead of issuing a
// second certificate for the same rejoin.
func (r *Registrar) Register(ctx context.Context, req Request) (Response, error) {
	if req.Token == "" || req.Token != r.joinToken {
		return Response{}, ErrInvalidToken
	}
	if err := validation.ValidateName(req.NodeName); err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrInvalidName, err)
	}

	cacheKey := req.NodeName + ":" + req.Token
	if cached, ok := r.seen.Get(cacheKey); ok {
		return cached.(Response), nil
	}

	key, existing, err := r.findByName(ctx, req.NodeName)
	if err != nil {
		return Response{}, err
	}

	var certPEM, keyPEM string
	err = retry.Do(
		func() error {
			c, k, err := r.ca.IssueNodeCert(req.NodeName)
			if err != nil {
				return err
			}
			certPEM, keyPEM = c, k
			return nil
		},
		retry.Attempts(3),
		retry.Context(ctx),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return Response{}, fmt.Errorf("registration: issue node cert: %w", err)
	}

	node := apis.Node{
		ID:            uuid.NewString(),
		Name:          req.NodeName,
		Address:       req.Address,
		AgentAPIPort:  req.Port,
		Status:        apis.NodeReady,
		RegisteredAt:  r.clock.Now(),
		LastHeartbeat: r.clock.Now(),
		Labels:        req.Labels,
		Capacity:      req.Capacity,
	}
	if existing != nil {
		node.ID = existing.ID
		node.RegisteredAt = existing.RegisteredAt
		node.Taints = existing.Taints
		node.Allocated = existing.Allocated
		node.Unschedulable = existing.Unschedulable
	} else {
		key = apis.ClusterKey(apis.KindNodes, node.ID)
	}
	if err := store.PutJSON(ctx, r.store, key, node); err != nil {
		return Response{}, fmt.Errorf("registration: persist node: %w", err)
	}

	resp := Response{
		NodeID:      node.ID,
		Certificate: certPEM,
		PrivateKey:  keyPEM,
		ServerCA:    r.ca.CACertPEM(),
	}
	r.seen.Set(cacheKey, resp, cache.DefaultExpiration)
	return resp, nil
}

// findByName scans the Nodes kind for a Node with the given name, returning
// its registry key alongside it so Register can overwrite it in place.
func (r *Registrar) findByName(ctx context.Context, name string) (string, *apis.Node, error) {
	entries, err := r.store.ListPrefix(ctx, apis.KindPrefix(apis.KindNodes))
	if err != nil {
		return "", nil, err
	}
	for _, e := range entries {
		var n apis.Node
		if store.DecodeJSON(e.Value, &n) && n.Name == name {
			return e.Key, &n, nil
		}
	}
	return "", nil, nil
}

// Heartbeat refreshes a registered node's LastHeartbeat and forces it back
// to Ready; the Node controller is solely responsible for ever marking it
// NotReady/Unknown again.
func (r *Registrar) Heartbeat(ctx context.Context, nodeName string) error {
	entries, err := r.store.ListPrefix(ctx, apis.KindPrefix(apis.KindNodes))
	if err != nil {
		return err
	}
	for _, e := range entries {
		var n apis.Node
		if !store.DecodeJSON(e.Value, &n) || n.Name != nodeName {
			continue
		}
		n.LastHeartbeat = r.clock.Now()
		n.Status = apis.NodeReady
		if err := store.PutJSON(ctx, r.store, e.Key, n); err != nil {
			return err
		}
		metrics.HeartbeatsTotal.Inc(map[string]string{metrics.NodeLabel: nodeName})
		return nil
	}
	return ErrNodeNotFound
}
