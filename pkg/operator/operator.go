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

// Package operator wires the process-wide shared handles — store, watch
// bus, lease manager, clock, CA, logger — into a single struct that every
// controller and API handler is constructed from, so nothing in the
// process reaches for global state.
package operator

import (
	"context"
	"fmt"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/corectlio/corectl/pkg/ca"
	"github.com/corectlio/corectl/pkg/lease"
	"github.com/corectlio/corectl/pkg/scheduling"
	"github.com/corectlio/corectl/pkg/store"
	"github.com/corectlio/corectl/pkg/watch"
)

// Operator is the shared dependency set passed by value (as pointers to
// its fields) to every controller and HTTP handler constructor.
type Operator struct {
	Store      store.Store
	Bus        *watch.Bus
	Lease      *lease.Manager
	Scheduler  *scheduling.Scheduler
	CA         ca.Authority
	Clock      clock.Clock
	HolderID   string
}

// Options configures NewOperator. Zero values pick the production
// defaults (bbolt store, real clock).
type Options struct {
	StorePath      string
	BusCapacity    int
	HolderID       string
	LeaseTTLSecond int64
	CA             ca.Authority
	Clock          clock.Clock
}

// New wires a production Operator: opens the bbolt store at opts.StorePath,
// builds the watch bus, lease manager, and scheduler over it, and installs
// a zap-backed logger into ctx via controller-runtime's log package.
func New(ctx context.Context, opts Options) (context.Context, *Operator, error) {
	zl, err := zap.NewProduction()
	if err != nil {
		return ctx, nil, fmt.Errorf("operator: build logger: %w", err)
	}
	logger := zapr.NewLogger(zl)
	ctrllog.SetLogger(logger)
	ctx = ctrllog.IntoContext(ctx, logger)

	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	capacity := opts.BusCapacity
	if capacity <= 0 {
		capacity = watch.DefaultCapacity
	}
	bus := watch.NewBus(capacity)

	s, err := store.Open(opts.StorePath, bus)
	if err != nil {
		return ctx, nil, fmt.Errorf("operator: open store at %s: %w", opts.StorePath, err)
	}

	leaseMgr := lease.NewManager(s, clk, opts.HolderID, opts.LeaseTTLSecond)

	return ctx, &Operator{
		Store:     s,
		Bus:       bus,
		Lease:     leaseMgr,
		Scheduler: scheduling.New(),
		CA:        opts.CA,
		Clock:     clk,
		HolderID:  opts.HolderID,
	}, nil
}
