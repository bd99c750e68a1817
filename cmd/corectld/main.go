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

// Command corectld is the control-plane process: it opens the durable
// store, wires the watch bus, lease manager, scheduler, registration and
// API surface over it, and runs the leader-gated controller runtime until
// it receives a shutdown signal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	fakeca "github.com/corectlio/corectl/pkg/ca/fake"
	fakeagent "github.com/corectlio/corectl/pkg/agent/fake"
	"github.com/corectlio/corectl/pkg/api"
	"github.com/corectlio/corectl/pkg/controllers/cronjob"
	"github.com/corectlio/corectl/pkg/controllers/daemonset"
	"github.com/corectlio/corectl/pkg/controllers/deployment"
	"github.com/corectlio/corectl/pkg/controllers/eviction"
	"github.com/corectlio/corectl/pkg/controllers/hpa"
	"github.com/corectlio/corectl/pkg/controllers/job"
	"github.com/corectlio/corectl/pkg/controllers/node"
	"github.com/corectlio/corectl/pkg/controllers/replicaset"
	"github.com/corectlio/corectl/pkg/controllers/runtime"
	"github.com/corectlio/corectl/pkg/operator"
	"github.com/corectlio/corectl/pkg/registration"
)

var (
	storePath   string
	listenAddr  string
	joinToken   string
	leaseTTL    int64
	busCapacity int
)

func main() {
	root := &cobra.Command{
		Use:           "corectld",
		Short:         "corectl control-plane server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := root.Flags()
	flags.StringVar(&storePath, "store-path", "corectl.db", "path to the durable state store file")
	flags.StringVar(&listenAddr, "listen", ":8080", "address the HTTP API surface listens on")
	flags.StringVar(&joinToken, "join-token", "demo-token-123", "shared secret nodes present to /register")
	flags.Int64Var(&leaseTTL, "lease-ttl-seconds", 15, "leader lease TTL in seconds")
	flags.IntVar(&busCapacity, "watch-buffer", 10000, "number of retained watch-bus events")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authority, err := fakeca.New()
	if err != nil {
		return fmt.Errorf("corectld: build CA: %w", err)
	}

	ctx, op, err := operator.New(ctx, operator.Options{
		StorePath:      storePath,
		BusCapacity:    busCapacity,
		HolderID:       uuid.NewString(),
		LeaseTTLSecond: leaseTTL,
		CA:             authority,
	})
	if err != nil {
		return fmt.Errorf("corectld: open store at %s: %w", storePath, err)
	}
	defer op.Store.Close()

	logger := ctrllog.FromContext(ctx).WithName("corectld")

	agentClient := fakeagent.New()
	registrar := registration.New(op.Store, op.CA, op.Clock, joinToken)

	controllerSet := []runtime.Controller{
		deployment.New(op.Store),
		replicaset.New(op.Store, op.Scheduler, agentClient, op.Clock),
		daemonset.New(op.Store, agentClient, op.Clock),
		job.New(op.Store, op.Scheduler, agentClient, op.Clock),
		cronjob.New(op.Store, op.Clock),
		hpa.New(op.Store, op.Clock),
		node.New(op.Store, op.Clock),
		eviction.New(op.Store, op.Clock),
	}
	mgr := runtime.NewManager(op.Lease, controllerSet...)

	server := api.New(op.Store, op.Bus, registrar)
	httpSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("controller runtime starting")
		errCh <- mgr.Start(ctx)
	}()
	go func() {
		logger.Info("http server listening", "addr", listenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			logger.Error(err, "component exited unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "http server shutdown")
	}

	return nil
}
