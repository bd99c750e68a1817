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

package eviction

import (
	"context"
	"testing"
	"time"

	faketime "k8s.io/utils/clock/testing"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/store"
	"github.com/corectlio/corectl/pkg/watch"
)

func getPod(t *testing.T, ctx context.Context, s store.Store, ns, id string) apis.Pod {
	t.Helper()
	var p apis.Pod
	ok, err := store.GetJSON(ctx, s, apis.NamespacedKey(apis.KindPods, ns, id), &p)
	if err != nil || !ok {
		t.Fatalf("get pod: ok=%v err=%v", ok, err)
	}
	return p
}

func TestReconcileEvictsPodsFromLongUnknownNode(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(watch.NewBus(1000))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := faketime.NewFakeClock(base)
	ctrl := New(s, clk)

	n := apis.Node{ID: "n-1", Name: "node-a", Status: apis.NodeUnknown, LastHeartbeat: base}
	if err := store.PutJSON(ctx, s, apis.ClusterKey(apis.KindNodes, n.ID), n); err != nil {
		t.Fatalf("put node: %v", err)
	}
	p := apis.Pod{ID: "p-1", Name: "web-abc", Namespace: "default", NodeName: n.Name, Status: apis.PodRunning}
	if err := store.PutJSON(ctx, s, apis.NamespacedKey(apis.KindPods, p.Namespace, p.ID), p); err != nil {
		t.Fatalf("put pod: %v", err)
	}

	clk.Step(GracePeriod + time.Second)
	if err := ctrl.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got := getPod(t, ctx, s, p.Namespace, p.ID)
	if got.NodeName != "" {
		t.Fatalf("expected node_name cleared on eviction, got %q", got.NodeName)
	}
	if got.Status != apis.PodPending {
		t.Fatalf("expected pod reset to Pending on eviction, got %s", got.Status)
	}
}

func TestReconcileLeavesPodsOnNodeWithinGracePeriod(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(watch.NewBus(1000))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := faketime.NewFakeClock(base)
	ctrl := New(s, clk)

	n := apis.Node{ID: "n-1", Name: "node-a", Status: apis.NodeUnknown, LastHeartbeat: base}
	if err := store.PutJSON(ctx, s, apis.ClusterKey(apis.KindNodes, n.ID), n); err != nil {
		t.Fatalf("put node: %v", err)
	}
	p := apis.Pod{ID: "p-1", Name: "web-abc", Namespace: "default", NodeName: n.Name, Status: apis.PodRunning}
	if err := store.PutJSON(ctx, s, apis.NamespacedKey(apis.KindPods, p.Namespace, p.ID), p); err != nil {
		t.Fatalf("put pod: %v", err)
	}

	clk.Step(GracePeriod / 2)
	if err := ctrl.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got := getPod(t, ctx, s, p.Namespace, p.ID)
	if got.NodeName != n.Name || got.Status != apis.PodRunning {
		t.Fatalf("expected pod untouched within the grace period, got node=%q status=%s", got.NodeName, got.Status)
	}
}

func TestReconcileNeverEvictsTerminalPods(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(watch.NewBus(1000))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := faketime.NewFakeClock(base)
	ctrl := New(s, clk)

	n := apis.Node{ID: "n-1", Name: "node-a", Status: apis.NodeUnknown, LastHeartbeat: base}
	if err := store.PutJSON(ctx, s, apis.ClusterKey(apis.KindNodes, n.ID), n); err != nil {
		t.Fatalf("put node: %v", err)
	}
	p := apis.Pod{ID: "p-1", Name: "job-xyz", Namespace: "default", NodeName: n.Name, Status: apis.PodSucceeded}
	if err := store.PutJSON(ctx, s, apis.NamespacedKey(apis.KindPods, p.Namespace, p.ID), p); err != nil {
		t.Fatalf("put pod: %v", err)
	}

	clk.Step(GracePeriod + time.Second)
	if err := ctrl.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got := getPod(t, ctx, s, p.Namespace, p.ID)
	if got.NodeName != n.Name || got.Status != apis.PodSucceeded {
		t.Fatalf("expected a terminal pod left alone, got node=%q status=%s", got.NodeName, got.Status)
	}
}
