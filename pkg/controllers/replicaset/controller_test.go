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

package replicaset

import (
	"context"
	"testing"
	"time"

	faketime "k8s.io/utils/clock/testing"

	"github.com/corectlio/corectl/pkg/agent/fake"
	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/scheduling"
	"github.com/corectlio/corectl/pkg/store"
	"github.com/corectlio/corectl/pkg/watch"
)

func newFixture(t *testing.T) (*Controller, store.Store) {
	t.Helper()
	s := store.NewMemoryStore(watch.NewBus(1000))
	ctrl := New(s, scheduling.New(), fake.New(), faketime.NewFakeClock(time.Now()))
	return ctrl, s
}

func putNode(t *testing.T, ctx context.Context, s store.Store, name string) {
	t.Helper()
	n := apis.Node{ID: name + "-id", Name: name, Status: apis.NodeReady}
	if err := store.PutJSON(ctx, s, apis.ClusterKey(apis.KindNodes, n.ID), n); err != nil {
		t.Fatalf("put node: %v", err)
	}
}

func putReplicaSet(t *testing.T, ctx context.Context, s store.Store, rs apis.ReplicaSet) {
	t.Helper()
	if err := store.PutJSON(ctx, s, apis.NamespacedKey(apis.KindReplicaSets, rs.Namespace, rs.ID), rs); err != nil {
		t.Fatalf("put replicaset: %v", err)
	}
}

func countOwnedPods(t *testing.T, ctx context.Context, s store.Store, rsID string) []apis.Pod {
	t.Helper()
	var pods []apis.Pod
	if err := store.ListJSON(ctx, s, apis.KindPrefix(apis.KindPods), func(_ string, raw []byte) bool {
		var p apis.Pod
		if !store.DecodeJSON(raw, &p) || !p.IsOwnedBy(rsID) {
			return false
		}
		pods = append(pods, p)
		return true
	}); err != nil {
		t.Fatalf("list pods: %v", err)
	}
	return pods
}

func TestReconcileScalesUpToReplicas(t *testing.T) {
	ctx := context.Background()
	ctrl, s := newFixture(t)
	putNode(t, ctx, s, "node-a")

	rs := apis.ReplicaSet{ID: "rs-1", Name: "web", Namespace: "default", Spec: apis.ReplicaSetSpec{Replicas: 3}}
	putReplicaSet(t, ctx, s, rs)

	if err := ctrl.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	pods := countOwnedPods(t, ctx, s, rs.ID)
	if len(pods) != 3 {
		t.Fatalf("expected 3 owned pods, got %d", len(pods))
	}
	for _, p := range pods {
		if p.NodeName != "node-a" {
			t.Fatalf("expected pod scheduled to node-a, got %q", p.NodeName)
		}
	}
}

func TestReconcileScalesDownToReplicas(t *testing.T) {
	ctx := context.Background()
	ctrl, s := newFixture(t)
	putNode(t, ctx, s, "node-a")

	rs := apis.ReplicaSet{ID: "rs-1", Name: "web", Namespace: "default", Spec: apis.ReplicaSetSpec{Replicas: 5}}
	putReplicaSet(t, ctx, s, rs)
	if err := ctrl.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile up: %v", err)
	}

	rs.Spec.Replicas = 2
	putReplicaSet(t, ctx, s, rs)
	if err := ctrl.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile down: %v", err)
	}

	pods := countOwnedPods(t, ctx, s, rs.ID)
	if len(pods) != 2 {
		t.Fatalf("expected 2 owned pods after scale-down, got %d", len(pods))
	}
}

func TestReconcileDrivesScheduledPodsToRunning(t *testing.T) {
	ctx := context.Background()
	ctrl, s := newFixture(t)
	putNode(t, ctx, s, "node-a")

	rs := apis.ReplicaSet{ID: "rs-1", Name: "web", Namespace: "default", Spec: apis.ReplicaSetSpec{Replicas: 1}}
	putReplicaSet(t, ctx, s, rs)

	if err := ctrl.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	pods := countOwnedPods(t, ctx, s, rs.ID)
	if len(pods) != 1 {
		t.Fatalf("expected 1 owned pod, got %d", len(pods))
	}
	if pods[0].Status != apis.PodRunning {
		t.Fatalf("expected pod Running after one reconcile pass, got %s", pods[0].Status)
	}
}

func TestReconcileIsIdempotentOnUnchangedInput(t *testing.T) {
	ctx := context.Background()
	ctrl, s := newFixture(t)
	putNode(t, ctx, s, "node-a")

	rs := apis.ReplicaSet{ID: "rs-1", Name: "web", Namespace: "default", Spec: apis.ReplicaSetSpec{Replicas: 2}}
	putReplicaSet(t, ctx, s, rs)

	for i := 0; i < 4; i++ {
		if err := ctrl.Reconcile(ctx); err != nil {
			t.Fatalf("reconcile pass %d: %v", i, err)
		}
	}

	pods := countOwnedPods(t, ctx, s, rs.ID)
	if len(pods) != 2 {
		t.Fatalf("expected convergence to 2 pods, got %d", len(pods))
	}
}
