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

package apis

import (
	"testing"
	"time"
)

func TestLeaseExpired(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := Lease{HolderID: "a", RenewAt: base, TTLSeconds: 15}

	if l.Expired(base.Add(10 * time.Second)) {
		t.Fatal("lease should not be expired within its TTL")
	}
	if !l.Expired(base.Add(16 * time.Second)) {
		t.Fatal("lease should be expired once more than TTL has elapsed since RenewAt")
	}
}

func TestIsOpaqueKind(t *testing.T) {
	if !IsOpaqueKind(KindServices) {
		t.Fatal("expected services to be an opaque kind")
	}
	if IsOpaqueKind(KindPods) {
		t.Fatal("pods are reconciled, not opaque")
	}
	if IsOpaqueKind(KindDeployments) {
		t.Fatal("deployments are reconciled, not opaque")
	}
}

func TestKeyBuilders(t *testing.T) {
	if got, want := NamespacedKey(KindPods, "default", "p-1"), "/registry/pods/default/p-1"; got != want {
		t.Fatalf("NamespacedKey = %q, want %q", got, want)
	}
	if got, want := NamespacedPrefix(KindPods, "default"), "/registry/pods/default/"; got != want {
		t.Fatalf("NamespacedPrefix = %q, want %q", got, want)
	}
	if got, want := KindPrefix(KindNodes), "/registry/nodes/"; got != want {
		t.Fatalf("KindPrefix = %q, want %q", got, want)
	}
	if got, want := ClusterKey(KindNodes, "n-1"), "/registry/nodes/n-1"; got != want {
		t.Fatalf("ClusterKey = %q, want %q", got, want)
	}
	if got, want := NamespacePrefix(), "/registry/namespaces/"; got != want {
		t.Fatalf("NamespacePrefix = %q, want %q", got, want)
	}
}
