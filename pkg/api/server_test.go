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

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	faketime "k8s.io/utils/clock/testing"

	"github.com/corectlio/corectl/pkg/apis"
	fakeca "github.com/corectlio/corectl/pkg/ca/fake"
	"github.com/corectlio/corectl/pkg/registration"
	"github.com/corectlio/corectl/pkg/store"
	"github.com/corectlio/corectl/pkg/watch"
)

const testToken = "demo-token-123"

func newTestServer(t *testing.T) (*Server, store.Store, *watch.Bus) {
	t.Helper()
	bus := watch.NewBus(1000)
	s := store.NewMemoryStore(bus)
	authority, err := fakeca.New()
	if err != nil {
		t.Fatalf("fakeca.New: %v", err)
	}
	clk := faketime.NewFakeClock(time.Now())
	registrar := registration.New(s, authority, clk, testToken)
	return New(s, bus, registrar), s, bus
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleRegisterAndListNodes(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/register", registerRequest{
		NodeName: "w1", Token: testToken, Address: "10.0.0.5",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var resp registerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if resp.NodeID == "" {
		t.Fatal("register response missing node_id")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/nodes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list nodes status = %d", rec.Code)
	}
	var nodes []apis.Node
	if err := json.Unmarshal(rec.Body.Bytes(), &nodes); err != nil {
		t.Fatalf("decode node list: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Name != "w1" || nodes[0].Status != apis.NodeReady {
		t.Fatalf("unexpected node list: %+v", nodes)
	}
}

func TestHandleRegisterBadTokenUnauthorized(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/register", registerRequest{NodeName: "w1", Token: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleHeartbeatUnknownNodeNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPut, "/api/v1/nodes/ghost/heartbeat", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestNamespacedCRUDRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	pod := map[string]any{"name": "nginx", "spec": map[string]any{}}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/namespaces/default/pods", pod)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var created resource
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.id() == "" || created.name() != "nginx" {
		t.Fatalf("created resource missing id/name: %+v", created)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/namespaces/default/pods/nginx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/namespaces/default/pods", nil)
	var list []resource
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 listed pod, got %d", len(list))
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/namespaces/default/pods/nginx", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/namespaces/default/pods/nginx", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateNamespacedRejectsInvalidName(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	pod := map[string]any{"name": "My_Pod!", "spec": map[string]any{}}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/namespaces/default/pods", pod)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("create status = %d, want 400", rec.Code)
	}
}

func TestNamespacedCRUDRejectsUnknownKind(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/namespaces/default/widgets", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown kind", rec.Code)
	}
}

func TestCordonUncordonDrain(t *testing.T) {
	ctx := context.Background()
	srv, s, _ := newTestServer(t)
	router := srv.Router()

	node := apis.Node{ID: "n-1", Name: "w1", Status: apis.NodeReady}
	if err := store.PutJSON(ctx, s, apis.ClusterKey(apis.KindNodes, node.ID), node); err != nil {
		t.Fatalf("seed node: %v", err)
	}
	pod := apis.Pod{ID: "p-1", Name: "p1", Namespace: "default", NodeName: "w1", Status: apis.PodRunning}
	if err := store.PutJSON(ctx, s, apis.NamespacedKey(apis.KindPods, "default", pod.ID), pod); err != nil {
		t.Fatalf("seed pod: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/nodes/w1/cordon", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cordon status = %d", rec.Code)
	}
	var got apis.Node
	json.Unmarshal(rec.Body.Bytes(), &got)
	if !got.Unschedulable {
		t.Fatal("expected node Unschedulable after cordon")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/nodes/w1/drain", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("drain status = %d", rec.Code)
	}

	var p apis.Pod
	ok, err := store.GetJSON(ctx, s, apis.NamespacedKey(apis.KindPods, "default", pod.ID), &p)
	if err != nil || !ok {
		t.Fatalf("get pod after drain: ok=%v err=%v", ok, err)
	}
	if p.NodeName != "" || p.Status != apis.PodPending {
		t.Fatalf("drained pod not rescheduled: %+v", p)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/nodes/w1/uncordon", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("uncordon status = %d", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Unschedulable {
		t.Fatal("expected node schedulable after uncordon")
	}
}

func TestCordonUnknownNodeNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/nodes/ghost/cordon", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleWatchReplaysBufferedEventsThenTails(t *testing.T) {
	ctx := context.Background()
	srv, s, _ := newTestServer(t)

	// Seed one event before the client subscribes so the handler's replay
	// path (EventsSince) is exercised, not just the live tail.
	if err := store.PutJSON(ctx, s, "/registry/pods/default/p-1", map[string]string{"id": "p-1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watch?prefix=/registry/pods/&seq=0", nil)
	reqCtx, cancel := context.WithCancel(context.Background())
	req = req.WithContext(reqCtx)

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		srv.Router().ServeHTTP(rec, req)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if strings.Contains(rec.Body.String(), `"p-1"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for replayed event, got body: %s", rec.Body.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A second write after subscription should appear via the live tail.
	if err := store.PutJSON(ctx, s, "/registry/pods/default/p-2", map[string]string{"id": "p-2"}); err != nil {
		t.Fatalf("put p-2: %v", err)
	}
	deadline = time.Now().Add(2 * time.Second)
	for {
		if strings.Contains(rec.Body.String(), `"p-2"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for live-tailed event, got body: %s", rec.Body.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch handler did not return after client cancellation")
	}

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	sawData := false
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "data: ") {
			sawData = true
		}
	}
	if !sawData {
		t.Fatal("expected at least one SSE data line")
	}
}
