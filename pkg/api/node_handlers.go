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
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/store"
)

func (s *Server) findNodeByName(ctx context.Context, name string) (string, *apis.Node, error) {
	entries, err := s.store.ListPrefix(ctx, apis.KindPrefix(apis.KindNodes))
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

func (s *Server) setUnschedulable(w http.ResponseWriter, r *http.Request, unschedulable bool) {
	name := chi.URLParam(r, "name")
	key, node, err := s.findNodeByName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if node == nil {
		http.NotFound(w, r)
		return
	}
	node.Unschedulable = unschedulable
	if err := store.PutJSON(r.Context(), s.store, key, node); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// handleCordon marks a Node Unschedulable so the Scheduler stops placing
// new Pods on it; existing Pods are left running.
func (s *Server) handleCordon(w http.ResponseWriter, r *http.Request) {
	s.setUnschedulable(w, r, true)
}

// handleUncordon reverses a cordon.
func (s *Server) handleUncordon(w http.ResponseWriter, r *http.Request) {
	s.setUnschedulable(w, r, false)
}

// handleDrain cordons the Node and synchronously clears every non-terminal
// Pod scheduled on it back to Pending with no NodeName, letting the
// ReplicaSet/DaemonSet/Job controllers reschedule them on the next pass —
// the same reschedule step the Eviction Controller applies to a failed
// Node, applied here to exactly the Pods on this one Node regardless of
// its health.
func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	key, node, err := s.findNodeByName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if node == nil {
		http.NotFound(w, r)
		return
	}
	node.Unschedulable = true
	if err := store.PutJSON(r.Context(), s.store, key, node); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	podEntries, err := s.store.ListPrefix(r.Context(), apis.KindPrefix(apis.KindPods))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	var errs error
	evicted := 0
	for _, e := range podEntries {
		var p apis.Pod
		if !store.DecodeJSON(e.Value, &p) || p.NodeName != name || p.Status.IsTerminal() {
			continue
		}
		p.NodeName = ""
		p.Status = apis.PodPending
		if err := store.PutJSON(r.Context(), s.store, e.Key, p); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		evicted++
	}
	if errs != nil {
		writeError(w, http.StatusInternalServerError, errs)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"evicted": evicted})
}
