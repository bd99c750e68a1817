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
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/store"
	"github.com/corectlio/corectl/pkg/validation"
)

// clusterKindNamespaces is the one cluster-scoped kind exposed through the
// generic resource routes; Nodes and Leases are never created this way —
// Nodes only ever come into existence via Register, Leases only via
// the Lease Manager.
const clusterKindNamespaces = apis.KindNamespaces

// namespacedKinds whitelists which {kind} path segments the generic
// namespaced CRUD routes accept, so a typo in the URL 404s instead of
// silently creating a new registry prefix.
var namespacedKinds = map[string]bool{
	apis.KindPods:            true,
	apis.KindServices:        true,
	apis.KindEndpoints:       true,
	apis.KindIngresses:       true,
	apis.KindDeployments:     true,
	apis.KindReplicaSets:     true,
	apis.KindDaemonSets:      true,
	apis.KindJobs:            true,
	apis.KindCronJobs:        true,
	apis.KindHPAs:            true,
	apis.KindConfigMaps:      true,
	apis.KindSecrets:         true,
	apis.KindPVCs:            true,
	apis.KindNetworkPolicies: true,
	apis.KindResourceQuotas:  true,
	apis.KindRoles:           true,
	apis.KindRoleBindings:    true,
}

// resource is a generic registry object: every entity type in pkg/apis
// marshals to JSON with "id"/"name"/"namespace" fields, so the HTTP layer
// can stay schema-agnostic and let each controller interpret its own kind.
type resource map[string]any

func (r resource) id() string        { return stringField(r, "id") }
func (r resource) name() string      { return stringField(r, "name") }
func stringField(r resource, k string) string {
	if v, ok := r[k].(string); ok {
		return v
	}
	return ""
}

func decodeResource(req *http.Request) (resource, error) {
	var r resource
	if err := json.NewDecoder(req.Body).Decode(&r); err != nil {
		return nil, err
	}
	if r == nil {
		r = resource{}
	}
	return r, nil
}

func (s *Server) handleListNamespaced(w http.ResponseWriter, r *http.Request) {
	ns, kind := chi.URLParam(r, "ns"), chi.URLParam(r, "kind")
	if !namespacedKinds[kind] {
		http.NotFound(w, r)
		return
	}
	entries, err := s.store.ListPrefix(r.Context(), apis.NamespacedPrefix(kind, ns))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	items := make([]resource, 0, len(entries))
	for _, e := range entries {
		var item resource
		if store.DecodeJSON(e.Value, &item) {
			items = append(items, item)
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateNamespaced(w http.ResponseWriter, r *http.Request) {
	ns, kind := chi.URLParam(r, "ns"), chi.URLParam(r, "kind")
	if !namespacedKinds[kind] {
		http.NotFound(w, r)
		return
	}
	res, err := decodeResource(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validation.ValidateName(res.name()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if res.id() == "" {
		res["id"] = uuid.NewString()
	}
	res["namespace"] = ns
	if err := store.PutJSON(r.Context(), s.store, apis.NamespacedKey(kind, ns, res.id()), res); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) findNamespacedByName(r *http.Request, ns, kind, name string) (string, resource, error) {
	entries, err := s.store.ListPrefix(r.Context(), apis.NamespacedPrefix(kind, ns))
	if err != nil {
		return "", nil, err
	}
	for _, e := range entries {
		var item resource
		if store.DecodeJSON(e.Value, &item) && item.name() == name {
			return e.Key, item, nil
		}
	}
	return "", nil, nil
}

func (s *Server) handleGetNamespaced(w http.ResponseWriter, r *http.Request) {
	ns, kind, name := chi.URLParam(r, "ns"), chi.URLParam(r, "kind"), chi.URLParam(r, "name")
	if !namespacedKinds[kind] {
		http.NotFound(w, r)
		return
	}
	_, item, err := s.findNamespacedByName(r, ns, kind, name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if item == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteNamespaced(w http.ResponseWriter, r *http.Request) {
	ns, kind, name := chi.URLParam(r, "ns"), chi.URLParam(r, "kind"), chi.URLParam(r, "name")
	if !namespacedKinds[kind] {
		http.NotFound(w, r)
		return
	}
	key, item, err := s.findNamespacedByName(r, ns, kind, name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if item == nil {
		http.NotFound(w, r)
		return
	}
	if err := s.store.Delete(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListClusterKind(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.store.ListPrefix(r.Context(), apis.KindPrefix(kind))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		items := make([]resource, 0, len(entries))
		for _, e := range entries {
			var item resource
			if store.DecodeJSON(e.Value, &item) {
				items = append(items, item)
			}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) handleCreateClusterKind(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := decodeResource(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := validation.ValidateName(res.name()); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if res.id() == "" {
			res["id"] = uuid.NewString()
		}
		if err := store.PutJSON(r.Context(), s.store, apis.ClusterKey(kind, res.id()), res); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListPrefix(r.Context(), apis.KindPrefix(apis.KindNodes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	nodes := make([]apis.Node, 0, len(entries))
	for _, e := range entries {
		var n apis.Node
		if store.DecodeJSON(e.Value, &n) {
			nodes = append(nodes, n)
		}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
