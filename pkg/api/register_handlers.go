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
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/registration"
)

type registerRequest struct {
	NodeName string            `json:"node_name"`
	Token    string            `json:"token"`
	Labels   map[string]string `json:"labels"`
	Address  string            `json:"address"`
	Port     int               `json:"port"`
	Capacity apis.ResourceList `json:"capacity"`
}

type registerResponse struct {
	NodeID      string `json:"node_id"`
	Certificate string `json:"certificate"`
	PrivateKey  string `json:"private_key"`
	ServerCA    string `json:"server_ca"`
}

// handleRegister is the first call a node agent makes: it exchanges a
// join token for a node certificate and a durable Node record.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := s.registrar.Register(r.Context(), registration.Request{
		NodeName: req.NodeName,
		Token:    req.Token,
		Labels:   req.Labels,
		Address:  req.Address,
		Port:     req.Port,
		Capacity: req.Capacity,
	})
	if err != nil {
		if errors.Is(err, registration.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if errors.Is(err, registration.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		NodeID:      resp.NodeID,
		Certificate: resp.Certificate,
		PrivateKey:  resp.PrivateKey,
		ServerCA:    resp.ServerCA,
	})
}

// handleHeartbeat keeps a registered node Ready.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.registrar.Heartbeat(r.Context(), name); err != nil {
		if errors.Is(err, registration.ErrNodeNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
