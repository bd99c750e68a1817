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

// Package api implements the external HTTP surface: node
// registration and heartbeat, the resync-aware watch stream, generic
// namespaced/cluster resource CRUD, and node cordon/uncordon/drain. The
// runtime backend a request ultimately drives (container creation, exec,
// image pulls) is out of scope; this package only ever reads and
// writes the State Store.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/corectlio/corectl/pkg/registration"
	"github.com/corectlio/corectl/pkg/store"
	"github.com/corectlio/corectl/pkg/watch"
)

// Server holds everything the HTTP handlers need.
type Server struct {
	store     store.Store
	bus       *watch.Bus
	registrar *registration.Registrar
}

// New constructs a Server.
func New(s store.Store, bus *watch.Bus, registrar *registration.Registrar) *Server {
	return &Server{store: s, bus: bus, registrar: registrar}
}

// Router builds the full chi mux: request-id + structured request logging
// ambient middleware, permissive CORS for the UI collaborator, then every
// route of the resource API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Post("/register", s.handleRegister)
	r.Get("/metrics", promhttp.HandlerFor(crmetrics.Registry, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/nodes", s.handleListNodes)
		r.Put("/nodes/{name}/heartbeat", s.handleHeartbeat)
		r.Post("/nodes/{name}/cordon", s.handleCordon)
		r.Post("/nodes/{name}/uncordon", s.handleUncordon)
		r.Post("/nodes/{name}/drain", s.handleDrain)
		r.Get("/watch", s.handleWatch)

		r.Route("/namespaces/{ns}/{kind}", func(r chi.Router) {
			r.Get("/", s.handleListNamespaced)
			r.Post("/", s.handleCreateNamespaced)
			r.Get("/{name}", s.handleGetNamespaced)
			r.Delete("/{name}", s.handleDeleteNamespaced)
		})
		r.Route("/namespaces", func(r chi.Router) {
			r.Get("/", s.handleListClusterKind(clusterKindNamespaces))
			r.Post("/", s.handleCreateClusterKind(clusterKindNamespaces))
		})
	})

	return r
}
