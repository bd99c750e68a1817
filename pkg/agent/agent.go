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

// Package agent declares the node agent collaborator interface: the
// container/microVM runtime backend the ReplicaSet, DaemonSet and Job
// controllers hand a pod's first container off to once it is Scheduled.
// The runtime backend itself is explicitly out of scope; the core
// only ever drives the Scheduled → ContainerCreating → Running|Failed
// transition and reads back whatever RuntimeInfo the agent reports.
package agent

import (
	"context"

	"github.com/corectlio/corectl/pkg/apis"
)

// CreateContainerRequest is everything the agent needs to start a pod's
// first container on its assigned node.
type CreateContainerRequest struct {
	NodeAddress  string
	NodeAPIPort  int
	PodID        string
	Image        string
	Command      []string
}

// Client is the collaborator the core calls out to once a pod has been
// scheduled; a real implementation talks to the agent's own HTTP API on
// NodeAddress:NodeAPIPort, which this module never implements.
type Client interface {
	CreateContainer(ctx context.Context, req CreateContainerRequest) (apis.RuntimeInfo, error)
}
