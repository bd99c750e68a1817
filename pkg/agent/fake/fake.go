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

// Package fake provides an in-memory agent.Client for tests and
// standalone runs with no real node agents attached.
package fake

import (
	"context"
	"sync"

	"github.com/corectlio/corectl/pkg/agent"
	"github.com/corectlio/corectl/pkg/apis"
)

// Client always succeeds unless the pod's image is in FailImages. Every
// call is recorded in Calls for test assertions.
type Client struct {
	mu         sync.Mutex
	FailImages map[string]bool
	Calls      []agent.CreateContainerRequest
}

// New constructs a Client with no configured failures.
func New() *Client {
	return &Client{FailImages: map[string]bool{}}
}

func (c *Client) CreateContainer(_ context.Context, req agent.CreateContainerRequest) (apis.RuntimeInfo, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, req)
	fail := c.FailImages[req.Image]
	c.mu.Unlock()

	if fail {
		code := 1
		return apis.RuntimeInfo{ExitCode: &code}, errFailedImage(req.Image)
	}
	return apis.RuntimeInfo{ContainerID: "fake-" + req.PodID}, nil
}

type errFailedImage string

func (e errFailedImage) Error() string { return "fake agent: image " + string(e) + " configured to fail" }
