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

package fake

import (
	"context"
	"testing"

	"github.com/corectlio/corectl/pkg/agent"
)

func TestCreateContainerSucceedsByDefault(t *testing.T) {
	c := New()
	info, err := c.CreateContainer(context.Background(), agent.CreateContainerRequest{PodID: "p-1", Image: "nginx:latest"})
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if info.ContainerID != "fake-p-1" {
		t.Fatalf("ContainerID = %q, want fake-p-1", info.ContainerID)
	}
	if len(c.Calls) != 1 || c.Calls[0].PodID != "p-1" {
		t.Fatalf("expected the call recorded, got %+v", c.Calls)
	}
}

func TestCreateContainerFailsForConfiguredImage(t *testing.T) {
	c := New()
	c.FailImages["broken:latest"] = true

	info, err := c.CreateContainer(context.Background(), agent.CreateContainerRequest{PodID: "p-2", Image: "broken:latest"})
	if err == nil {
		t.Fatal("expected an error for a configured failing image")
	}
	if info.ExitCode == nil || *info.ExitCode != 1 {
		t.Fatalf("expected ExitCode 1 on failure, got %+v", info.ExitCode)
	}
}
