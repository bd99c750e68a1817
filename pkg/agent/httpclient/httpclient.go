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

// Package httpclient is the production agent.Client: it POSTs a container
// creation request to the node agent's own HTTP API at
// NodeAddress:NodeAPIPort and retries transient failures a bounded number
// of times before giving up.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"github.com/corectlio/corectl/pkg/agent"
	"github.com/corectlio/corectl/pkg/apis"
)

// Client calls out to node agents over HTTP.
type Client struct {
	httpClient *http.Client
	attempts   uint
}

// New constructs a Client with a bounded per-call timeout and retry budget.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		attempts:   3,
	}
}

func (c *Client) CreateContainer(ctx context.Context, req agent.CreateContainerRequest) (apis.RuntimeInfo, error) {
	var info apis.RuntimeInfo
	body, err := json.Marshal(req)
	if err != nil {
		return info, fmt.Errorf("agent: marshal request: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/containers", req.NodeAddress, req.NodeAPIPort)
	err = retry.Do(
		func() error {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return fmt.Errorf("agent %s: server error %d", url, resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("agent %s: client error %d", url, resp.StatusCode))
			}
			return json.NewDecoder(resp.Body).Decode(&info)
		},
		retry.Attempts(c.attempts),
		retry.Context(ctx),
		retry.DelayType(retry.BackOffDelay),
	)
	return info, err
}
