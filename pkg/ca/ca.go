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

// Package ca declares the Certificate Authority collaborator interface.
// The core never issues certificates itself — it calls out to
// whatever CA implementation the deployment wires in during registration
// — so this package only defines the contract plus a fake for
// tests; pkg/ca/fake backs every suite in this module.
package ca

// Authority issues per-node TLS credentials signed by the cluster CA and
// hands back the CA's own certificate so agents can verify the server.
type Authority interface {
	// IssueNodeCert returns a PEM-encoded certificate and private key for
	// nodeName, signed by the cluster root.
	IssueNodeCert(nodeName string) (certPEM, keyPEM string, err error)

	// CACertPEM returns the PEM-encoded CA certificate.
	CACertPEM() string
}
