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

// Package hash computes the stable template hash the Deployment controller
// uses to tell ReplicaSets with an unchanged template apart from ones that
// need a rollout.
package hash

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
)

// TemplateHash returns a stable hex string derived from v's structure. Equal
// values (field-for-field) always yield the same string; it is not a
// cryptographic digest and carries no other guarantee.
func TemplateHash(v any) string {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		// hashstructure only errors on unsupported field types (channels,
		// funcs); PodSpec contains neither, so this is unreachable in
		// practice. Fall back to a fixed marker rather than panicking a
		// reconcile loop over it.
		return "unhashable"
	}
	return fmt.Sprintf("%x", h)
}
