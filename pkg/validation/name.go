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

// Package validation implements the Validator collaborator interface:
// name validation per the DNS-1123 label rule in spec.md
package validation

import (
	"fmt"
	"regexp"
)

const maxNameLength = 63

var dns1123Label = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidateName reports whether name is a valid lowercase DNS-1123 label:
// non-empty, at most 63 characters, [a-z0-9-], no leading or trailing hyphen.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name %q must be at most %d characters", name, maxNameLength)
	}
	if !dns1123Label.MatchString(name) {
		return fmt.Errorf("name %q must consist of lowercase alphanumerics or '-', start and end with an alphanumeric", name)
	}
	return nil
}
