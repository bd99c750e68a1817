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

package store

import (
	"context"
	"encoding/json"
)

// PutJSON marshals v as canonical JSON and writes it at key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return wrapErr("marshal", key, err)
	}
	return s.Put(ctx, key, data)
}

// GetJSON reads key and unmarshals it into v. ok is false if the key is
// absent; a corrupt value is treated as absent rather than returned as an
// error, matching the "controllers deserialize defensively" contract.
func GetJSON(ctx context.Context, s Store, key string, v any) (ok bool, err error) {
	data, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// ListJSON lists every entry under prefix and decodes it with decode,
// silently skipping any entry decode rejects (corrupt values are skipped by
// the caller,).
func ListJSON(ctx context.Context, s Store, prefix string, decode func(key string, raw []byte) bool) error {
	entries, err := s.ListPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	for _, e := range entries {
		decode(e.Key, e.Value)
	}
	return nil
}

// DecodeJSON unmarshals raw into v, reporting false on a malformed value so
// callers can skip it rather than fail the whole reconcile pass.
func DecodeJSON(raw []byte, v any) bool {
	return json.Unmarshal(raw, v) == nil
}
