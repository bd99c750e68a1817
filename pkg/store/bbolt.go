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
	"bytes"
	"context"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/corectlio/corectl/pkg/watch"
)

var registryBucket = []byte("registry")

// BoltStore is the bbolt-backed State Store. bbolt's single B+tree gives
// lexicographic key ordering for free and fsyncs every
// transaction by default, so a successful Put/Delete is durable before the
// call returns.
type BoltStore struct {
	db  *bbolt.DB
	bus *watch.Bus
}

// Open opens (creating if absent) a bbolt database at path and wires it to
// bus so every successful mutation is published with a monotonic seq.
func Open(path string, bus *watch.Bus) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, wrapErr("open", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(registryBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, wrapErr("open", path, err)
	}
	return &BoltStore{db: db, bus: bus}, nil
}

func (s *BoltStore) Put(_ context.Context, key string, value []byte) error {
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(registryBucket).Put([]byte(key), value)
	}); err != nil {
		return wrapErr("put", key, err)
	}
	s.bus.EmitPut(key, value)
	return nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(registryBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, wrapErr("get", key, err)
	}
	return value, found, nil
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(registryBucket).Delete([]byte(key))
	}); err != nil {
		return wrapErr("delete", key, err)
	}
	s.bus.EmitDelete(key)
	return nil
}

func (s *BoltStore) ListPrefix(_ context.Context, prefix string) ([]KV, error) {
	var out []KV
	p := []byte(prefix)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(registryBucket).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			out = append(out, KV{Key: string(k), Value: append([]byte(nil), v...)})
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("list_prefix", prefix, err)
	}
	// bbolt's cursor already walks the B+tree in key order; the explicit
	// sort is a defensive no-op that keeps the contract obvious to readers
	// and costs nothing on an already-sorted slice.
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
