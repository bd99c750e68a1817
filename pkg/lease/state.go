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

package lease

import (
	"sync"
	"time"
)

// boolState is an observable boolean: readers can poll it or block on
// Changed until the value flips. It is the Go analogue of the Rust
// tokio::sync::watch<bool> channel the election loop is grounded on.
type boolState struct {
	mu      sync.RWMutex
	value   bool
	changedCh chan struct{}
	once    sync.Once
}

func (b *boolState) init() {
	b.once.Do(func() { b.changedCh = make(chan struct{}) })
}

func (b *boolState) get() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

func (b *boolState) changed() <-chan struct{} {
	b.init()
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.changedCh
}

// set updates the value and, if it changed, closes the previous channel to
// wake any waiters. Returns whether the value actually transitioned.
func (b *boolState) set(v bool) bool {
	b.init()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.value == v {
		return false
	}
	b.value = v
	close(b.changedCh)
	b.changedCh = make(chan struct{})
	return true
}

func clockDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}
