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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
	return nil
}

// handleWatch streams watch events as Server-Sent Events: any buffered
// events since ?seq= are replayed first, then live events matching
// ?prefix= follow as they're emitted. If ?seq= is older than the oldest
// event still retained in the ring, a resync event is sent first so the
// client knows to re-list the prefix before trusting the stream.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	prefix := r.URL.Query().Get("prefix")
	fromSeq := uint64(0)
	if raw := r.URL.Query().Get("seq"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		fromSeq = parsed
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	buffered, complete := s.bus.EventsSince(fromSeq)
	if !complete {
		if err := writeSSE(w, flusher, "resync", map[string]uint64{"seq": s.bus.CurrentSeq()}); err != nil {
			return
		}
	}
	for _, ev := range buffered {
		if prefix != "" && !hasPrefix(ev.Key, prefix) {
			continue
		}
		if err := writeSSE(w, flusher, "", ev); err != nil {
			return
		}
	}

	sub := s.bus.Subscribe(prefix)
	defer func() { sub.Close() }()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Lagged:
			_ = writeSSE(w, flusher, "resync", map[string]uint64{"seq": s.bus.CurrentSeq()})
			sub = s.bus.Subscribe(prefix)
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			if err := writeSSE(w, flusher, "", ev); err != nil {
				return
			}
		}
	}
}

func hasPrefix(key, prefix string) bool {
	return len(key) >= len(prefix) && key[:len(prefix)] == prefix
}
