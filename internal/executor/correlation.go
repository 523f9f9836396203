package executor

import "sync"

// Correlation table defaults: entries expire after five minutes and the
// table never holds more than 64 chat ids, evicting least-recently-used.
const (
	correlationMaxEntries = 64
	correlationTTLMS      = 5 * 60 * 1000
)

// CorrelationTable remembers which chat request ids already had their
// segments emitted by the streamer, so the matching SAY effect suppresses
// its own segmentation and emits only the terminal speak envelope.
type CorrelationTable struct {
	mu         sync.Mutex
	maxEntries int
	ttlMS      int64
	recordedAt map[string]int64
	lru        []string
}

func NewCorrelationTable() *CorrelationTable {
	return &CorrelationTable{
		maxEntries: correlationMaxEntries,
		ttlMS:      correlationTTLMS,
		recordedAt: make(map[string]int64),
	}
}

// Set records that the stream for chatRequestID emitted segments at nowMS.
func (t *CorrelationTable) Set(chatRequestID string, nowMS int64) {
	if chatRequestID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(nowMS)
	if _, ok := t.recordedAt[chatRequestID]; ok {
		t.removeLRULocked(chatRequestID)
	}
	t.recordedAt[chatRequestID] = nowMS
	t.lru = append(t.lru, chatRequestID)

	for len(t.lru) > t.maxEntries {
		evict := t.lru[0]
		t.lru = t.lru[1:]
		delete(t.recordedAt, evict)
	}
}

// Delete removes chatRequestID and reports whether it was present and
// unexpired. Expired entries are treated as absent.
func (t *CorrelationTable) Delete(chatRequestID string, nowMS int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(nowMS)
	recordedAt, ok := t.recordedAt[chatRequestID]
	if !ok {
		return false
	}
	delete(t.recordedAt, chatRequestID)
	t.removeLRULocked(chatRequestID)
	return nowMS-recordedAt < t.ttlMS
}

// Len reports the live entry count after pruning.
func (t *CorrelationTable) Len(nowMS int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(nowMS)
	return len(t.recordedAt)
}

func (t *CorrelationTable) pruneLocked(nowMS int64) {
	kept := t.lru[:0]
	for _, id := range t.lru {
		recordedAt, ok := t.recordedAt[id]
		if !ok {
			continue
		}
		if nowMS-recordedAt >= t.ttlMS {
			delete(t.recordedAt, id)
			continue
		}
		kept = append(kept, id)
	}
	t.lru = kept
}

func (t *CorrelationTable) removeLRULocked(id string) {
	for i, key := range t.lru {
		if key == id {
			t.lru = append(t.lru[:i], t.lru[i+1:]...)
			return
		}
	}
}
