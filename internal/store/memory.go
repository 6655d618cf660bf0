package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no sync record is available for a radar.
	ErrNotFound = errors.New("no sync records for radar")
)

// SyncRecord describes one periodic download run for a radar.
type SyncRecord struct {
	RunID           string    `json:"run_id"`
	Network         string    `json:"network"`
	Radar           string    `json:"radar"`
	Protocol        string    `json:"protocol"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
	FilesFound      int       `json:"files_found"`
	FilesDownloaded int       `json:"files_downloaded"`
	FilesSkipped    int       `json:"files_skipped"`
	Errors          []string  `json:"errors,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Key returns the ledger key of the record.
func (r SyncRecord) Key() string {
	return RadarKey(r.Network, r.Radar)
}

// OK reports whether the run finished without errors.
func (r SyncRecord) OK() bool {
	return len(r.Errors) == 0
}

// RadarKey returns "NETWORK/RADAR".
func RadarKey(network, radar string) string {
	return network + "/" + radar
}

// RecordHistory holds a time-ordered list of sync records for a radar.
type RecordHistory struct {
	Records []SyncRecord
}

// MemoryStore is a concurrency-safe in-memory sync ledger.
type MemoryStore struct {
	mu sync.RWMutex

	// key: NETWORK/RADAR, value: history
	data map[string]*RecordHistory

	// retention configuration
	maxHistory int           // max number of records per radar
	maxAge     time.Duration // optional max age for records
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*RecordHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveRecord appends a new record for its radar and enforces retention.
func (s *MemoryStore) SaveRecord(rec SyncRecord) {
	key := rec.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &RecordHistory{}
		s.data[key] = history
	}

	history.Records = append(history.Records, rec)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Records) > s.maxHistory {
		over := len(history.Records) - s.maxHistory
		history.Records = history.Records[over:]
	}

	// Enforce retention by age; the newest record is always kept.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Records); i++ {
			if !history.Records[i].StartedAt.Before(cutoff) {
				break
			}
		}
		if i == len(history.Records) {
			i--
		}
		if i > 0 {
			history.Records = history.Records[i:]
		}
	}
}

// GetLatest returns the most recent record for a radar.
func (s *MemoryStore) GetLatest(network, radar string) (SyncRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[RadarKey(network, radar)]
	if !ok || len(history.Records) == 0 {
		return SyncRecord{}, ErrNotFound
	}
	return history.Records[len(history.Records)-1], nil
}

// GetRange returns all records for a radar started between from and to (inclusive).
func (s *MemoryStore) GetRange(network, radar string, from, to time.Time) ([]SyncRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[RadarKey(network, radar)]
	if !ok || len(history.Records) == 0 {
		return nil, ErrNotFound
	}

	var result []SyncRecord
	for _, rec := range history.Records {
		if !rec.StartedAt.Before(from) && !rec.StartedAt.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// Keys returns the radars that have at least one record.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k, h := range s.data {
		if len(h.Records) > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}
