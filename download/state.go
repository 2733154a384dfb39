package download

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// stateSuffix names the control file written next to an in-progress
// download. It records which segments are complete so a restarted job can
// reuse previously written bytes instead of starting over.
const stateSuffix = ".segments"

// state is the persisted resume record for one file.
type state struct {
	URL         string `json:"url"`
	ETag        string `json:"etag,omitempty"`
	Size        int64  `json:"size"`
	SegmentSize int64  `json:"segment_size"`
	Completed   []bool `json:"completed"`

	path string
	mu   sync.Mutex
}

// loadState reads the control file for filePath. It returns nil when no
// usable state exists or when the remote file no longer matches.
func loadState(filePath, url, etag string, size int64) *state {
	data, err := os.ReadFile(filePath + stateSuffix)
	if err != nil {
		return nil
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if s.URL != url || s.Size != size || len(s.Completed) == 0 {
		return nil
	}
	// a changed ETag means the remote bytes changed under us
	if s.ETag != "" && etag != "" && s.ETag != etag {
		return nil
	}

	s.path = filePath + stateSuffix
	return &s
}

// newState creates a fresh control record for the given segmentation.
func newState(filePath, url, etag string, size int64, segments []Segment) *state {
	segmentSize := int64(0)
	if len(segments) > 0 {
		segmentSize = segments[0].Length()
	}

	return &state{
		URL:         url,
		ETag:        etag,
		Size:        size,
		SegmentSize: segmentSize,
		Completed:   make([]bool, len(segments)),
		path:        filePath + stateSuffix,
	}
}

// markCompleted records a finished segment and persists the control file.
// Persistence errors are returned but safe to ignore; losing the control
// file only costs resume capability, not correctness.
func (s *state) markCompleted(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.Completed) {
		return fmt.Errorf("segment index %d out of range", index)
	}
	s.Completed[index] = true

	return s.persist()
}

// isCompleted reports whether a segment has already been written.
func (s *state) isCompleted(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return index < len(s.Completed) && s.Completed[index]
}

// persist writes the control file. Caller must hold s.mu.
func (s *state) persist() error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode download state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write download state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// remove deletes the control file after a completed download.
func (s *state) remove() {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = os.Remove(s.path)
}

// matchesSegmentation reports whether the persisted record describes the
// same segment layout, so completed flags can be trusted.
func (s *state) matchesSegmentation(segments []Segment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Completed) != len(segments) {
		return false
	}
	if len(segments) > 0 && s.SegmentSize != segments[0].Length() {
		return false
	}
	return true
}
