package transcript

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sweetpotatoswee/aical/internal/fileutil"
	"github.com/sweetpotatoswee/aical/internal/logging"
)

const (
	eventsFileName   = "events.jsonl"
	metadataFileName = "metadata.json"
)

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrStoreClosed        = errors.New("store is closed")
)

// Store provides transcript persistence operations.
type Store struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

// NewStore creates a new transcript store with the given base directory.
func NewStore(baseDir string) (*Store, error) {
	log := logging.Transcript()
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcripts directory: %w", err)
	}
	log.Debug("transcript store initialized", "base_dir", baseDir)
	return &Store{baseDir: baseDir}, nil
}

// transcriptDir returns the directory path for a transcript.
func (s *Store) transcriptDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

// eventsPath returns the events file path for a transcript.
func (s *Store) eventsPath(id string) string {
	return filepath.Join(s.transcriptDir(id), eventsFileName)
}

// metadataPath returns the metadata file path for a transcript.
func (s *Store) metadataPath(id string) string {
	return filepath.Join(s.transcriptDir(id), metadataFileName)
}

// Create creates a new transcript with the given metadata.
func (s *Store) Create(meta Metadata) error {
	log := logging.Transcript()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	dir := s.transcriptDir(meta.TranscriptID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	// Create empty events file
	eventsFile, err := os.Create(s.eventsPath(meta.TranscriptID))
	if err != nil {
		return fmt.Errorf("failed to create events file: %w", err)
	}
	eventsFile.Close()

	meta.CreatedAt = time.Now()
	meta.UpdatedAt = meta.CreatedAt
	meta.EventCount = 0

	if err := s.writeMetadata(meta); err != nil {
		return err
	}

	log.Debug("transcript created", "transcript_id", meta.TranscriptID, "dir", dir)
	return nil
}

// AppendEvent appends an event to the transcript's event log.
// The event's Seq field is assigned from the current event count.
func (s *Store) AppendEvent(id string, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	meta, err := s.readMetadata(id)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.eventsPath(id), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrTranscriptNotFound
		}
		return fmt.Errorf("failed to open events file: %w", err)
	}
	defer f.Close()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// 1-based, so the first event is seq=1
	event.Seq = int64(meta.EventCount + 1)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	meta.EventCount++
	meta.UpdatedAt = time.Now()
	switch event.Type {
	case EventTypeUserMessage:
		meta.LastUserMessageAt = event.Timestamp
	case EventTypeApply:
		meta.Applies++
	}
	return s.writeMetadata(meta)
}

// GetMetadata retrieves the metadata for a transcript.
func (s *Store) GetMetadata(id string) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Metadata{}, ErrStoreClosed
	}

	return s.readMetadata(id)
}

// readMetadata reads metadata from disk (must be called with lock held).
func (s *Store) readMetadata(id string) (Metadata, error) {
	var meta Metadata
	if err := fileutil.ReadJSON(s.metadataPath(id), &meta); err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, ErrTranscriptNotFound
		}
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	return meta, nil
}

// writeMetadata writes metadata to disk (must be called with lock held).
func (s *Store) writeMetadata(meta Metadata) error {
	if err := fileutil.WriteJSONAtomic(s.metadataPath(meta.TranscriptID), meta, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// UpdateMetadata updates the metadata for a transcript.
func (s *Store) UpdateMetadata(id string, updateFn func(*Metadata)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	meta, err := s.readMetadata(id)
	if err != nil {
		return err
	}

	updateFn(&meta)
	meta.UpdatedAt = time.Now()
	return s.writeMetadata(meta)
}

// ReadEvents reads all events from a transcript's event log.
func (s *Store) ReadEvents(id string) ([]Event, error) {
	return s.ReadEventsFrom(id, 0)
}

// ReadEventsFrom reads events starting after the given sequence number.
// If afterSeq is 0, all events are returned.
func (s *Store) ReadEventsFrom(id string, afterSeq int64) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	f, err := os.Open(s.eventsPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	// Large narration events can exceed the default 64KB line limit
	const maxScannerBuffer = 10 * 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerBuffer)
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		if event.Seq > afterSeq {
			events = append(events, event)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return events, nil
}

// List returns metadata for all transcripts, newest first.
func (s *Store) List() ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcripts directory: %w", err)
	}

	var transcripts []Metadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			// Skip transcripts with invalid metadata
			continue
		}
		transcripts = append(transcripts, meta)
	}

	sort.Slice(transcripts, func(i, j int) bool {
		return transcripts[i].UpdatedAt.After(transcripts[j].UpdatedAt)
	})

	return transcripts, nil
}

// Delete removes a transcript and all its data.
func (s *Store) Delete(id string) error {
	log := logging.Transcript()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	dir := s.transcriptDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ErrTranscriptNotFound
	}

	if err := os.RemoveAll(dir); err != nil {
		return err
	}

	log.Debug("transcript deleted", "transcript_id", id)
	return nil
}

// Exists checks if a transcript exists.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	_, err := os.Stat(s.metadataPath(id))
	return err == nil
}

// Close closes the store. Further operations return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
