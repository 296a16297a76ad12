package archive

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/arcanetable/encounter-server/internal/combat"
)

const formatVersion = 1

// metadata heads every archive file.
type metadata struct {
	EncounterID string
	CampaignID  string
	Rounds      int
	EndedAt     time.Time
	WrittenAt   time.Time
	Version     int
	EntryCount  int
	HasSummary  bool
}

// Path returns the archive file of an encounter inside directory.
func Path(directory, encounterID string) string {
	return filepath.Join(directory, encounterID+".replay")
}

// WriteFile saves the archive as gzip-compressed gob records: metadata, each
// log entry, then the summary when present.
func (a *Archive) WriteFile(directory string) (err error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	file, err := os.Create(Path(directory, a.EncounterID))
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close archive file: %w", closeErr)
		}
	}()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	meta := metadata{
		EncounterID: a.EncounterID,
		CampaignID:  a.CampaignID,
		Rounds:      a.Rounds,
		EndedAt:     a.EndedAt,
		WrittenAt:   time.Now().UTC(),
		Version:     formatVersion,
		EntryCount:  len(a.Entries),
		HasSummary:  a.Summary != nil,
	}
	if err := encoder.Encode(&meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	for i := range a.Entries {
		if err := encoder.Encode(&a.Entries[i]); err != nil {
			return fmt.Errorf("encode entry %d: %w", i, err)
		}
	}
	if a.Summary != nil {
		if err := encoder.Encode(a.Summary); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return nil
}

// ReadFile loads the archive of encounterID from directory. A missing file
// is a NOT_FOUND error.
func ReadFile(directory, encounterID string) (*Archive, error) {
	file, err := os.Open(Path(directory, encounterID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("no archive for encounter %s", encounterID)
	}
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var meta metadata
	if err := decoder.Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if meta.Version != formatVersion {
		return nil, fmt.Errorf("unsupported archive version: %d", meta.Version)
	}

	a := &Archive{
		EncounterID: meta.EncounterID,
		CampaignID:  meta.CampaignID,
		Rounds:      meta.Rounds,
		EndedAt:     meta.EndedAt,
		Entries:     make([]combat.LogEntry, 0, meta.EntryCount),
	}
	for i := 0; i < meta.EntryCount; i++ {
		var entry combat.LogEntry
		if err := decoder.Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode entry %d: %w", i, err)
		}
		a.Entries = append(a.Entries, entry)
	}
	if meta.HasSummary {
		var summary combat.Summary
		if err := decoder.Decode(&summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		a.Summary = &summary
	}
	return a, nil
}
