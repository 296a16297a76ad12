package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/arcanetable/encounter-server/internal/combat"
	"go.uber.org/zap"
)

// Store writes and reads encounter archives in one directory.
type Store struct {
	logger *zap.Logger
	dir    string
}

// NewStore creates an archive store rooted at dir.
func NewStore(logger *zap.Logger, dir string) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger, dir: dir}
}

// Dir returns the archive directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save archives a finished encounter, replacing any earlier archive.
func (s *Store) Save(enc *combat.Encounter) error {
	a := New(enc)
	if err := a.WriteFile(s.dir); err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	s.logger.Info("saved encounter archive",
		zap.String("encounter_id", enc.ID),
		zap.Int("entry_count", a.Size()),
		zap.String("directory", s.dir),
	)
	return nil
}

// Load reads the archive of encounterID.
func (s *Store) Load(encounterID string) (*Archive, error) {
	a, err := ReadFile(s.dir, encounterID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("loaded encounter archive",
		zap.String("encounter_id", encounterID),
		zap.Int("entry_count", a.Size()),
	)
	return a, nil
}

// Delete removes an archive. A missing archive is not an error.
func (s *Store) Delete(encounterID string) error {
	err := os.Remove(Path(s.dir, encounterID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete archive: %w", err)
	}
	return nil
}
