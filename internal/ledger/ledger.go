// Package ledger persists the run outcome artifacts that make resumption
// idempotent: a JSON array of synchronized bicycle ids and a JSON array of
// failed bicycle snapshots.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/bicyclebluebook/catalog-sync/internal/catalog"
)

const (
	synchronizedFile = "ok.json"
	failedFile       = "err.json"
)

// Store reads and replaces the on-disk ledger artifacts.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore returns a Store rooted at dir. A nil logger is replaced with a nop.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// LoadSkipSet reads the prior run's synchronized-id artifact. A missing or
// malformed artifact is not an error: it only means nothing is known to be
// synchronized, so everything gets reconciled again.
func (s *Store) LoadSkipSet() map[int64]struct{} {
	skip := make(map[int64]struct{})
	path := filepath.Join(s.dir, synchronizedFile)

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Info("no prior ledger, reconciling everything", zap.String("path", path))
		return skip
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		s.logger.Warn("prior ledger is unreadable, reconciling everything",
			zap.String("path", path), zap.Error(err))
		return skip
	}
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	return skip
}

// Persist fully replaces both artifacts with this run's outcome. A write
// failure is fatal for the run; the prior artifacts are left intact because
// each file is staged to a temp path and renamed into place.
func (s *Store) Persist(syncedIDs []int64, failed []catalog.Bicycle) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	if syncedIDs == nil {
		syncedIDs = []int64{}
	}
	if failed == nil {
		failed = []catalog.Bicycle{}
	}
	if err := s.writeArtifact(synchronizedFile, syncedIDs); err != nil {
		return err
	}
	if err := s.writeArtifact(failedFile, failed); err != nil {
		return err
	}
	s.logger.Info("ledger persisted",
		zap.Int("synchronized", len(syncedIDs)),
		zap.Int("failed", len(failed)),
		zap.String("dir", s.dir),
	)
	return nil
}

func (s *Store) writeArtifact(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
