// Package filesink persists canonical checklists as JSON files, one file per
// checklist.
package filesink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/checklisting/crawler/internal/checklist"
)

// Sink writes one JSON file per checklist. The filename is derived from the
// source and identifier, so re-saving the same record overwrites rather than
// duplicates. An empty directory disables persistence, used for dry runs.
type Sink struct {
	dir    string
	logger *zap.Logger
}

// New returns a sink rooted at dir. An empty dir yields a no-op sink.
func New(dir string, logger *zap.Logger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sink dir %s: %w", dir, err)
		}
	}
	return &Sink{dir: dir, logger: logger}, nil
}

// Save writes the checklist to disk.
func (s *Sink) Save(ctx context.Context, c *checklist.Checklist) error {
	if s.dir == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	target := filepath.Join(s.dir, Filename(c))
	payload, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checklist %s: %w", c.Identifier, err)
	}
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return fmt.Errorf("write checklist to %s: %w", target, err)
	}
	s.logger.Debug("wrote checklist",
		zap.String("path", target),
		zap.String("date", c.Date),
		zap.String("location", c.Location.Name),
		zap.String("submitted_by", c.SubmittedBy),
	)
	return nil
}

// Filename returns the deterministic file name for a checklist.
func Filename(c *checklist.Checklist) string {
	source := strings.ReplaceAll(strings.ToLower(c.Source), " ", "-")
	return fmt.Sprintf("%s-%s.json", source, c.Identifier)
}
