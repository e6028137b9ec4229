package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DiagnosticSink receives raw payloads right after they are fetched.
type DiagnosticSink interface {
	Dump(src Source, payload *Payload)
}

// DirSink writes every payload to its own file under dir.
type DirSink struct {
	dir string
	now func() time.Time
}

// NewDirSink returns nil when dir is empty, which disables dumping.
func NewDirSink(dir string) (*DirSink, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory: %w", err)
	}
	return &DirSink{dir: dir, now: time.Now}, nil
}

func (s *DirSink) Dump(src Source, payload *Payload) {
	if s == nil || payload == nil {
		return
	}

	name := fmt.Sprintf("%s-%s-%s.raw",
		Slugify(src.BoardSlug+" "+src.Title),
		src.Kind,
		s.now().UTC().Format("20060102T150405.000000000"))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, payload.Body, 0o644); err != nil {
		slog.Warn("Failed to write diagnostic dump", "source", src.Name(), "path", path, "error", err)
		return
	}

	slog.Debug("Diagnostic dump written", "source", src.Name(), "path", path, "bytes", len(payload.Body))
}
