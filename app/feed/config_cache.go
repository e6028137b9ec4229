package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigCache holds the board catalog loaded from a boards YAML file.
// Invalid boards and sources are skipped and kept as problems; the rest of
// the catalog stays usable.
type ConfigCache struct {
	boardsFile string
	boards     []Board
	problems   []error
	mu         sync.RWMutex
}

func NewConfigCache(boardsFile string) *ConfigCache {
	return &ConfigCache{boardsFile: boardsFile}
}

// Run (re)loads the catalog. On a read or parse error the previously loaded
// catalog is kept.
func (cc *ConfigCache) Run() error {
	data, err := os.ReadFile(cc.boardsFile)
	if err != nil {
		return fmt.Errorf("failed to read boards file: %w", err)
	}

	boards, problems, err := ParseBoards(data)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", cc.boardsFile, err)
	}

	for _, problem := range problems {
		slog.Error("Skipping invalid board configuration", "file", cc.boardsFile, "error", problem)
	}

	cc.mu.Lock()
	cc.boards = boards
	cc.problems = problems
	cc.mu.Unlock()

	slog.Debug("Configuration loaded", "file", cc.boardsFile, "boards", len(boards), "sources", cc.GetSourceCount(), "problems", len(problems))

	return nil
}

func (cc *ConfigCache) GetBoards() []Board {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	boards := make([]Board, len(cc.boards))
	for i, b := range cc.boards {
		boards[i] = b
		boards[i].Sources = append([]Source(nil), b.Sources...)
	}
	return boards
}

func (cc *ConfigCache) GetSources() []Source {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	var sources []Source
	for _, b := range cc.boards {
		sources = append(sources, b.Sources...)
	}
	return sources
}

func (cc *ConfigCache) GetSourceCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	count := 0
	for _, b := range cc.boards {
		count += len(b.Sources)
	}
	return count
}

func (cc *ConfigCache) Problems() []error {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return append([]error(nil), cc.problems...)
}

// ParseBoards decodes a boards document. The returned problems describe
// boards and sources that were dropped; err is set only when the document
// itself cannot be read.
func ParseBoards(data []byte) ([]Board, []error, error) {
	var raw rawBoardsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var (
		boards   []Board
		problems []error
		seen     = make(map[string]bool)
	)

	for i, rb := range raw.Boards {
		board, err := validateBoard(rb)
		if err != nil {
			problems = append(problems, fmt.Errorf("board %d: %w", i, err))
			continue
		}
		if seen[board.Slug] {
			problems = append(problems, fmt.Errorf("board %d: duplicate slug %q", i, board.Slug))
			continue
		}
		seen[board.Slug] = true

		for j, rs := range rb.Feeds {
			src, err := validateSource(rs)
			if err != nil {
				problems = append(problems, fmt.Errorf("board %q source %d: %w", board.Slug, j, err))
				continue
			}
			src.BoardSlug = board.Slug
			src.BoardTitle = board.Title
			board.Sources = append(board.Sources, src)
		}

		boards = append(boards, board)
	}

	return boards, problems, nil
}

func validateBoard(rb rawBoard) (Board, error) {
	board := Board{
		Title: strings.TrimSpace(rb.Title),
		Slug:  strings.TrimSpace(rb.Slug),
	}

	requiredFields := map[string]string{
		"title": board.Title,
		"slug":  board.Slug,
	}
	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return Board{}, fmt.Errorf("%s is required", fieldName)
		}
	}

	if board.Slug != Slugify(board.Slug) {
		return Board{}, fmt.Errorf("slug %q is not a valid slug", board.Slug)
	}

	return board, nil
}

func validateSource(rs rawSource) (Source, error) {
	kind, err := ParseKind(rs.Type)
	if err != nil {
		return Source{}, err
	}

	src := Source{
		Kind:     kind,
		Endpoint: strings.TrimSpace(rs.URL),
		Title:    strings.TrimSpace(rs.Title),
		SiteURL:  strings.TrimSpace(rs.SiteURL),
	}

	if src.Title == "" {
		return Source{}, errors.New("title is required")
	}
	if err := validateAbsoluteURL(src.Endpoint); err != nil {
		return Source{}, fmt.Errorf("url: %w", err)
	}

	if kind == KindListing {
		if err := validateAbsoluteURL(src.SiteURL); err != nil {
			return Source{}, fmt.Errorf("site_url: %w", err)
		}
	}

	return src, nil
}

func validateAbsoluteURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}
