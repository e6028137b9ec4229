package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testBoards = `
boards:
  - title: Games
    slug: games
    feeds:
      - type: RSS
        url: https://example.com/rss
        title: Example Feed
      - type: listing
        url: https://example.com/api/v3/articles/?limit=20
        site_url: https://example.com/articles/
        title: Listing
      - type: TJ
        url: https://flow.example.com/
        title: Flow
      - type: Telegram
        url: https://t.me/channel
        title: Channel
  - title: Tech
    slug: tech
    feeds:
      - type: podcast
        url: https://example.com/podcast
        title: Unknown kind
      - type: kanobu
        url: https://example.com/api/
        title: Missing site URL
      - type: rss
        url: not-a-url
        title: Bad URL
      - type: rss
        url: https://tech.example.com/feed
  - title: Broken
`

func writeBoards(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boards.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigCacheLoadsBoards(t *testing.T) {
	configCache := NewConfigCache(writeBoards(t, testBoards))
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	boards := configCache.GetBoards()
	if len(boards) != 2 {
		t.Fatalf("Expected 2 boards, got %d", len(boards))
	}
	if boards[0].Slug != "games" || boards[1].Slug != "tech" {
		t.Errorf("Expected boards games and tech, got: %s, %s", boards[0].Slug, boards[1].Slug)
	}

	if configCache.GetSourceCount() != 4 {
		t.Errorf("Expected 4 valid sources, got %d", configCache.GetSourceCount())
	}

	sources := configCache.GetSources()
	kinds := []Kind{KindSyndication, KindListing, KindFlow, KindMessages}
	for i, kind := range kinds {
		if sources[i].Kind != kind {
			t.Errorf("Expected source %d to be %s, got: %s", i, kind, sources[i].Kind)
		}
		if sources[i].BoardSlug != "games" {
			t.Errorf("Expected source %d on board games, got: %s", i, sources[i].BoardSlug)
		}
	}
	if sources[1].SiteURL != "https://example.com/articles/" {
		t.Errorf("Expected site URL to be kept, got: %s", sources[1].SiteURL)
	}
}

func TestConfigCacheReportsProblems(t *testing.T) {
	configCache := NewConfigCache(writeBoards(t, testBoards))
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	problems := configCache.Problems()
	if len(problems) != 5 {
		t.Fatalf("Expected 5 problems, got %d: %v", len(problems), problems)
	}

	joined := ""
	for _, p := range problems {
		joined += p.Error() + "\n"
	}
	for _, fragment := range []string{"unknown source type", "site_url", "not-a-url", "title is required", "slug is required"} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("Expected a problem mentioning %q, got:\n%s", fragment, joined)
		}
	}
}

func TestConfigCacheKeepsCatalogOnParseError(t *testing.T) {
	path := writeBoards(t, testBoards)
	configCache := NewConfigCache(path)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("boards: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := configCache.Run(); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}

	if configCache.GetSourceCount() != 4 {
		t.Errorf("Expected previous catalog to be kept, got %d sources", configCache.GetSourceCount())
	}
}

func TestConfigCacheMissingFile(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "missing.yml"))
	if err := configCache.Run(); err == nil {
		t.Error("Expected error for missing file")
	}
	if configCache.GetSourceCount() != 0 {
		t.Errorf("Expected empty catalog, got %d sources", configCache.GetSourceCount())
	}
}

func TestParseBoardsRejectsDuplicateSlug(t *testing.T) {
	boards, problems, err := ParseBoards([]byte(`
boards:
  - title: One
    slug: news
  - title: Two
    slug: news
  - title: Three
    slug: "Not A Slug"
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(boards) != 1 {
		t.Errorf("Expected 1 board, got %d", len(boards))
	}
	if len(problems) != 2 {
		t.Errorf("Expected 2 problems, got %d: %v", len(problems), problems)
	}
}

func TestParseKind(t *testing.T) {
	aliases := map[string]Kind{
		"RSS":         KindSyndication,
		"syndication": KindSyndication,
		"Kanobu":      KindListing,
		"TJ":          KindFlow,
		"flow":        KindFlow,
		"Telegram":    KindMessages,
		" messages ":  KindMessages,
	}
	for input, want := range aliases {
		got, err := ParseKind(input)
		if err != nil {
			t.Errorf("ParseKind(%q) returned error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseKind(%q) = %s, want %s", input, got, want)
		}
	}

	if _, err := ParseKind("podcast"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}
