package feed

import (
	"context"
	"testing"
)

type fakeProber struct {
	large  map[string]bool
	probed []string
}

func (p *fakeProber) ProbeSize(ctx context.Context, url string) bool {
	p.probed = append(p.probed, url)
	return p.large[url]
}

func TestThumbnailFromDescriptionIsTrusted(t *testing.T) {
	prober := &fakeProber{}
	resolver := NewThumbnailResolver(prober)

	got := resolver.Resolve(context.Background(),
		`<p>Intro <img src="https://example.com/tiny.gif"> text</p>`,
		`<img src="https://example.com/large.jpg">`)

	if got != "https://example.com/tiny.gif" {
		t.Errorf("Expected description image, got: %q", got)
	}
	if len(prober.probed) != 0 {
		t.Errorf("Expected no size probes, got: %v", prober.probed)
	}
}

func TestThumbnailFromContentSkipsDataAndSmallImages(t *testing.T) {
	prober := &fakeProber{large: map[string]bool{
		"https://example.com/large.jpg":  true,
		"https://example.com/second.jpg": true,
	}}
	resolver := NewThumbnailResolver(prober)

	content := `<div>
		<img src="data:image/png;base64,AAAA">
		<img src="https://example.com/pixel.gif">
		<img src="https://example.com/large.jpg">
		<img src="https://example.com/second.jpg">
	</div>`

	got := resolver.Resolve(context.Background(), "Plain description", content)
	if got != "https://example.com/large.jpg" {
		t.Errorf("Expected first large image, got: %q", got)
	}

	want := []string{"https://example.com/pixel.gif", "https://example.com/large.jpg"}
	if len(prober.probed) != len(want) {
		t.Fatalf("Expected probes %v, got: %v", want, prober.probed)
	}
	for i := range want {
		if prober.probed[i] != want[i] {
			t.Errorf("Expected probe %d to be %q, got: %q", i, want[i], prober.probed[i])
		}
	}
}

func TestThumbnailIgnoresBackgroundImages(t *testing.T) {
	resolver := NewThumbnailResolver(&fakeProber{})

	got := resolver.Resolve(context.Background(),
		`<div style="background-image:url('https://example.com/pixel.gif')"></div>`,
		`<div style="background-image:url('https://example.com/bg.jpg')"></div><img src="https://example.com/small.png">`)
	if got != "" {
		t.Errorf("Expected no thumbnail from background images, got: %q", got)
	}
}

func TestThumbnailNoneFound(t *testing.T) {
	resolver := NewThumbnailResolver(&fakeProber{})

	if got := resolver.Resolve(context.Background(), "text only", ""); got != "" {
		t.Errorf("Expected empty thumbnail, got: %q", got)
	}
}
