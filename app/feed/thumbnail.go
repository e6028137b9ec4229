package feed

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type SizeProber interface {
	ProbeSize(ctx context.Context, url string) bool
}

// ThumbnailResolver picks a representative image for an article. The first
// image of the short description is trusted as-is; images found in the
// extended content must pass a size probe so tracking pixels and icons are
// skipped.
type ThumbnailResolver struct {
	prober SizeProber
}

func NewThumbnailResolver(prober SizeProber) *ThumbnailResolver {
	return &ThumbnailResolver{prober: prober}
}

func (r *ThumbnailResolver) Resolve(ctx context.Context, description, content string) string {
	if src := r.FromDescription(description); src != "" {
		return src
	}
	return r.FromContent(ctx, content)
}

func (r *ThumbnailResolver) FromDescription(markup string) string {
	if !strings.Contains(markup, "<img") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

func (r *ThumbnailResolver) FromContent(ctx context.Context, markup string) string {
	if r.prober == nil || !strings.Contains(markup, "<img") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			return true
		}
		if r.prober.ProbeSize(ctx, src) {
			found = src
			return false
		}
		return true
	})

	return found
}
