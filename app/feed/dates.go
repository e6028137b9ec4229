package feed

import (
	"fmt"
	"strings"
	"time"
)

// DateStrategy turns a source's raw timestamp into a time. Layouts are
// tried in order and the first match wins.
type DateStrategy struct {
	prepare func(string) string
	layouts []string
}

var (
	syndicationDates = DateStrategy{
		layouts: []string{
			"Mon, 02 Jan 2006 15:04:05 -0700",
			"Mon, 02 Jan 2006 15:04:05 MST",
			"Mon, 2 Jan 2006 15:04:05 -0700",
			"Mon, 2 Jan 2006 15:04:05 MST",
			time.RFC3339,
		},
	}

	listingDates = DateStrategy{
		prepare: func(s string) string { return TruncateAtDelimiter(s, ".") },
		layouts: []string{"2006-01-02T15:04:05"},
	}

	flowDates = DateStrategy{
		layouts: []string{"02-01-06", "2-1-06"},
	}

	messageDates = DateStrategy{
		layouts: []string{time.RFC3339, "2006-01-02T15:04:05"},
	}
)

func DateStrategyFor(kind Kind) (DateStrategy, error) {
	switch kind {
	case KindSyndication:
		return syndicationDates, nil
	case KindListing:
		return listingDates, nil
	case KindFlow:
		return flowDates, nil
	case KindMessages:
		return messageDates, nil
	default:
		return DateStrategy{}, fmt.Errorf("no date strategy for %s", kind)
	}
}

func (s DateStrategy) Parse(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if s.prepare != nil {
		value = s.prepare(value)
	}

	for _, layout := range s.layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrDateFormatUnrecognized, raw)
}
