package feed

import (
	"errors"

	"github.com/lysyi3m/rune-reader/app/fetcher"
)

var (
	ErrMalformedPayload       = fetcher.ErrMalformedPayload
	ErrDateFormatUnrecognized = errors.New("date format unrecognized")
	ErrMissingRequiredField   = errors.New("missing required field")
)
