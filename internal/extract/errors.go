package extract

import "errors"

var (
	ErrNoData    = errors.New("no data")
	ErrMalformed = errors.New("malformed content")
)
