package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrEmptyInput = errors.New("empty input set")
)
