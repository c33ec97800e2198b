package validate

import "errors"

var (
	ErrInvalid     = errors.New("invalid input")
	ErrInvalidTag  = errors.New("invalid tag")
	ErrInvalidLink = errors.New("invalid link")
)
