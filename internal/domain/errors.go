package domain

import "errors"

var (
	// ErrFormNotFound indicates the requested form does not exist.
	ErrFormNotFound = errors.New("form not found")
	// ErrFormNotPublished indicates the form exists but is not accepting responses.
	ErrFormNotPublished = errors.New("form not published")
	// ErrResponseNotFound indicates the requested response does not exist.
	ErrResponseNotFound = errors.New("response not found")
)
