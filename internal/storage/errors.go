package storage

import "errors"

// ErrRecordNotFound is returned when no analysis record has the requested ID
var ErrRecordNotFound = errors.New("analysis record not found")
