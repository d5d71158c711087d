package util

import "errors"

// Error taxonomy for the generation pipeline. Controllers map these to HTTP
// status codes; services wrap collaborator failures into them so no raw
// driver error reaches a client.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrExtractionFailed = errors.New("could not extract text from source")
	ErrSynthesisFailed  = errors.New("course synthesis failed")
	ErrStorageFailed    = errors.New("storage unavailable")
	ErrNotFound         = errors.New("resource not found")
	ErrAccessDenied     = errors.New("access denied")
	ErrAlreadyTerminal  = errors.New("generation job already in a terminal state")
	ErrEmailRegistered  = errors.New("user with this email already exists")
	ErrBadCredentials   = errors.New("invalid email or password")
)
