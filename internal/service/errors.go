package service

import "errors"

var (
	ErrInvalidPayload    = errors.New("import payload is malformed or empty")
	ErrUnknownMergeMode  = errors.New("unknown merge mode")
	ErrInvalidPassphrase = errors.New("invalid sync passphrase")
	ErrSessionNotFound   = errors.New("resolution session not found")
	ErrSessionDone       = errors.New("resolution session already completed")
	ErrNoPendingConflict = errors.New("no pending conflict at current index")
	ErrNoBatchReview     = errors.New("no batch-review entries pending")
)
