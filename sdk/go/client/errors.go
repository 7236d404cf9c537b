package client

import "errors"

// Client-specific errors
var (
	ErrClientClosed = errors.New("client is closed")
	ErrInvalidURL   = errors.New("invalid server url")
)
