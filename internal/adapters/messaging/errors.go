package messaging

import "errors"

// Sentinel errors returned by the Telegram client.
var (
	ErrAPI       = errors.New("messaging api error")
	ErrDecode    = errors.New("messaging response malformed")
	ErrTransport = errors.New("messaging transport error")
)
