package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// API and service errors
	ErrAPIRequest    = fmt.Errorf("API request failed")
	ErrInvalidCursor = fmt.Errorf("invalid pagination cursor")
	ErrTooManyIDs    = fmt.Errorf("too many ids in batch")

	// Record and output errors
	ErrInvalidRecord = fmt.Errorf("invalid record")
	ErrUnknownColumn = fmt.Errorf("unknown column")
	ErrWriterClosed  = fmt.Errorf("writer already closed")

	// Persistence errors
	ErrNotFound = fmt.Errorf("record not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
