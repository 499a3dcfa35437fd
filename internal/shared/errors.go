package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrInvalidState     = fmt.Errorf("invalid oauth state")
	ErrSessionExpired   = fmt.Errorf("session expired")

	// Service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRateLimited        = fmt.Errorf("rate limited")

	// Catalog and player errors. These map to the panels shown to users:
	// not found, invalid parameters, load failure with retry, and send failure with retry.
	ErrNotFound          = fmt.Errorf("not found")
	ErrValidation        = fmt.Errorf("invalid parameters")
	ErrLoad              = fmt.Errorf("load failed")
	ErrTransientSend     = fmt.Errorf("message could not be sent")
	ErrInvalidTransition = fmt.Errorf("invalid state transition")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
