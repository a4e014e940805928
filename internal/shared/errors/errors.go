package errors

import "errors"

// Domain errors
var (
	// Input errors
	ErrEmptyDomain    = errors.New("domain cannot be empty")
	ErrNoDomains      = errors.New("no domains to process")
	ErrTooManyDomains = errors.New("too many domains in one batch")

	// Header decoding errors
	ErrMalformedHeader = errors.New("malformed vendor header")
	ErrInvalidPolicy   = errors.New("unsupported header policy")

	// Remote source errors
	ErrSourceUnavailable    = errors.New("domain list source unavailable")
	ErrInvalidSourcePayload = errors.New("domain list payload is not a JSON array of strings")

	// Output errors
	ErrSerializationFailed = errors.New("serialization failed")
)
