package privacy

// SanitizedError wraps an error while providing a sanitized message for logging.
// The original error is preserved for programmatic access via Unwrap(),
// but the Error() method returns a sanitized version safe for logging.
type SanitizedError struct {
	original     error
	sanitizedMsg string
}

// Error returns the sanitized error message, safe for logging.
func (e *SanitizedError) Error() string {
	return e.sanitizedMsg
}

// Unwrap returns the original error, allowing errors.Is() and errors.As() to work.
func (e *SanitizedError) Unwrap() error {
	return e.original
}

// WrapError sanitizes an error message using ScrubMessage.
// Returns nil if the input error is nil, and err itself when there is
// nothing to scrub.
//
//	db, err := gorm.Open(dial, cfg)
//	if err != nil {
//	    return privacy.WrapError(err)
//	}
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	scrubbed := ScrubMessage(msg)
	if scrubbed == msg {
		return err
	}
	return &SanitizedError{
		original:     err,
		sanitizedMsg: scrubbed,
	}
}
