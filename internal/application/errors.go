package application

import (
	"errors"
	"fmt"
)

// RetryableError marks a handler failure as transient. The dispatcher
// releases the dedup mark and the HTTP layer answers with a retryable
// status so Shopify's own redelivery mechanism applies; the dispatcher
// never schedules retries itself.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retryable wraps err so the dispatcher treats it as transient.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err (or anything it wraps) is transient.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
