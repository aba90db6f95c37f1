package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNavigation represents a failed click or page transition
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeTimeout represents a bounded wait that expired
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeSession represents a browser session that is gone
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type    ErrorType
	Profile string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Profile, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Profile, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the failed step can succeed.
// Navigation and timeout failures are transient; a dead session is not.
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNavigation, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, profile, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:    errType,
		Profile: profile,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNavigation creates a new navigation error
func NewNavigation(profile, message string, err error) *CrawlerError {
	return New(ErrorTypeNavigation, profile, message, err)
}

// NewTimeout creates a new timeout error
func NewTimeout(profile string, wait time.Duration, err error) *CrawlerError {
	return New(ErrorTypeTimeout, profile, fmt.Sprintf("no change within %v", wait), err)
}

// NewSession creates a new session error
func NewSession(profile, message string, err error) *CrawlerError {
	return New(ErrorTypeSession, profile, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(profile, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, profile, message, err)
}

// NewCache creates a new cache error
func NewCache(profile, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, profile, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(profile, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, profile, message, err)
}

// NewValidation creates a new validation error
func NewValidation(profile, message string) *CrawlerError {
	return New(ErrorTypeValidation, profile, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of the first CrawlerError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var ce *CrawlerError
	if errors.As(err, &ce) {
		return ce.Type, true
	}
	return "", false
}

// IsRetryable reports whether err carries a retryable CrawlerError.
func IsRetryable(err error) bool {
	var ce *CrawlerError
	if errors.As(err, &ce) {
		return ce.IsRetryable()
	}
	return false
}
