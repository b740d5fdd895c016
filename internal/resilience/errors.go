// Package resilience classifies sync failures and records them for later
// inspection. Calls are never retried; classification only tells an operator
// whether re-running the job is likely to help.
package resilience

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/pkg/dux"
	"github.com/sells-group/dux-ghl-sync/pkg/ghl"
)

// ErrorType is the coarse class of a failure.
type ErrorType string

const (
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
)

// Class is the finer category stored with each failure entry.
type Class string

const (
	ClassNetwork Class = "network"
	ClassAPI     Class = "api"
	ClassSchema  Class = "schema"
	ClassData    Class = "data"
	ClassIO      Class = "io"
	ClassCancel  Class = "cancel"
	ClassUnknown Class = "unknown"
)

// StatusCode extracts the HTTP status from a CRM or ERP API error, or 0.
func StatusCode(err error) int {
	var ghlErr *ghl.APIError
	if errors.As(err, &ghlErr) {
		return ghlErr.StatusCode
	}
	var duxErr *dux.APIError
	if errors.As(err, &duxErr) {
		return duxErr.StatusCode
	}
	return 0
}

// IsTransient returns true if the error (or any error in its chain) is an API
// error with a retryable status, or matches common transient network failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if code := StatusCode(err); code != 0 {
		return IsTransientHTTPStatus(code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// server-side issue that may clear on a later run.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// TypeOf returns the coarse class of err.
func TypeOf(err error) ErrorType {
	if IsTransient(err) {
		return ErrorTransient
	}
	return ErrorPermanent
}

// Classify returns the fine category of err.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCancel
	}
	var mismatch *model.SchemaMismatchError
	if errors.As(err, &mismatch) {
		return ClassSchema
	}
	if StatusCode(err) != 0 {
		return ClassAPI
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return ClassIO
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return ClassNetwork
	}
	if IsTransient(err) {
		return ClassNetwork
	}
	var dataErr *DataError
	if errors.As(err, &dataErr) {
		return ClassData
	}
	return ClassUnknown
}

// DataError marks a record whose content could not be interpreted, such
// as an unparseable invoice date.
type DataError struct {
	Err error
}

func (e *DataError) Error() string { return e.Err.Error() }

func (e *DataError) Unwrap() error { return e.Err }
