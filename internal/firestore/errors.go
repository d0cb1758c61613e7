package firestore

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNotFound signals a 404 on a single-document fetch.
	ErrNotFound = errors.New("firestore: document not found")
	// ErrMissingCredentials signals absent service-account material.
	// Raised before any network I/O; not retryable.
	ErrMissingCredentials = errors.New("firestore: missing service account credentials")
	// ErrScanRequired signals a filter the store cannot evaluate
	// server-side (substring search, missing-image predicate). The
	// caller must fall back to a bounded full scan.
	ErrScanRequired = errors.New("firestore: filter requires full-scan fallback")
)

// StatusError is a non-2xx response with the raw body surfaced verbatim.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return "firestore: http " + strconv.Itoa(e.Code) + ": " + e.Body
}

// IndexError is a 400-class response caused by a missing composite
// index. Operator-actionable, not retryable: AdminURL carries the
// index-creation link extracted from the error body when present.
type IndexError struct {
	StatusError
	AdminURL string
}

func (e *IndexError) Error() string {
	return "firestore: missing composite index (http " + strconv.Itoa(e.Code) + ")"
}

var indexURLRegex = regexp.MustCompile(`https://console\.firebase\.google\.com[^\s"\\]*`)

// classifyStatus turns a non-2xx response into a typed error. The
// missing-index case is detected by the index-creation hint Firestore
// embeds in the body; there is no structured error code for it.
func classifyStatus(code int, body string) error {
	if code == 404 {
		return ErrNotFound
	}
	if code == 400 && strings.Contains(body, "requires an index") {
		return &IndexError{
			StatusError: StatusError{Code: code, Body: body},
			AdminURL:    indexURLRegex.FindString(body),
		}
	}
	return &StatusError{Code: code, Body: body}
}

// IsNotFound reports whether err is the absent-document result.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// AsIndexError extracts a missing-index error, if err is one.
func AsIndexError(err error) (*IndexError, bool) {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
