package analyses

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Kind classifies a failure so callers can translate it without string matching.
// A Kind is itself an error, so errors.Is(err, KindNotFound) works on wrapped errors.
type Kind string

const (
	KindInvalidInput        Kind = "InvalidInput"
	KindResourceAcquisition Kind = "ResourceAcquisitionFailure"
	KindNavigationTimeout   Kind = "NavigationTimeout"
	KindAuditEngine         Kind = "AuditEngineFailure"
	KindRuleEngine          Kind = "RuleEngineFailure"
	KindNotFound            Kind = "NotFound"
	KindEncoding            Kind = "EncodingFailure"
	KindStore               Kind = "StoreFailure"
)

func (k Kind) Error() string { return string(k) }

// Error carries a Kind, the failing operation and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// E builds an *Error. If err already carries a Kind it is returned untouched,
// so the first classification wins as the error travels up.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return &Error{Kind: kind, Op: op}
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is E with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind carried by err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ParseTarget validates a user supplied URL. It only accepts absolute http(s)
// URLs with a host and never touches the network.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, Errorf(KindInvalidInput, "parse target", "URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, E(KindInvalidInput, "parse target", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, Errorf(KindInvalidInput, "parse target", "unsupported scheme %q (allowed: http, https)", u.Scheme)
	}
	if u.Host == "" {
		return nil, Errorf(KindInvalidInput, "parse target", "URL has no host")
	}
	return u, nil
}
