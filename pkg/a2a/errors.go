package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ============================================================================
// ERROR TAXONOMY
// Closed set of typed errors shared by client and server. Callers branch on
// type via errors.As, never on message strings.
// ============================================================================

// Error is the base protocol error. Faults that fall outside the closed
// taxonomy are wrapped here with Kind "unknown" so Classify stays total.
type Error struct {
	Kind    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("a2a: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("a2a: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports malformed input: a bad part type, an invalid
// message, a malformed JSON-RPC envelope.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// SkillNotFoundError reports a capability name absent from the agent card.
// Available lists the names the card does advertise.
type SkillNotFoundError struct {
	Skill     string
	Available []string
}

func (e *SkillNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("skill %q not found (agent advertises no capabilities)", e.Skill)
	}
	return fmt.Sprintf("skill %q not found, available: %s", e.Skill, strings.Join(e.Available, ", "))
}

// AuthenticationError reports a 401 from the remote or a local credential
// rejection.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// TimeoutError reports that no response arrived within the deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// NetworkError reports a connection-level failure: refused, reset, DNS,
// or an unexpectedly truncated stream.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError reports a response that violates the expected wire shape,
// typically a body that does not decode as JSON.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// InvocationError reports that the remote executed the request but returned
// a failure. Code carries the JSON-RPC error code, Status the HTTP status
// when one applies (4xx invocation errors are permanent, never retried).
type InvocationError struct {
	Code    int
	Message string
	Status  int
}

func (e *InvocationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("invocation failed (code %d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("invocation failed: %s", e.Message)
}

// AgentCardError reports a missing or invalid discovery document.
type AgentCardError struct {
	URL     string
	Message string
	Err     error
}

func (e *AgentCardError) Error() string {
	return fmt.Sprintf("agent card from %s: %s", e.URL, e.Message)
}

func (e *AgentCardError) Unwrap() error { return e.Err }

// ============================================================================
// CLASSIFICATION
// ============================================================================

// Classify maps a raw transport or parsing failure into the taxonomy. The
// mapping is total: every non-nil input yields exactly one typed error, so
// callers can switch exhaustively on kind. Errors already in the taxonomy
// pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if inTaxonomy(err) {
		return err
	}

	// Unwrap url.Error so the cause drives classification.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		if classified := Classify(op, urlErr.Err); classified != nil {
			return classified
		}
	}

	// Timeout class.
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}

	// Connection class.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &NetworkError{Op: op, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &NetworkError{Op: op, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return &NetworkError{Op: op, Err: err}
	}

	// Malformed response body.
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ProtocolError{Message: op, Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ProtocolError{Message: op, Err: err}
	}

	return &Error{Kind: "unknown", Message: op, Err: err}
}

// IsTransient reports whether an error belongs to a retryable class.
// Only timeouts and connection-level failures qualify; everything else
// is permanent and must not be retried.
func IsTransient(err error) bool {
	var timeoutErr *TimeoutError
	var netErr *NetworkError
	return errors.As(err, &timeoutErr) || errors.As(err, &netErr)
}

func inTaxonomy(err error) bool {
	var (
		base       *Error
		validation *ValidationError
		notFound   *SkillNotFoundError
		authErr    *AuthenticationError
		timeout    *TimeoutError
		network    *NetworkError
		protocol   *ProtocolError
		invocation *InvocationError
		card       *AgentCardError
	)
	return errors.As(err, &base) ||
		errors.As(err, &validation) ||
		errors.As(err, &notFound) ||
		errors.As(err, &authErr) ||
		errors.As(err, &timeout) ||
		errors.As(err, &network) ||
		errors.As(err, &protocol) ||
		errors.As(err, &invocation) ||
		errors.As(err, &card)
}
