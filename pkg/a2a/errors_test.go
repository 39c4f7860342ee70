package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want interface{}
	}{
		{"deadline exceeded", context.DeadlineExceeded, &TimeoutError{}},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "agent.example.com"}, &NetworkError{}},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, &NetworkError{}},
		{"connection refused", syscall.ECONNREFUSED, &NetworkError{}},
		{"connection reset", fmt.Errorf("write: %w", syscall.ECONNRESET), &NetworkError{}},
		{"truncated body", io.ErrUnexpectedEOF, &NetworkError{}},
		{"json syntax", jsonSyntaxError(), &ProtocolError{}},
		{"unknown", errors.New("mystery"), &Error{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("test_op", tt.err)
			if got == nil {
				t.Fatal("Classify returned nil for non-nil error")
			}
			if !sameType(got, tt.want) {
				t.Errorf("Classify = %T, want %T", got, tt.want)
			}
		})
	}
}

func jsonSyntaxError() error {
	var v map[string]interface{}
	return json.Unmarshal([]byte("{bad"), &v)
}

func sameType(got error, want interface{}) bool {
	switch want.(type) {
	case *TimeoutError:
		var e *TimeoutError
		return errors.As(got, &e)
	case *NetworkError:
		var e *NetworkError
		return errors.As(got, &e)
	case *ProtocolError:
		var e *ProtocolError
		return errors.As(got, &e)
	case *Error:
		var e *Error
		return errors.As(got, &e)
	default:
		return false
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify("op", nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestClassifyPassesThroughTaxonomy(t *testing.T) {
	orig := &SkillNotFoundError{Skill: "x"}
	if got := Classify("op", orig); got != error(orig) {
		t.Errorf("taxonomy error was rewrapped: %v", got)
	}
}

func TestClassifyUnwrapsURLError(t *testing.T) {
	wrapped := &url.Error{Op: "Get", URL: "http://a", Err: context.DeadlineExceeded}
	got := Classify("fetch", wrapped)

	var timeout *TimeoutError
	if !errors.As(got, &timeout) {
		t.Errorf("Classify(url.Error{deadline}) = %T, want *TimeoutError", got)
	}
}

func TestClassifyUnknownKeepsCause(t *testing.T) {
	cause := errors.New("mystery")
	got := Classify("op", cause)

	var base *Error
	if !errors.As(got, &base) {
		t.Fatalf("Classify = %T, want *Error", got)
	}
	if base.Kind != "unknown" {
		t.Errorf("Kind = %q, want unknown", base.Kind)
	}
	if !errors.Is(got, cause) {
		t.Error("cause not preserved through wrap")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", &TimeoutError{Op: "x"}, true},
		{"network", &NetworkError{Op: "x"}, true},
		{"validation", &ValidationError{Field: "f"}, false},
		{"skill not found", &SkillNotFoundError{Skill: "s"}, false},
		{"authentication", &AuthenticationError{}, false},
		{"protocol", &ProtocolError{}, false},
		{"invocation", &InvocationError{Code: -32000}, false},
		{"card", &AgentCardError{URL: "u"}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient = %v, want %v", got, tt.want)
			}
		})
	}
}
