package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorCodeString(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrCodeNotFound:   "NOT_FOUND",
		ErrCodeDuplicate:  "DUPLICATE",
		ErrCodeValidation: "VALIDATION",
		ErrCodeBusy:       "BUSY",
		ErrCodeUnknown:    "UNKNOWN",
		ErrorCode(999):    "UNKNOWN",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", code, got, want)
		}
	}
}

func TestRepositoryErrorMessageIncludesContext(t *testing.T) {
	err := NewRepositoryErrorWithContext("InsertSessions", fmt.Errorf("boom"), ErrCodeDuplicate,
		map[string]string{"session_uuid": "abc"})

	msg := err.Error()
	for _, part := range []string{"boom", "op=InsertSessions", "code=DUPLICATE", "session_uuid=abc"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error message missing %q: %s", part, msg)
		}
	}
}

func TestRepositoryErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := NewRepositoryError("op", cause, ErrCodeInternal)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestPredicatesMatchCode(t *testing.T) {
	if !IsNotFound(NewRepositoryError("op", fmt.Errorf("x"), ErrCodeNotFound)) {
		t.Error("IsNotFound false for not-found error")
	}
	if !IsDuplicate(NewRepositoryError("op", fmt.Errorf("x"), ErrCodeDuplicate)) {
		t.Error("IsDuplicate false for duplicate error")
	}
	if !IsValidation(HandleValidationError("op", "field", "value", "bad")) {
		t.Error("IsValidation false for validation error")
	}
	if IsNotFound(fmt.Errorf("plain error")) {
		t.Error("IsNotFound true for unclassified error")
	}
	if IsNotFound(nil) {
		t.Error("IsNotFound true for nil")
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := HandleNotFound("GetTimeBounds", "sessions", "any")
	wrapped := fmt.Errorf("loading bounds: %w", inner)

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should unwrap fmt.Errorf chains")
	}
}

func TestRetryabilityByCode(t *testing.T) {
	retryable := []ErrorCode{ErrCodeConnection, ErrCodeTimeout, ErrCodeTransaction, ErrCodeBusy}
	for _, code := range retryable {
		if !NewRepositoryError("op", fmt.Errorf("x"), code).IsRetryable() {
			t.Errorf("%s should be retryable", code)
		}
	}

	final := []ErrorCode{ErrCodeNotFound, ErrCodeDuplicate, ErrCodeValidation, ErrCodeCorruption, ErrCodeInternal}
	for _, code := range final {
		if NewRepositoryError("op", fmt.Errorf("x"), code).IsRetryable() {
			t.Errorf("%s should not be retryable", code)
		}
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ErrCodeUnknown},
		{"no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"unique text", fmt.Errorf("UNIQUE constraint failed: coding_sessions.session_uuid"), ErrCodeDuplicate},
		{"locked text", fmt.Errorf("database is locked"), ErrCodeConnection},
		{"missing table", fmt.Errorf("no such table: coding_sessions"), ErrCodeConnection},
		{"disk", fmt.Errorf("no space left on device"), ErrCodeDiskSpace},
		{"unknown", fmt.Errorf("something odd"), ErrCodeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyError(tc.err); got != tc.want {
				t.Errorf("ClassifyError(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), DefaultRetryConfig(), func() error {
		attempts++
		return NewRepositoryError("op", fmt.Errorf("x"), ErrCodeValidation)
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Non-retryable error retried %d times", attempts)
	}
}

func TestWithRetryRetriesUntilSuccess(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: []ErrorCode{ErrCodeBusy},
	}

	attempts := 0
	err := WithRetry(context.Background(), config, func() error {
		attempts++
		if attempts < 3 {
			return NewRepositoryError("op", fmt.Errorf("busy"), ErrCodeBusy)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		BackoffFactor:   1.0,
		RetryableErrors: []ErrorCode{ErrCodeBusy},
	}

	attempts := 0
	err := WithRetry(context.Background(), config, func() error {
		attempts++
		return NewRepositoryError("op", fmt.Errorf("busy"), ErrCodeBusy)
	})

	if err == nil {
		t.Fatal("Expected exhaustion error")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("Exhaustion error should mention attempts: %v", err)
	}
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := &RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    50 * time.Millisecond,
		MaxDelay:        time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: []ErrorCode{ErrCodeBusy},
	}

	err := WithRetry(ctx, config, func() error {
		return NewRepositoryError("op", fmt.Errorf("busy"), ErrCodeBusy)
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
