package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":                  ErrorQuota,
		"429 rate":                            ErrorRate,
		"prompt too long":                     ErrorContext,
		"maximum context length is 128000":    ErrorContext,
		"timeout":                             ErrorTransient,
		"openai generate error 503: overload": ErrorTransient,
		"rate limit reached for gpt-4o-mini":  ErrorRate,
		"openai generate error 400: bad json": ErrorPermanent,
		"bad request":                         ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
}

func TestClassifyErrorDeadline(t *testing.T) {
	err := fmt.Errorf("openai generate request failed: %w", context.DeadlineExceeded)
	if got := ClassifyError(err); got != ErrorTransient {
		t.Fatalf("deadline: got %s", got)
	}
	if got := ClassifyError(nil); got != "" {
		t.Fatalf("nil: got %q", got)
	}
}
