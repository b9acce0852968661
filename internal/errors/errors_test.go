package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDataUnavailable_ListsProviders(t *testing.T) {
	err := &DataUnavailable{
		Symbol: "600519",
		Op:     "history",
		Attempts: []*ProviderFailure{
			NewProviderFailure("eastmoney", "history", context.DeadlineExceeded),
			NewProviderFailure("tencent", "history", ErrInvalidData),
		},
	}
	if got := err.Providers(); len(got) != 2 || got[0] != "eastmoney" || got[1] != "tencent" {
		t.Fatalf("unexpected providers: %v", got)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected errors.Is to reach the first attempt's cause")
	}
	if !errors.Is(err, ErrInvalidData) {
		t.Error("expected errors.Is to reach the second attempt's cause")
	}
	if !strings.Contains(err.Error(), "after 2 providers") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestInsufficientHistory_IsSentinel(t *testing.T) {
	err := fmt.Errorf("rsi: %w", NewInsufficientHistory("rsi24", 25, 10))
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatal("expected ErrInsufficientHistory in chain")
	}
	var ih *InsufficientHistory
	if !errors.As(err, &ih) || ih.Need != 25 || ih.Have != 10 {
		t.Fatalf("unexpected InsufficientHistory: %+v", ih)
	}
}

func TestAdvisoryError_Timeout(t *testing.T) {
	tests := []struct {
		err     error
		timeout bool
	}{
		{ErrAdvisoryTimeout, true},
		{fmt.Errorf("call: %w", ErrAdvisoryTimeout), true},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		ae := NewAdvisoryError("openai", tt.err)
		if ae.Timeout() != tt.timeout {
			t.Errorf("%v: expected timeout=%v", tt.err, tt.timeout)
		}
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, "x") != nil || Wrapf(nil, "x %d", 1) != nil {
		t.Error("expected nil passthrough")
	}
}
