package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	resp, err := WithRetry(mock, retryConfig()).Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{Err: errors.New("slow down")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("slow down")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("slow down")}},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	_, err := WithRetry(mock, retryConfig()).Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetry_InvalidResponseRetriedOnce(t *testing.T) {
	bad := MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad")}}
	mock := NewMockProvider(bad, bad, bad)
	cfg := retryConfig()
	cfg.MaxAttempts = 5
	_, err := WithRetry(mock, cfg).Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_NonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"max tokens", &ErrMaxTokensExceeded{}},
		{"deadline", context.DeadlineExceeded},
		{"rejected request", classifyStatus(400, errors.New("bad request"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(MockResponse{Err: tt.err}, MockResponse{Content: json.RawMessage(`{}`)})
			_, err := WithRetry(mock, retryConfig()).Generate(context.Background(), Request{})
			if err == nil {
				t.Fatal("expected error")
			}
			if mock.CallCount() != 1 {
				t.Fatalf("expected 1 call, got %d", mock.CallCount())
			}
		})
	}
}

func TestRetry_RespectsRetryAfter(t *testing.T) {
	r := &RetryProvider{config: retryConfig()}
	got := r.backoff(0, &ErrRateLimit{RetryAfter: 3 * time.Second})
	if got != 3*time.Second {
		t.Fatalf("backoff = %v, want 3s", got)
	}
}

func TestRetry_BackoffCapped(t *testing.T) {
	r := &RetryProvider{config: retryConfig()}
	for attempt := 0; attempt < 10; attempt++ {
		if got := r.backoff(attempt, errors.New("x")); got > 12*time.Millisecond {
			t.Fatalf("attempt %d: backoff %v exceeds cap plus jitter", attempt, got)
		}
	}
}

func TestRateLimit_BlocksUntilContextDone(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{}`)},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	p := WithRateLimit(mock, 1) // one per minute, burst of one

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Generate(ctx, Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call to reach the provider, got %d", mock.CallCount())
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	mock := NewMockProvider()
	if WithRateLimit(mock, 0) != Provider(mock) {
		t.Fatal("zero rate should return the provider unchanged")
	}
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) ModelID() string { return "slow" }

func TestTimeout(t *testing.T) {
	p := WithTimeout(slowProvider{}, 10*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
