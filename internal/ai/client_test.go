package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

// countingBackend fails with a fixed error until it runs out of failures,
// then succeeds with its canned response.
type countingBackend struct {
	calls    int
	failWith error
	failN    int
	response string
}

func (b *countingBackend) Complete(context.Context, string) (string, error) {
	b.calls++
	if b.failWith != nil && (b.failN == 0 || b.calls <= b.failN) {
		return "", b.failWith
	}
	return b.response, nil
}

func testClient(backend Backend) *Client {
	return NewClient(backend).WithRetryPolicy(3, time.Millisecond)
}

func TestGenerateSuccessTrimsWhitespace(t *testing.T) {
	backend := &countingBackend{response: "  an answer \n"}
	text, err := testClient(backend).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "an answer" {
		t.Errorf("expected trimmed answer, got %q", text)
	}
	if backend.calls != 1 {
		t.Errorf("expected 1 call, got %d", backend.calls)
	}
}

func TestGenerateEmptyResponseIsNotAnError(t *testing.T) {
	backend := &countingBackend{response: ""}
	text, err := testClient(backend).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty answer, got %q", text)
	}
}

func TestGenerateRetriesUnavailableExactlyMaxTimes(t *testing.T) {
	backend := &countingBackend{failWith: errors.New("rpc error: code = 503 service UNAVAILABLE")}
	_, err := testClient(backend).Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if backend.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", backend.calls)
	}
}

func TestGenerateRecoversAfterTransientFailure(t *testing.T) {
	backend := &countingBackend{
		failWith: errors.New("model is overloaded"),
		failN:    2,
		response: "recovered",
	}
	text, err := testClient(backend).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recovered" {
		t.Errorf("expected recovered answer, got %q", text)
	}
	if backend.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", backend.calls)
	}
}

func TestGenerateQuotaShortCircuits(t *testing.T) {
	backend := &countingBackend{failWith: errors.New("429 RESOURCE_EXHAUSTED: Quota exceeded")}
	_, err := testClient(backend).Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("quota errors must not be retried, got %d calls", backend.calls)
	}
}

func TestGenerateUnknownErrorNotRetried(t *testing.T) {
	backend := &countingBackend{failWith: errors.New("invalid request payload")}
	_, err := testClient(backend).Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrQuotaExhausted) {
		t.Errorf("unknown errors must stay unclassified, got %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("unknown errors must not be retried, got %d calls", backend.calls)
	}
}

func TestGenerateHonorsContextCancellation(t *testing.T) {
	backend := &countingBackend{failWith: errors.New("503 UNAVAILABLE")}
	client := NewClient(backend).WithRetryPolicy(3, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Generate(ctx, "prompt")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Generate did not return after cancellation")
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"rpc error: code = 429", ErrQuotaExhausted},
		{"RESOURCE_EXHAUSTED: too many requests", ErrQuotaExhausted},
		{"Quota exceeded for model", ErrQuotaExhausted},
		{"503 backend error", ErrUnavailable},
		{"code = UNAVAILABLE", ErrUnavailable},
		{"The model is Overloaded right now", ErrUnavailable},
	}
	for _, c := range cases {
		got := ClassifyError(errors.New(c.in))
		if !errors.Is(got, c.want) {
			t.Errorf("ClassifyError(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	plain := errors.New("schema mismatch")
	if got := ClassifyError(plain); got != plain {
		t.Errorf("unrecognized error should pass through unchanged, got %v", got)
	}
	if ClassifyError(nil) != nil {
		t.Error("nil must classify to nil")
	}
}
