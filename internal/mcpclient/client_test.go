package mcpclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/timeout"

	"github.com/jordanstarrk/mcp-preflight/internal/engine"
)

func callKind(t *testing.T, err error) engine.CallKind {
	t.Helper()
	var ce *engine.CallError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *engine.CallError, got %v", err)
	}
	return ce.Kind
}

func TestScopedTimedOut(t *testing.T) {
	p := &probeSession{timeout: 20 * time.Millisecond}
	_, err := scoped(context.Background(), p, "list_tools", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind := callKind(t, err); kind != engine.CallTimedOut {
		t.Errorf("kind = %s, want timeout", kind)
	}
	if !errors.Is(err, timeout.ErrExceeded) {
		t.Errorf("expected wrapped timeout.ErrExceeded, got %v", err)
	}
}

func TestScopedProtocolError(t *testing.T) {
	p := &probeSession{timeout: time.Second}
	boom := errors.New("boom")
	_, err := scoped(context.Background(), p, "list_tools", func(context.Context) (int, error) {
		return 0, boom
	})
	if kind := callKind(t, err); kind != engine.CallProtocol {
		t.Errorf("kind = %s, want protocol", kind)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestScopedCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &probeSession{timeout: time.Second}
	_, err := scoped(ctx, p, "list_tools", func(callCtx context.Context) (int, error) {
		return 0, callCtx.Err()
	})
	if kind := callKind(t, err); kind != engine.CallCanceled {
		t.Errorf("kind = %s, want canceled", kind)
	}
}

func TestScopedSuccess(t *testing.T) {
	p := &probeSession{timeout: time.Second}
	got, err := scoped(context.Background(), p, "list_tools", func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("scoped = %d, %v", got, err)
	}
}
