package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func quietSpinner(ctx context.Context, msg string) (*Spinner, *bytes.Buffer) {
	var buf bytes.Buffer
	s := newSpinner(ctx, msg)
	s.out = &buf
	return s, &buf
}

func TestSpinnerDrawsMessage(t *testing.T) {
	s, buf := quietSpinner(context.Background(), "Converting to png...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Converting to png...") {
		t.Errorf("spinner output %q lacks the message", buf.String())
	}
	if !s.Cancelled() {
		t.Error("Cancelled() = false after Stop")
	}
}

func TestSpinnerSetMessage(t *testing.T) {
	s, buf := quietSpinner(context.Background(), "first")
	s.SetMessage("second")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if strings.Contains(buf.String(), "first") {
		t.Error("old message drawn after SetMessage")
	}
	if !strings.Contains(buf.String(), "second") {
		t.Error("new message not drawn")
	}
}

func TestSpinnerClearsWidestMessage(t *testing.T) {
	s, buf := quietSpinner(context.Background(), "Converting to png...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("ok")
	s.Stop()

	blank := "\r" + strings.Repeat(" ", len("Converting to png...")+4) + "\r"
	if !strings.HasSuffix(buf.String(), blank) {
		t.Errorf("final clear does not cover the longest message: %q", buf.String())
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()
			s, _ := quietSpinner(ctx, "waiting")
			s.Start()
			time.Sleep(100 * time.Millisecond)
			if !s.Cancelled() {
				t.Error("spinner not cancelled with its context")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "stop twice")
	s.Start()
	s.Stop()
	s.Stop()
}
