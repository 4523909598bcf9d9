package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerTerminal(t *testing.T) {
	var buf syncBuffer
	s := newSpinnerTo(context.Background(), &buf, true, "Rendering 2016...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Rendering 2016...") {
		t.Errorf("spinner output = %q", buf.String())
	}
}

func TestSpinnerNonTerminalIsSilent(t *testing.T) {
	var buf syncBuffer
	s := newSpinnerTo(context.Background(), &buf, false, "Rendering...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
	if buf.String() != "" {
		t.Errorf("non-terminal spinner wrote %q", buf.String())
	}

	s.StopWithError("Render failed")
	if !strings.Contains(buf.String(), "Render failed") {
		t.Error("StopWithError should print the message")
	}
}

func TestSpinnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var buf syncBuffer
	s := newSpinnerTo(ctx, &buf, true, "Rendering...")
	s.Start()
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after cancellation")
	}
}
