package runtime

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestObserverRunDeliversSnapshotsUntilCancelled(t *testing.T) {
	board := NewStatusBoard()
	board.Publish([4]string{"running", "", "", ""})
	board.PublishLatest(map[string]string{"Voltage (dmm) [V]": "1.5"})

	obs := NewObserver(board, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var got []Snapshot
	sink := func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	}

	done := make(chan struct{})
	go func() {
		obs.Run(ctx, sink)
		close(done)
	}()

	time.Sleep(ObserverPollInterval*2 + 100*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after ctx was cancelled")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 {
		t.Fatal("expected at least one snapshot delivered before cancellation")
	}
	last := got[len(got)-1]
	if last.Lines[0] != "running" {
		t.Errorf("Lines[0] = %q, want %q", last.Lines[0], "running")
	}
	if last.Latest["Voltage (dmm) [V]"] != "1.5" {
		t.Errorf("Latest = %v", last.Latest)
	}
}

func TestObserverRunStopsImmediatelyOnAlreadyCancelledContext(t *testing.T) {
	board := NewStatusBoard()
	obs := NewObserver(board, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		obs.Run(ctx, func(Snapshot) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return promptly when ctx is already cancelled")
	}
}
