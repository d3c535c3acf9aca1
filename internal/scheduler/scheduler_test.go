package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"healthfeed/internal/model"
	"healthfeed/internal/pipeline"
	"healthfeed/internal/store"
	"healthfeed/internal/urlcheck"
)

type chanNotifier struct {
	runs chan model.IngestResult
}

func (n *chanNotifier) NotifyRun(result model.IngestResult, _ time.Duration) {
	n.runs <- result
}

func TestRunNotifiesAfterInitialPass(t *testing.T) {
	st, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(st, log, pipeline.Options{Validator: urlcheck.AlwaysAdmit{}})

	notifier := &chanNotifier{runs: make(chan model.IngestResult, 1)}
	s := New(p, nil, notifier, log)
	s.SetTickInterval(time.Hour)

	invalidated := make(chan struct{}, 1)
	s.OnRun(func() { invalidated <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case result := <-notifier.runs:
		if result.Scraped != 0 || result.Saved != 0 {
			t.Errorf("result = %+v, want zero for empty source list", result)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run notification")
	}

	select {
	case <-invalidated:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run callback")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
