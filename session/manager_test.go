package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkwell-ai/inkwell/cancel"
	"github.com/inkwell-ai/inkwell/provider"
	"github.com/inkwell-ai/inkwell/retry"
)

func waitTerminal(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session %s never reached a terminal state", s.ID())
	}
}

func TestManager_SubmitCompletes(t *testing.T) {
	m := NewManager(Config{})

	sess, err := m.Submit(context.Background(), func(ctx context.Context) (*provider.Generation, error) {
		return &provider.Generation{Chapters: "done", Model: "test-model"}, nil
	}, SubmitOptions{OwnerID: "tab-1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	waitTerminal(t, sess)

	if sess.Status() != StatusCompleted {
		t.Errorf("expected completed, got %s", sess.Status())
	}
	result, resErr := sess.Result()
	if resErr != nil {
		t.Errorf("unexpected error: %v", resErr)
	}
	if result == nil || result.Chapters != "done" {
		t.Errorf("unexpected result: %+v", result)
	}

	rec, err := m.Store().GetRecord(context.Background(), sess.ID())
	if err != nil {
		t.Fatalf("get record failed: %v", err)
	}
	if rec.Status != StatusCompleted || rec.Percent != 100 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Chapters != "done" || rec.Model != "test-model" {
		t.Errorf("expected generation persisted, got %+v", rec)
	}
}

func TestManager_SubmitFails(t *testing.T) {
	m := NewManager(Config{})

	sess, err := m.Submit(context.Background(), func(ctx context.Context) (*provider.Generation, error) {
		return nil, errors.New("provider rejected the request")
	}, SubmitOptions{})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	waitTerminal(t, sess)

	if sess.Status() != StatusFailed {
		t.Errorf("expected failed, got %s", sess.Status())
	}
	if p := sess.Progress(); !p.IsFailed() || p.Percent() != 0 {
		t.Errorf("unexpected terminal progress: %+v", p)
	}
}

func TestManager_TransitionOrder(t *testing.T) {
	m := NewManager(Config{})

	release := make(chan struct{})
	sess, err := m.Submit(context.Background(), func(ctx context.Context) (*provider.Generation, error) {
		<-release
		return &provider.Generation{}, nil
	}, SubmitOptions{})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	close(release)
	waitTerminal(t, sess)

	trs, err := m.Store().Transitions(context.Background(), sess.ID())
	if err != nil {
		t.Fatalf("transitions failed: %v", err)
	}
	if len(trs) < 3 {
		t.Fatalf("expected at least pending/running/completed transitions, got %d", len(trs))
	}
	if trs[0].Status != StatusPending || trs[0].Percent != 30 {
		t.Errorf("unexpected first transition: %+v", trs[0])
	}
	last := trs[len(trs)-1]
	if last.Status != StatusCompleted || last.Percent != 100 || !last.Complete {
		t.Errorf("unexpected final transition: %+v", last)
	}
	for i, tr := range trs {
		if tr.Seq != int64(i+1) {
			t.Errorf("transition %d: expected seq %d, got %d", i, i+1, tr.Seq)
		}
	}
}

func TestManager_DeadlineTimesOut(t *testing.T) {
	m := NewManager(Config{})

	sess, err := m.Submit(context.Background(), func(ctx context.Context) (*provider.Generation, error) {
		<-ctx.Done()
		return nil, retry.ErrCanceled
	}, SubmitOptions{Deadline: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	waitTerminal(t, sess)

	if sess.Status() != StatusTimedOut {
		t.Errorf("expected timed out, got %s", sess.Status())
	}
	_, resErr := sess.Result()
	if !errors.Is(resErr, ErrDeadlineExceeded) {
		t.Errorf("expected ErrDeadlineExceeded, got %v", resErr)
	}
}

func TestManager_CancelSession(t *testing.T) {
	m := NewManager(Config{})

	sess, err := m.Submit(context.Background(), func(ctx context.Context) (*provider.Generation, error) {
		<-ctx.Done()
		return nil, retry.ErrCanceled
	}, SubmitOptions{OwnerID: "tab-1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if !m.Cancel(sess.ID()) {
		t.Error("expected cancel to find the session")
	}
	waitTerminal(t, sess)

	if sess.Status() != StatusCanceled {
		t.Errorf("expected canceled, got %s", sess.Status())
	}
	if m.Cancel(sess.ID()) {
		t.Error("canceling a terminal session must report false")
	}
}

func TestManager_CancelOwnerScoped(t *testing.T) {
	m := NewManager(Config{})

	blocked := func(ctx context.Context) (*provider.Generation, error) {
		<-ctx.Done()
		return nil, retry.ErrCanceled
	}

	s1, err := m.Submit(context.Background(), blocked, SubmitOptions{OwnerID: "tab-7"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	s2, err := m.Submit(context.Background(), blocked, SubmitOptions{OwnerID: "tab-7"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	release := make(chan struct{})
	s3, err := m.Submit(context.Background(), func(ctx context.Context) (*provider.Generation, error) {
		<-release
		return &provider.Generation{}, nil
	}, SubmitOptions{OwnerID: "tab-9"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if n := m.CancelOwner("tab-7"); n != 2 {
		t.Errorf("expected 2 canceled, got %d", n)
	}
	waitTerminal(t, s1)
	waitTerminal(t, s2)
	if s1.Status() != StatusCanceled || s2.Status() != StatusCanceled {
		t.Errorf("expected tab-7 sessions canceled, got %s and %s", s1.Status(), s2.Status())
	}

	close(release)
	waitTerminal(t, s3)
	if s3.Status() != StatusCompleted {
		t.Errorf("tab-9 session must be unaffected, got %s", s3.Status())
	}
}

func TestManager_SharedRegistryReachesRequests(t *testing.T) {
	registry := cancel.NewRegistry()
	m := NewManager(Config{Registry: registry})

	// The call registers its own request handle under the same owner, the way
	// the retry orchestrator does.
	sess, err := m.Submit(context.Background(), func(ctx context.Context) (*provider.Generation, error) {
		reqCtx, cancelFn := context.WithCancel(ctx)
		if err := registry.Register("req-inner", cancelFn, "tab-7"); err != nil {
			return nil, err
		}
		defer registry.Deregister("req-inner")
		<-reqCtx.Done()
		return nil, retry.ErrCanceled
	}, SubmitOptions{OwnerID: "tab-7"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for registry.OwnerLen("tab-7") < 2 {
		select {
		case <-deadline:
			t.Fatal("inner request never registered")
		case <-time.After(time.Millisecond):
		}
	}

	if n := m.CancelOwner("tab-7"); n != 2 {
		t.Errorf("expected session and request canceled together, got %d", n)
	}
	waitTerminal(t, sess)
	if sess.Status() != StatusCanceled {
		t.Errorf("expected canceled, got %s", sess.Status())
	}
}

func TestManager_LongRunningMilestone(t *testing.T) {
	m := NewManager(Config{LongRunningAfter: 10 * time.Millisecond})

	release := make(chan struct{})
	sess, err := m.Submit(context.Background(), func(ctx context.Context) (*provider.Generation, error) {
		<-release
		return &provider.Generation{}, nil
	}, SubmitOptions{})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for sess.Progress().Percent() != 90 {
		select {
		case <-deadline:
			t.Fatalf("long-running milestone never reported, at %d%%", sess.Progress().Percent())
		case <-time.After(time.Millisecond):
		}
	}

	close(release)
	waitTerminal(t, sess)
	if sess.Status() != StatusCompleted {
		t.Errorf("expected completed, got %s", sess.Status())
	}
}

func TestManager_Shutdown(t *testing.T) {
	m := NewManager(Config{})

	blocked := func(ctx context.Context) (*provider.Generation, error) {
		<-ctx.Done()
		return nil, retry.ErrCanceled
	}
	s1, _ := m.Submit(context.Background(), blocked, SubmitOptions{OwnerID: "a"})
	s2, _ := m.Submit(context.Background(), blocked, SubmitOptions{OwnerID: "b"})

	m.Shutdown()
	waitTerminal(t, s1)
	waitTerminal(t, s2)

	if s1.Status() != StatusCanceled || s2.Status() != StatusCanceled {
		t.Errorf("expected both sessions canceled, got %s and %s", s1.Status(), s2.Status())
	}
}

func TestManager_SubmitRequiresCall(t *testing.T) {
	m := NewManager(Config{})
	if _, err := m.Submit(context.Background(), nil, SubmitOptions{}); err == nil {
		t.Error("expected error for nil call")
	}
}
