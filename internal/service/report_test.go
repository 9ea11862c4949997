package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Strob0t/promptbox/internal/domain"
	"github.com/Strob0t/promptbox/internal/domain/fork"
	"github.com/Strob0t/promptbox/internal/port/messagequeue"
)

var _ messagequeue.Queue = (*mockQueue)(nil)

// mockQueue implements messagequeue.Queue for testing.
type mockQueue struct {
	mu         sync.Mutex
	published  []publishedMsg
	publishErr error
	down       bool
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, publishedMsg{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return !q.down }

func TestApplyReport(t *testing.T) {
	tests := []struct {
		name       string
		report     func(id string) messagequeue.ForkReportPayload
		wantStatus fork.Status
		wantErr    error
	}{
		{
			name:       "progress",
			report:     func(id string) messagequeue.ForkReportPayload { return messagequeue.ForkReportPayload{ForkID: id, Kind: messagequeue.ReportProgress, Progress: 55} },
			wantStatus: fork.StatusRunning,
		},
		{
			name:       "output",
			report:     func(id string) messagequeue.ForkReportPayload { return messagequeue.ForkReportPayload{ForkID: id, Kind: messagequeue.ReportOutput, Line: "tests pass"} },
			wantStatus: fork.StatusRunning,
		},
		{
			name:    "empty output",
			report:  func(id string) messagequeue.ForkReportPayload { return messagequeue.ForkReportPayload{ForkID: id, Kind: messagequeue.ReportOutput} },
			wantErr: domain.ErrValidation,
		},
		{
			name:       "complete",
			report:     func(id string) messagequeue.ForkReportPayload { return messagequeue.ForkReportPayload{ForkID: id, Kind: messagequeue.ReportComplete} },
			wantStatus: fork.StatusCompleted,
		},
		{
			name:       "fail",
			report:     func(id string) messagequeue.ForkReportPayload { return messagequeue.ForkReportPayload{ForkID: id, Kind: messagequeue.ReportFail, Message: "oops"} },
			wantStatus: fork.StatusFailed,
		},
		{
			name:    "unknown kind",
			report:  func(id string) messagequeue.ForkReportPayload { return messagequeue.ForkReportPayload{ForkID: id, Kind: "explode"} },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown fork",
			report:  func(string) messagequeue.ForkReportPayload { return messagequeue.ForkReportPayload{ForkID: "ghost", Kind: messagequeue.ReportComplete} },
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newForkFixture(t, ForkConfig{})
			f := fx.create(t, "claude", "p")

			got, err := fx.svc.ApplyReport(context.Background(), tt.report(f.ID))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Fatalf("expected %s, got %s", tt.wantStatus, got.Status)
			}
		})
	}
}

func TestHandleReportMessage(t *testing.T) {
	fx := newForkFixture(t, ForkConfig{})
	f := fx.create(t, "claude", "p")
	ctx := context.Background()

	msg := []byte(`{"forkId":"` + f.ID + `","kind":"progress","progress":70}`)
	if err := fx.svc.HandleReportMessage(ctx, messagequeue.SubjectForkReports, msg); err != nil {
		t.Fatal(err)
	}
	got, _ := fx.svc.GetFork(f.ID)
	if got.Progress != 70 {
		t.Fatalf("expected progress 70, got %d", got.Progress)
	}

	// Undeliverable reports are acknowledged, never redelivered.
	rejects := [][]byte{
		[]byte(`{not json`),
		[]byte(`{"kind":"progress"}`),
		[]byte(`{"forkId":"ghost","kind":"complete"}`),
	}
	for _, data := range rejects {
		if err := fx.svc.HandleReportMessage(ctx, messagequeue.SubjectForkReports, data); err != nil {
			t.Fatalf("expected ack for %s, got %v", data, err)
		}
	}

	complete := []byte(`{"forkId":"` + f.ID + `","kind":"complete"}`)
	for range 2 {
		if err := fx.svc.HandleReportMessage(ctx, messagequeue.SubjectForkReports, complete); err != nil {
			t.Fatalf("expected ack, got %v", err)
		}
	}
	got, _ = fx.svc.GetFork(f.ID)
	if got.Status != fork.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestEventMirror(t *testing.T) {
	q := &mockQueue{}
	mirror := EventMirror(q)

	f := fork.Fork{ID: "abc12345", Status: fork.StatusRunning}
	if err := mirror(context.Background(), fork.UpdateEvent(f)); err != nil {
		t.Fatal(err)
	}
	if err := mirror(context.Background(), fork.OutputEvent("abc12345", "> line")); err != nil {
		t.Fatal(err)
	}

	if len(q.published) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(q.published))
	}
	if q.published[0].subject != "forks.events.abc12345" {
		t.Fatalf("unexpected subject %s", q.published[0].subject)
	}

	var env messagequeue.ForkEventPayload
	if err := json.Unmarshal(q.published[1].data, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != string(fork.EventOutput) || env.ForkID != "abc12345" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var out fork.OutputData
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Output != "> line" {
		t.Fatalf("unexpected output %q", out.Output)
	}
	if err := messagequeue.Validate(q.published[0].subject, q.published[0].data); err != nil {
		t.Fatalf("mirrored message failed validation: %v", err)
	}
}

func TestEventMirrorDisconnected(t *testing.T) {
	q := &mockQueue{down: true}
	if err := EventMirror(q)(context.Background(), fork.OutputEvent("a", "b")); err == nil {
		t.Fatal("expected error when queue is down")
	}
	if len(q.published) != 0 {
		t.Fatal("nothing should be published")
	}
}
