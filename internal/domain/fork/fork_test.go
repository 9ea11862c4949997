package fork_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/promptbox/internal/domain"
	"github.com/Strob0t/promptbox/internal/domain/agent"
	"github.com/Strob0t/promptbox/internal/domain/fork"
)

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status fork.Status
		want   bool
	}{
		{fork.StatusSpawning, false},
		{fork.StatusRunning, false},
		{fork.StatusCompleted, true},
		{fork.StatusFailed, true},
		{fork.StatusTerminated, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatusCanTransition(t *testing.T) {
	allowed := map[fork.Status][]fork.Status{
		fork.StatusSpawning: {fork.StatusRunning, fork.StatusFailed, fork.StatusTerminated},
		fork.StatusRunning:  {fork.StatusCompleted, fork.StatusFailed, fork.StatusTerminated},
	}
	all := []fork.Status{
		fork.StatusSpawning, fork.StatusRunning, fork.StatusCompleted,
		fork.StatusFailed, fork.StatusTerminated,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestClampProgress(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 0}, {0, 0}, {42, 42}, {100, 100}, {150, 100},
	}
	for _, tt := range tests {
		if got := fork.ClampProgress(tt.in); got != tt.want {
			t.Errorf("ClampProgress(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTaskLabel(t *testing.T) {
	if got := fork.TaskLabel("short prompt"); got != "short prompt" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("x", 60)
	got := fork.TaskLabel(long)
	if got != strings.Repeat("x", 50)+"..." {
		t.Errorf("got %q", got)
	}
}

func TestForkClone_DeepCopy(t *testing.T) {
	pid := 42
	done := time.Now()
	f := fork.Fork{ID: "abc", PID: &pid, CompletedAt: &done, Output: []string{"one"}}

	c := f.Clone()
	c.Output[0] = "changed"
	*c.PID = 7
	c.Output = append(c.Output, "two")

	if f.Output[0] != "one" || len(f.Output) != 1 {
		t.Fatalf("output shared: %v", f.Output)
	}
	if *f.PID != 42 {
		t.Fatalf("pid shared: %d", *f.PID)
	}
}

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     fork.CreateRequest
		wantErr bool
	}{
		{"valid", fork.CreateRequest{Agent: "claude", ModelTier: agent.TierFast, Prompt: "hi"}, false},
		{"default tier", fork.CreateRequest{Agent: "claude", Prompt: "hi"}, false},
		{"missing agent", fork.CreateRequest{Prompt: "hi"}, true},
		{"blank prompt", fork.CreateRequest{Agent: "claude", Prompt: "   "}, true},
		{"bad tier", fork.CreateRequest{Agent: "claude", ModelTier: "turbo", Prompt: "hi"}, true},
		{"bad role", fork.CreateRequest{
			Agent: "claude", Prompt: "hi",
			ConversationHistory: []agent.Message{{Role: "system", Content: "x"}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestEventPayload(t *testing.T) {
	f := fork.Fork{ID: "abc", Status: fork.StatusRunning}
	up := fork.UpdateEvent(f)
	if p, ok := up.Payload().(*fork.Fork); !ok || p.ID != "abc" {
		t.Fatalf("unexpected update payload %#v", up.Payload())
	}

	out := fork.OutputEvent("abc", "> line")
	p, ok := out.Payload().(fork.OutputData)
	if !ok || p.ForkID != "abc" || p.Output != "> line" {
		t.Fatalf("unexpected output payload %#v", out.Payload())
	}
}
