package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/promptbox/internal/domain"
	"github.com/Strob0t/promptbox/internal/domain/fork"
	"github.com/Strob0t/promptbox/internal/logger"
	"github.com/Strob0t/promptbox/internal/port/messagequeue"
)

// ApplyReport routes a status report from an agent's terminal to the
// matching fork mutation.
func (s *ForkService) ApplyReport(ctx context.Context, r messagequeue.ForkReportPayload) (fork.Fork, error) {
	ctx = logger.WithForkID(ctx, r.ForkID)

	switch r.Kind {
	case messagequeue.ReportProgress:
		return s.UpdateProgress(ctx, r.ForkID, r.Progress)
	case messagequeue.ReportOutput:
		if r.Line == "" {
			return fork.Fork{}, fmt.Errorf("%w: line is required", domain.ErrValidation)
		}
		return s.AppendOutput(ctx, r.ForkID, r.Line)
	case messagequeue.ReportComplete:
		return s.MarkCompleted(ctx, r.ForkID)
	case messagequeue.ReportFail:
		return s.MarkFailed(ctx, r.ForkID, r.Message)
	default:
		return fork.Fork{}, fmt.Errorf("%w: unknown report kind %q", domain.ErrValidation, r.Kind)
	}
}

// HandleReportMessage is the queue handler for forks.reports. Reports that
// can never succeed (bad schema, unknown or finished fork) are logged and
// acknowledged rather than redelivered.
func (s *ForkService) HandleReportMessage(ctx context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		slog.WarnContext(ctx, "discarding invalid fork report", "subject", subject, "error", err)
		return nil
	}

	var r messagequeue.ForkReportPayload
	if err := json.Unmarshal(data, &r); err != nil {
		slog.WarnContext(ctx, "discarding undecodable fork report", "subject", subject, "error", err)
		return nil
	}

	_, err := s.ApplyReport(ctx, r)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, fork.ErrTerminal),
		errors.Is(err, fork.ErrInvalidTransition):
		slog.InfoContext(ctx, "fork report rejected", "fork_id", r.ForkID, "kind", r.Kind, "error", err)
		return nil
	default:
		return err
	}
}

// EventMirror returns a fan-out handler that republishes every lifecycle
// event on forks.events.{id}.
func EventMirror(q messagequeue.Queue) EventHandler {
	return func(ctx context.Context, ev fork.Event) error {
		if !q.IsConnected() {
			return errors.New("event mirror: queue not connected")
		}
		data, err := json.Marshal(ev.Payload())
		if err != nil {
			return fmt.Errorf("event mirror: marshal %s: %w", ev.Type, err)
		}
		msg, err := json.Marshal(messagequeue.ForkEventPayload{
			Type:   string(ev.Type),
			ForkID: ev.ForkID,
			Data:   data,
		})
		if err != nil {
			return fmt.Errorf("event mirror: marshal envelope: %w", err)
		}
		return q.Publish(ctx, messagequeue.ForkEventSubject(ev.ForkID), msg)
	}
}
