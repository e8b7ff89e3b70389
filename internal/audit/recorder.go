package audit

import (
	"context"
	"log/slog"
)

// Recorder accepts audit entries from the services. Recording never
// fails the operation being audited.
type Recorder interface {
	Record(ctx context.Context, log *Log)
}

// Trail is a Recorder that writes to a Repository and logs write failures.
type Trail struct {
	repo   Repository
	logger *slog.Logger
}

// NewTrail creates a Trail over repo.
func NewTrail(repo Repository, logger *slog.Logger) *Trail {
	return &Trail{repo: repo, logger: logger}
}

// Record stores log. Errors are logged and dropped.
func (t *Trail) Record(ctx context.Context, log *Log) {
	// The request context may already be cancelled once the response is sent.
	if err := t.repo.Create(context.WithoutCancel(ctx), log); err != nil {
		t.logger.Error("audit write failed", "action", log.Action, "error", err)
	}
}

// Nop discards every entry.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, *Log) {}
