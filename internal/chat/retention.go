package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/coinhatch/coinhatch/internal/audit"
	"github.com/coinhatch/coinhatch/internal/config"
	"github.com/coinhatch/coinhatch/internal/repository"
	pkglog "github.com/coinhatch/coinhatch/pkg/log"
)

// Sweeper periodically trims each room's message history to the
// configured maximum count. Sweep failures are logged and retried on
// the next tick, never within a cycle.
type Sweeper struct {
	messages repository.MessageRepository
	interval time.Duration
	keep     int
	quit     chan struct{}
	doneCh   chan struct{}
}

// NewSweeper creates a retention sweeper.
func NewSweeper(messages repository.MessageRepository, cfg config.ChatConfig) *Sweeper {
	interval := cfg.RetentionInterval
	if interval <= 0 {
		interval = time.Hour
	}
	keep := cfg.RetentionKeep
	if keep <= 0 {
		keep = 50
	}
	return &Sweeper{
		messages: messages,
		interval: interval,
		keep:     keep,
		quit:     make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweeper in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop signals the sweeper to stop and returns immediately.
// Call Done() to wait for it to exit.
func (s *Sweeper) Stop() {
	close(s.quit)
}

// Done returns a channel that is closed when the sweeper has fully stopped.
func (s *Sweeper) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep trims every room with live messages to the keep newest ones.
// Per-room failures are logged and skipped so one bad room cannot
// starve the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	l := pkglog.L()
	l.Info().Msg("retention sweep: starting")

	roomIDs, err := s.messages.RoomIDs(ctx)
	if err != nil {
		l.Error().Err(err).Msg("retention sweep: failed to list rooms")
		return
	}

	var trimmed int64
	for _, roomID := range roomIDs {
		n, err := s.messages.TrimRoom(ctx, roomID, s.keep)
		if err != nil {
			l.Error().Err(err).Str(pkglog.FieldRoomID, roomID).Msg("retention sweep: failed to trim room")
			continue
		}
		trimmed += n
	}

	l.Info().Int("rooms", len(roomIDs)).Int64("trimmed", trimmed).Msg("retention sweep: complete")
	audit.Log(ctx, audit.ActionRetentionSweep, "system",
		fmt.Sprintf("trimmed %d messages across %d rooms", trimmed, len(roomIDs)))
}
