package service

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper запускает фоновую сверку всех активных сессий на фиксированном
// интервале до отмены контекста. Начатый проход всегда дорабатывает до конца.
func (s *PresenceService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("presence sweeper started", "interval", interval)
	for {
		select {
		case <-ticker.C:
			s.sweepAll(ctx)
		case <-ctx.Done():
			slog.Info("presence sweeper stopped")
			return
		}
	}
}

// sweepAll — провал сверки одной сессии не мешает остальным.
func (s *PresenceService) sweepAll(ctx context.Context) {
	codes, err := s.sessions.ListActiveCodes(ctx)
	if err != nil {
		slog.Error("sweep: list active sessions failed", "err", err)
		return
	}

	for _, code := range codes {
		report, err := s.Reconcile(ctx, code)
		if err != nil {
			slog.Error("sweep: reconcile failed", "code", code, "err", err)
			continue
		}
		if report.GhostsRemoved > 0 {
			slog.Info("sweep: ghosts removed",
				"code", code,
				"connected", report.Connected,
				"ghosts", report.GhostsRemoved)
		}
	}
}
