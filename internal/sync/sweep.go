package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/diwanhq/diwan/internal/models"
)

// Connections whose token expires within this margin are re-authenticated
// during a sweep instead of waiting for the token to lapse mid-operation.
const expiryMargin = time.Hour

// ConnectionOutcome is one connection's result within a sweep.
type ConnectionOutcome struct {
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// SweepResult aggregates a full sweep. One connection failing never stops
// the others.
type SweepResult struct {
	Checked  int                 `json:"checked"`
	Outcomes []ConnectionOutcome `json:"results"`
}

// Sweep re-authenticates and syncs every active connection. Connections are
// fully independent, so they run in parallel, bounded by workers.
func (b *Bridge) Sweep(ctx context.Context, workers int) (SweepResult, error) {
	if workers < 1 {
		workers = 1
	}

	var conns []models.ExternalConnection
	if err := b.db.Select(&conns, `
		SELECT * FROM external_connections WHERE is_active = 1`); err != nil {
		return SweepResult{}, fmt.Errorf("list active connections: %w", err)
	}

	outcomes := make([]ConnectionOutcome, len(conns))
	sem := make(chan struct{}, workers)
	var wg gosync.WaitGroup

	for i, conn := range conns {
		wg.Add(1)
		go func(i int, conn models.ExternalConnection) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[i] = b.sweepOne(ctx, conn)
		}(i, conn)
	}
	wg.Wait()

	b.logger.Info("connection sweep finished", zap.Int("checked", len(conns)))
	return SweepResult{Checked: len(conns), Outcomes: outcomes}, nil
}

func (b *Bridge) sweepOne(ctx context.Context, conn models.ExternalConnection) ConnectionOutcome {
	out := ConnectionOutcome{ConnectionID: conn.ID, Name: conn.Name}

	if !conn.TokenValidAt(b.now().Add(expiryMargin)) {
		if _, err := b.Authenticate(ctx, conn.ID); err != nil {
			b.logger.Warn("sweep authentication failed",
				zap.String("connection_id", conn.ID), zap.Error(err))
			out.Status = "error"
			out.Error = err.Error()
			return out
		}
	}

	if _, err := b.Sync(ctx, conn.ID); err != nil {
		out.Status = "error"
		out.Error = err.Error()
		return out
	}

	out.Status = "success"
	return out
}
