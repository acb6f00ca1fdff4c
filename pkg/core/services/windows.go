package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oakridgegc/teetime-lottery/pkg/core/lottery"
	"github.com/oakridgegc/teetime-lottery/pkg/db"
)

// PreviewWindowsStore defines the database operations needed to preview a
// date's computed time windows
type PreviewWindowsStore interface {
	GetTimeBlocks(ctx context.Context, lotteryDate string) ([]db.TimeBlock, error)
	GetAlgorithmConfig(ctx context.Context) (*db.AlgorithmConfig, error)
}

// PreviewWindows computes the time windows the scorer would use for a date.
// Read-only; the same partition is recomputed inside every processing pass.
func PreviewWindows(ctx context.Context, store PreviewWindowsStore, logger *zap.Logger, date time.Time) ([]lottery.TimeWindow, error) {
	dateKey := date.Format("2006-01-02")

	algoCfg, err := loadAlgorithmConfig(ctx, store)
	if err != nil {
		return nil, err
	}

	blocks, err := store.GetTimeBlocks(ctx, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch time blocks: %w", err)
	}

	starts := make([]int, len(blocks))
	for i, b := range blocks {
		starts[i] = b.StartMinute
	}

	windows := lottery.ComputeTimeWindows(starts, algoCfg.MaxWindowDurationMinutes)
	logger.Debug("Previewed time windows",
		zap.String("date", dateKey), zap.Int("blocks", len(blocks)), zap.Int("windows", len(windows)))

	return windows, nil
}
