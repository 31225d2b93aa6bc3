package model

import (
	"context"
)

// MetricRepository defines the interface for model quality metric access
type MetricRepository interface {
	// GetLatest returns the newest metric by training run date,
	// or (nil, nil) when no metric row exists yet
	GetLatest(ctx context.Context) (*Metric, error)

	// Insert stores a new metric row
	Insert(ctx context.Context, metric *Metric) error
}
