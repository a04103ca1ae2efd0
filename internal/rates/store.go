package rates

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/zentat/internal/shared/watch"
)

// Store publishes the current rate table to subscribers.
type Store struct {
	*watch.Value[Table]
	logger *zap.Logger
}

// NewStore creates a store holding initial.
func NewStore(initial Table) *Store {
	return &Store{Value: watch.New(initial), logger: zap.NewNop()}
}

// WithLogger sets the store's logger.
func (s *Store) WithLogger(logger *zap.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Refresh fetches a table from the first source that answers and publishes
// it. On failure the current table is kept.
func (s *Store) Refresh(ctx context.Context, sources ...Source) (Table, error) {
	t, err := Fetch(ctx, sources...)
	if err != nil {
		s.logger.Warn("Rate refresh failed", zap.Error(err))
		return s.Get(), err
	}
	s.Set(t)
	s.logger.Info("Rates updated",
		zap.String("source", t.Source),
		zap.Int("currencies", len(t.Rates)),
	)
	return t, nil
}

// LoadFile reads a table in wire form from path.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read rates file: %w", err)
	}
	var t Table
	if err := sonic.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("failed to decode rates file %s: %w", path, err)
	}
	return t, nil
}

// SaveFile writes a table in wire form to path.
func SaveFile(path string, t Table) error {
	data, err := sonic.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write rates file: %w", err)
	}
	return nil
}
