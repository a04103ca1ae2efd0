package settings

import "github.com/GriffinCanCode/zentat/internal/shared/watch"

// Store publishes the current settings to subscribers.
type Store struct {
	*watch.Value[Settings]
}

// NewStore creates a store holding the normalized initial settings.
func NewStore(initial Settings) *Store {
	return &Store{Value: watch.New(initial.Normalize())}
}

// Update applies a partial document to the current settings and publishes
// the result.
func (s *Store) Update(d Document) (Settings, error) {
	next, err := d.Apply(s.Get())
	if err != nil {
		return Settings{}, err
	}
	s.Set(next)
	return next, nil
}
