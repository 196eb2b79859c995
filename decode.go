package timetravel

import "github.com/goliatone/go-timetravel/internal/hydrate"

// Decode converts the live document into T through a JSON round trip.
func Decode[T any](s *Store) (T, error) {
	return hydrate.NewDecoder[T]().Decode(s.decodeContext(), s.data)
}

// DecodeStrict is Decode with unknown document keys rejected.
func DecodeStrict[T any](s *Store) (T, error) {
	return hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[T]()).Decode(s.decodeContext(), s.data)
}

// DecodeHistory decodes every state of the active timeline, baseline first.
// The result is indexed by position.
func DecodeHistory[T any](s *Store) ([]T, error) {
	return hydrate.NewDecoder[T]().DecodeAll(s.decodeContext(), s.Temporal().History())
}

func (s *Store) decodeContext() hydrate.Context {
	return hydrate.Context{
		Store:    s.cfg.name,
		Branch:   s.branches.ActiveID(),
		Position: s.engine().Position(),
	}
}
