package timeline

// DefaultMaxHistory bounds the patch log when Config.MaxHistory is unset.
const DefaultMaxHistory = 100

// Config controls history recording.
type Config struct {
	// Enabled turns history recording on. A disabled engine still applies
	// mutations but never records, travels or notifies.
	Enabled bool
	// MaxHistory caps the number of patch pairs kept in the log.
	MaxHistory int
	// AutoArchive folds the oldest entry into the baseline when the log is
	// full. When false, Mutate returns ErrHistoryFull instead and callers must
	// call Archive to make room.
	AutoArchive bool
}

// DefaultConfig returns an enabled configuration with auto archiving.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxHistory:  DefaultMaxHistory,
		AutoArchive: true,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxHistory <= 0 {
		c.MaxHistory = DefaultMaxHistory
	}
	return c
}
