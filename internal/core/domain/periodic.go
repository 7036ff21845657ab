package domain

import (
	"fmt"
	"time"
)

// DefaultSyncInterval is the periodic sync interval used when periodic sync
// is enabled without an explicit interval.
const DefaultSyncInterval = 30 * time.Second

// PeriodicSync is the resolved periodic sync schedule.
type PeriodicSync struct {
	// Enabled indicates periodic sync runs at all.
	Enabled bool

	// Interval is the time between periodic triggers.
	Interval time.Duration
}

// String returns a human-readable description of the schedule.
func (p PeriodicSync) String() string {
	if !p.Enabled {
		return "disabled"
	}
	return "every " + p.Interval.String()
}

// ResolvePeriodicSync interprets a periodic sync setting.
//
// The setting is one of:
//   - nil, false or 0: disabled
//   - true: enabled at DefaultSyncInterval
//   - a positive integer: enabled at that many milliseconds
//   - a positive time.Duration: enabled at that duration
//
// Any other value returns ErrInvalidInput together with a disabled schedule.
func ResolvePeriodicSync(setting any) (PeriodicSync, error) {
	switch v := setting.(type) {
	case nil:
		return PeriodicSync{}, nil
	case bool:
		if !v {
			return PeriodicSync{}, nil
		}
		return PeriodicSync{Enabled: true, Interval: DefaultSyncInterval}, nil
	case time.Duration:
		return periodicFromDuration(v)
	case int:
		return periodicFromMillis(int64(v))
	case int64:
		return periodicFromMillis(v)
	case float64:
		if v != float64(int64(v)) {
			return PeriodicSync{}, fmt.Errorf("%w: periodic interval %v is not a whole number of milliseconds", ErrInvalidInput, v)
		}
		return periodicFromMillis(int64(v))
	default:
		return PeriodicSync{}, fmt.Errorf("%w: periodic interval of type %T", ErrInvalidInput, setting)
	}
}

func periodicFromMillis(ms int64) (PeriodicSync, error) {
	if ms == 0 {
		return PeriodicSync{}, nil
	}
	return periodicFromDuration(time.Duration(ms) * time.Millisecond)
}

func periodicFromDuration(d time.Duration) (PeriodicSync, error) {
	if d == 0 {
		return PeriodicSync{}, nil
	}
	if d < 0 {
		return PeriodicSync{}, fmt.Errorf("%w: periodic interval %s must be positive", ErrInvalidInput, d)
	}
	return PeriodicSync{Enabled: true, Interval: d}, nil
}
