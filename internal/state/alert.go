package state

import (
	"time"

	"github.com/aegis-watch/console/internal/event"
)

// AlertTierState tracks the defcon severity and its derived tier. Within
// one session the tier only escalates; it drops back to Normal only on
// an explicit terminate or reboot event.
type AlertTierState struct {
	Defcon    int       `json:"defcon"`
	Tier      Tier      `json:"alertTier"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewAlertTierState starts a session at the safe defcon floor.
func NewAlertTierState(now time.Time) AlertTierState {
	return AlertTierState{Defcon: 1, Tier: Normal, UpdatedAt: now}
}

// ReduceAlertTier folds one event into the alert state.
func ReduceAlertTier(prev AlertTierState, ev event.Event) AlertTierState {
	next := prev
	switch ev.Type {
	case event.DefconUpdate:
		defcon := prev.Defcon
		if d, ok := ev.Number("defcon"); ok {
			defcon = int(d)
		} else if d, ok := ev.Number("level"); ok {
			defcon = int(d)
		}
		if defcon < 1 {
			defcon = 1
		}
		if defcon > 5 {
			defcon = 5
		}
		// Monotonic: a lower incoming severity never de-escalates.
		if defcon > next.Defcon {
			next.Defcon = defcon
			next.Tier = TierForDefcon(defcon)
		}
		next.UpdatedAt = ev.Timestamp
	case event.SessionTerminated, event.SystemReboot:
		next.Defcon = 1
		next.Tier = Normal
		next.UpdatedAt = ev.Timestamp
	}
	return next
}
