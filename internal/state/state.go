// Package state holds the derived security indicators and the pure
// reducers that fold the event stream into them. Reducers never mutate
// their input; callers own the returned value.
package state

import (
	"encoding/json"

	"github.com/aegis-watch/console/internal/event"
)

// Tier is the coarse alert classification derived from the defcon
// severity signal.
type Tier int

const (
	Normal Tier = iota
	Elevated
	Critical
)

var tierNames = map[Tier]string{
	Normal:   "normal",
	Elevated: "elevated",
	Critical: "critical",
}

var tierFromName = map[string]Tier{
	"normal":   Normal,
	"elevated": Elevated,
	"critical": Critical,
}

func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return "unknown"
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := tierFromName[s]; ok {
		*t = v
	}
	return nil
}

// TierForDefcon maps a 1-5 severity to a tier. Defcon here runs upward:
// 1 is safe, 5 is critical.
func TierForDefcon(defcon int) Tier {
	switch {
	case defcon >= 5:
		return Critical
	case defcon >= 3:
		return Elevated
	default:
		return Normal
	}
}

// Changes reports whether an event type feeds any reducer and therefore
// warrants a timeline snapshot.
func Changes(typ event.Type) bool {
	switch typ {
	case event.RiskUpdate, event.ThreatDetected, event.HoneyPromptTriggered,
		event.TrustUpdate, event.DefconUpdate, event.ActionDecision,
		event.SessionTerminated, event.SystemReboot:
		return true
	}
	return false
}
