package state

import (
	"time"

	"github.com/aegis-watch/console/internal/event"
)

// RiskState tracks the aggregate risk score and the threats seen so far.
// ActiveThreats is append-only and never deduplicated: multiplicity is
// meaningful for display and metrics.
type RiskState struct {
	Score         int       `json:"riskScore"`
	ActiveThreats []string  `json:"activeThreats"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ReduceRisk folds one event into the risk state. The score is
// last-write-wins from RISK_UPDATE; arrival order decides, embedded
// timestamps are not consulted.
func ReduceRisk(prev RiskState, ev event.Event) RiskState {
	next := prev
	switch ev.Type {
	case event.RiskUpdate:
		if score, ok := ev.Number("riskScore"); ok {
			next.Score = int(score)
		} else if score, ok := ev.Number("score"); ok {
			next.Score = int(score)
		}
		next.UpdatedAt = ev.Timestamp
	case event.ThreatDetected, event.HoneyPromptTriggered:
		threats := make([]string, len(prev.ActiveThreats), len(prev.ActiveThreats)+1)
		copy(threats, prev.ActiveThreats)
		next.ActiveThreats = append(threats, threatName(ev))
		next.UpdatedAt = ev.Timestamp
	}
	return next
}

func threatName(ev event.Event) string {
	if s := ev.String("type"); s != "" {
		return s
	}
	if s := ev.String("threat"); s != "" {
		return s
	}
	if ev.Type == event.HoneyPromptTriggered {
		return "HONEY_PROMPT"
	}
	return "UNKNOWN"
}
