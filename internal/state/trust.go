package state

import (
	"time"

	"github.com/aegis-watch/console/internal/event"
)

// Trust defaults, mirroring the remote engine's session trust model.
const (
	DefaultTrust = 75.0
	maxTrust     = 100.0

	// DefaultTrustDecayPerMinute is the score lost per minute of
	// inactivity (0.5% of the 0-100 scale).
	DefaultTrustDecayPerMinute = 0.5
)

// TrustState holds the session trust score. The stored score is the
// value as of LastUpdate; decay is applied lazily at read time, so
// correctness does not depend on any poll cadence.
type TrustState struct {
	Score          float64   `json:"trust"`
	LastUpdate     time.Time `json:"lastUpdate"`
	DecayPerMinute float64   `json:"-"`
}

// NewTrustState seeds trust at the engine default.
func NewTrustState(now time.Time) TrustState {
	return TrustState{Score: DefaultTrust, LastUpdate: now, DecayPerMinute: DefaultTrustDecayPerMinute}
}

// At returns the decayed score as of now. Monotonic: with no intervening
// positive event, a later read never exceeds an earlier one.
func (s TrustState) At(now time.Time) float64 {
	elapsed := now.Sub(s.LastUpdate)
	if elapsed <= 0 {
		return s.Score
	}
	decayed := s.Score - s.DecayPerMinute*elapsed.Minutes()
	return clampTrust(decayed)
}

// Level names the trust band for display.
func (s TrustState) Level(now time.Time) string {
	score := s.At(now)
	switch {
	case score <= 25:
		return "UNTRUSTED"
	case score <= 50:
		return "CAUTIOUS"
	case score <= 75:
		return "TRUSTED"
	default:
		return "AUTONOMOUS"
	}
}

// ReduceTrust folds one event into the trust state. Decay accrued up to
// the event's timestamp is materialized before the adjustment applies.
func ReduceTrust(prev TrustState, ev event.Event) TrustState {
	next := prev
	switch ev.Type {
	case event.TrustUpdate:
		next.Score = prev.At(ev.Timestamp)
		if score, ok := ev.Number("newScore"); ok {
			next.Score = clampTrust(score)
		} else if score, ok := ev.Number("score"); ok {
			next.Score = clampTrust(score)
		} else if delta, ok := ev.Number("delta"); ok {
			next.Score = clampTrust(next.Score + delta)
		}
		next.LastUpdate = ev.Timestamp
	case event.ActionDecision:
		// A block means the defense caught something real; the session
		// earns a small credit.
		if ev.String("decision") == "block" {
			next.Score = clampTrust(prev.At(ev.Timestamp) + 5)
			next.LastUpdate = ev.Timestamp
		}
	case event.HoneyPromptTriggered:
		// Honeypot interaction means the agent is compromised; there is
		// no recovery for this session.
		next.Score = 0
		next.LastUpdate = ev.Timestamp
	}
	return next
}

func clampTrust(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > maxTrust {
		return maxTrust
	}
	return score
}
