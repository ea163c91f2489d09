// Package event defines the wire schema shared by the live transport and
// the demo orchestrator. Types mirror the remote engine's protocol; an
// Event is immutable once parsed.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type classifies an inbound event. The set is closed: anything else on
// the wire is malformed.
type Type string

const (
	Connected            Type = "CONNECTED"
	PageLoaded           Type = "PAGE_LOADED"
	ActionAttempted      Type = "ACTION_ATTEMPTED"
	ActionDecision       Type = "ACTION_DECISION"
	ThreatDetected       Type = "THREAT_DETECTED"
	HoneyPromptTriggered Type = "HONEY_PROMPT_TRIGGERED"
	RiskUpdate           Type = "RISK_UPDATE"
	TrustUpdate          Type = "TRUST_UPDATE"
	DefconUpdate         Type = "DEFCON_UPDATE"
	SessionTerminated    Type = "SESSION_TERMINATED"
	ConfirmationRequired Type = "CONFIRMATION_REQUIRED"
	Screenshot           Type = "SCREENSHOT"
	SystemHeartbeat      Type = "SYSTEM_HEARTBEAT"
	LowVisibilityZone    Type = "LOW_VISIBILITY_ZONE"
	SystemReboot         Type = "SYSTEM_REBOOT"
	HumanControlGranted  Type = "HUMAN_CONTROL_GRANTED"
)

var knownTypes = map[Type]bool{
	Connected:            true,
	PageLoaded:           true,
	ActionAttempted:      true,
	ActionDecision:       true,
	ThreatDetected:       true,
	HoneyPromptTriggered: true,
	RiskUpdate:           true,
	TrustUpdate:          true,
	DefconUpdate:         true,
	SessionTerminated:    true,
	ConfirmationRequired: true,
	Screenshot:           true,
	SystemHeartbeat:      true,
	LowVisibilityZone:    true,
	SystemReboot:         true,
	HumanControlGranted:  true,
}

// Known reports whether t is part of the wire protocol.
func (t Type) Known() bool { return knownTypes[t] }

// Meta is the standardized metadata block attached to every event.
type Meta struct {
	LatencyMs int    `json:"latency_ms"`
	Defcon    int    `json:"defcon"` // 1 = safe .. 5 = critical
	CPULoad   string `json:"cpu_load"`
}

// Event is one message from the remote engine (or a synthetic demo step;
// the two are indistinguishable by shape).
type Event struct {
	Type      Type           `json:"type"`
	SessionID string         `json:"sessionId"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
	Meta      Meta           `json:"meta"`
}

// MalformedEventError describes an inbound frame that failed to parse.
// The frame is dropped; the stream continues.
type MalformedEventError struct {
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed event: %s: %v", e.Reason, e.Err)
	}
	return "malformed event: " + e.Reason
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// Parse decodes and validates a wire frame.
func Parse(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, &MalformedEventError{Reason: "invalid json", Err: err}
	}
	if !ev.Type.Known() {
		return Event{}, &MalformedEventError{Reason: fmt.Sprintf("unknown type %q", ev.Type)}
	}
	if ev.SessionID == "" {
		return Event{}, &MalformedEventError{Reason: "missing sessionId"}
	}
	if ev.Timestamp.IsZero() {
		return Event{}, &MalformedEventError{Reason: "missing timestamp"}
	}
	return ev, nil
}

// String returns the payload value under key if it is a string.
func (e Event) String(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}

// Number returns the payload value under key as a float64. JSON decodes
// numbers as float64, but synthetic (demo) payloads built in Go may
// carry plain ints.
func (e Event) Number(key string) (float64, bool) {
	switch n := e.Payload[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
