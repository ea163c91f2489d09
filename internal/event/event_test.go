package event

import (
	"errors"
	"strings"
	"testing"
)

func TestParseValid(t *testing.T) {
	data := []byte(`{
		"type": "RISK_UPDATE",
		"sessionId": "sess-1",
		"timestamp": "2025-06-01T12:00:00Z",
		"payload": {"riskScore": 88, "source": "semantic_firewall"},
		"meta": {"latency_ms": 14, "defcon": 3, "cpu_load": "22%"}
	}`)

	ev, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if ev.Type != RiskUpdate {
		t.Errorf("Type = %q, want %q", ev.Type, RiskUpdate)
	}
	if ev.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", ev.SessionID)
	}
	if n, ok := ev.Number("riskScore"); !ok || n != 88 {
		t.Errorf("Number(riskScore) = %v, %v; want 88, true", n, ok)
	}
	if ev.String("source") != "semantic_firewall" {
		t.Errorf("String(source) = %q", ev.String("source"))
	}
	if ev.Meta.Defcon != 3 {
		t.Errorf("Meta.Defcon = %d, want 3", ev.Meta.Defcon)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		reason string
	}{
		{"bad json", `{"type":`, "invalid json"},
		{"unknown type", `{"type":"BOGUS","sessionId":"s","timestamp":"2025-06-01T12:00:00Z"}`, "unknown type"},
		{"missing session", `{"type":"RISK_UPDATE","timestamp":"2025-06-01T12:00:00Z"}`, "missing sessionId"},
		{"missing timestamp", `{"type":"RISK_UPDATE","sessionId":"s"}`, "missing timestamp"},
	}

	for _, tt := range tests {
		_, err := Parse([]byte(tt.data))
		if err == nil {
			t.Errorf("%s: Parse succeeded, want error", tt.name)
			continue
		}
		var me *MalformedEventError
		if !errors.As(err, &me) {
			t.Errorf("%s: error type %T, want *MalformedEventError", tt.name, err)
			continue
		}
		if !strings.Contains(me.Error(), tt.reason) {
			t.Errorf("%s: error %q does not mention %q", tt.name, me.Error(), tt.reason)
		}
	}
}

func TestTypeKnown(t *testing.T) {
	for _, typ := range []Type{Connected, ThreatDetected, HumanControlGranted, SystemHeartbeat} {
		if !typ.Known() {
			t.Errorf("%q.Known() = false", typ)
		}
	}
	if Type("DEMO_EVENT").Known() {
		t.Error(`Type("DEMO_EVENT").Known() = true, want false`)
	}
}
