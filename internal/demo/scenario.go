// Package demo replays canned attack scenarios through the same router
// the live transport feeds, for offline demonstration. Synthetic events
// are indistinguishable by shape from live ones.
package demo

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aegis-watch/console/internal/event"
)

// MaxStepDelay caps any single step's delay so a scenario's total
// duration stays bounded.
const MaxStepDelay = 10 * time.Second

// Step is one synthetic event with a delay relative to the previous
// step.
type Step struct {
	Delay   time.Duration  `yaml:"delay"`
	Type    event.Type     `yaml:"type"`
	Payload map[string]any `yaml:"payload"`
	Defcon  int            `yaml:"defcon"`
}

// UnmarshalYAML accepts delays in time.ParseDuration form ("250ms");
// yaml.v3 alone would reject them.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Delay   string         `yaml:"delay"`
		Type    event.Type     `yaml:"type"`
		Payload map[string]any `yaml:"payload"`
		Defcon  int            `yaml:"defcon"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Delay != "" {
		d, err := time.ParseDuration(raw.Delay)
		if err != nil {
			return fmt.Errorf("step delay %q: %w", raw.Delay, err)
		}
		s.Delay = d
	}
	s.Type = raw.Type
	s.Payload = raw.Payload
	s.Defcon = raw.Defcon
	return nil
}

// Scenario is a named, ordered list of steps.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Severity    int    `yaml:"severity"`
	Steps       []Step `yaml:"steps"`
}

// Duration is the scenario's total scheduled length, caps applied.
func (s Scenario) Duration() time.Duration {
	var total time.Duration
	for _, step := range s.Steps {
		total += capDelay(step.Delay)
	}
	return total
}

func capDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxStepDelay {
		return MaxStepDelay
	}
	return d
}

// ScenarioError reports a scenario that cannot run as written. The
// orchestrator still emits a terminal event when it occurs mid-run.
type ScenarioError struct {
	Scenario string
	Reason   string
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("scenario %q: %s", e.Scenario, e.Reason)
}

// Validate checks the scenario shape before scheduling.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return &ScenarioError{Scenario: "(unnamed)", Reason: "missing name"}
	}
	if len(s.Steps) == 0 {
		return &ScenarioError{Scenario: s.Name, Reason: "no steps"}
	}
	for i, step := range s.Steps {
		if !step.Type.Known() {
			return &ScenarioError{Scenario: s.Name, Reason: fmt.Sprintf("step %d: unknown event type %q", i, step.Type)}
		}
	}
	return nil
}

// Load reads a scenario from a YAML file.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Builtin returns the named canned scenario.
func Builtin(name string) (Scenario, bool) {
	for _, sc := range builtins {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// BuiltinNames lists the canned scenarios in a stable order.
func BuiltinNames() []string {
	names := make([]string, len(builtins))
	for i, sc := range builtins {
		names[i] = sc.Name
	}
	return names
}

var builtins = []Scenario{
	{
		Name:        "prompt-injection",
		Description: "Adversarial instructions embedded in page content",
		Severity:    4,
		Steps: []Step{
			{Delay: 400 * time.Millisecond, Type: event.PageLoaded, Defcon: 1,
				Payload: map[string]any{"url": "https://demo-shop.example/product"}},
			{Delay: 600 * time.Millisecond, Type: event.ActionAttempted, Defcon: 1,
				Payload: map[string]any{"action": "read_page", "target": "#reviews"}},
			{Delay: 500 * time.Millisecond, Type: event.ThreatDetected, Defcon: 4,
				Payload: map[string]any{"type": "PROMPT_INJECTION", "pattern": "SYSTEM OVERRIDE"}},
			{Delay: 300 * time.Millisecond, Type: event.RiskUpdate, Defcon: 4,
				Payload: map[string]any{"riskScore": 85, "source": "prompt_injection"}},
			{Delay: 200 * time.Millisecond, Type: event.DefconUpdate, Defcon: 4,
				Payload: map[string]any{"defcon": 4}},
			{Delay: 400 * time.Millisecond, Type: event.ActionDecision, Defcon: 4,
				Payload: map[string]any{"decision": "block", "reason": "Prompt injection detected"}},
		},
	},
	{
		Name:        "hidden-content",
		Description: "Malicious instructions hidden via CSS",
		Severity:    3,
		Steps: []Step{
			{Delay: 400 * time.Millisecond, Type: event.PageLoaded, Defcon: 1,
				Payload: map[string]any{"url": "https://demo-bank.example/account"}},
			{Delay: 700 * time.Millisecond, Type: event.LowVisibilityZone, Defcon: 2,
				Payload: map[string]any{"findings": 3}},
			{Delay: 500 * time.Millisecond, Type: event.ThreatDetected, Defcon: 3,
				Payload: map[string]any{"type": "HIDDEN_CONTENT", "pattern": "display:none"}},
			{Delay: 300 * time.Millisecond, Type: event.RiskUpdate, Defcon: 3,
				Payload: map[string]any{"riskScore": 65, "source": "hidden_content"}},
			{Delay: 200 * time.Millisecond, Type: event.DefconUpdate, Defcon: 3,
				Payload: map[string]any{"defcon": 3}},
		},
	},
	{
		Name:        "clickjacking",
		Description: "Invisible overlay capturing user clicks",
		Severity:    4,
		Steps: []Step{
			{Delay: 400 * time.Millisecond, Type: event.PageLoaded, Defcon: 1,
				Payload: map[string]any{"url": "https://demo-bank.example/transfer"}},
			{Delay: 600 * time.Millisecond, Type: event.ThreatDetected, Defcon: 4,
				Payload: map[string]any{"type": "DECEPTIVE_UI", "pattern": "z-index:99999"}},
			{Delay: 300 * time.Millisecond, Type: event.RiskUpdate, Defcon: 4,
				Payload: map[string]any{"riskScore": 75, "source": "deceptive_ui"}},
			{Delay: 200 * time.Millisecond, Type: event.DefconUpdate, Defcon: 4,
				Payload: map[string]any{"defcon": 4}},
			{Delay: 400 * time.Millisecond, Type: event.ActionDecision, Defcon: 4,
				Payload: map[string]any{"decision": "block", "reason": "Clickjacking overlay detected"}},
		},
	},
	{
		Name:        "fake-login",
		Description: "Fake login overlay to steal credentials",
		Severity:    5,
		Steps: []Step{
			{Delay: 400 * time.Millisecond, Type: event.PageLoaded, Defcon: 1,
				Payload: map[string]any{"url": "https://demo-bank.example/dashboard"}},
			{Delay: 600 * time.Millisecond, Type: event.ThreatDetected, Defcon: 4,
				Payload: map[string]any{"type": "DECEPTIVE_UI", "pattern": "fake-form"}},
			{Delay: 300 * time.Millisecond, Type: event.ThreatDetected, Defcon: 5,
				Payload: map[string]any{"type": "HIDDEN_CONTENT", "pattern": "evil-capture.com"}},
			{Delay: 300 * time.Millisecond, Type: event.RiskUpdate, Defcon: 5,
				Payload: map[string]any{"riskScore": 90, "source": "deceptive_ui"}},
			{Delay: 200 * time.Millisecond, Type: event.DefconUpdate, Defcon: 5,
				Payload: map[string]any{"defcon": 5}},
			{Delay: 400 * time.Millisecond, Type: event.ActionDecision, Defcon: 5,
				Payload: map[string]any{"decision": "block", "reason": "Phishing form detected"}},
		},
	},
	{
		Name:        "honeypot-trigger",
		Description: "Agent clicks a hidden adversarial trap",
		Severity:    5,
		Steps: []Step{
			{Delay: 400 * time.Millisecond, Type: event.PageLoaded, Defcon: 1,
				Payload: map[string]any{"url": "https://demo-site.example"}},
			{Delay: 700 * time.Millisecond, Type: event.ActionAttempted, Defcon: 1,
				Payload: map[string]any{"action": "click", "target": "ag-honeypot-trap"}},
			{Delay: 300 * time.Millisecond, Type: event.HoneyPromptTriggered, Defcon: 5,
				Payload: map[string]any{"trap": "ag-honeypot-trap"}},
			{Delay: 200 * time.Millisecond, Type: event.RiskUpdate, Defcon: 5,
				Payload: map[string]any{"riskScore": 100, "source": "honeypot"}},
			{Delay: 200 * time.Millisecond, Type: event.DefconUpdate, Defcon: 5,
				Payload: map[string]any{"defcon": 5}},
		},
	},
	{
		Name:        "semantic-mismatch",
		Description: "Agent action does not match user intent",
		Severity:    4,
		Steps: []Step{
			{Delay: 400 * time.Millisecond, Type: event.PageLoaded, Defcon: 1,
				Payload: map[string]any{"url": "https://demo-shop.example/checkout"}},
			{Delay: 600 * time.Millisecond, Type: event.ActionAttempted, Defcon: 1,
				Payload: map[string]any{"intent": "Search for product reviews", "action": "Click 'Transfer $500' button"}},
			{Delay: 400 * time.Millisecond, Type: event.ThreatDetected, Defcon: 4,
				Payload: map[string]any{"type": "SEMANTIC_MISMATCH"}},
			{Delay: 300 * time.Millisecond, Type: event.RiskUpdate, Defcon: 4,
				Payload: map[string]any{"riskScore": 80, "source": "semantic_firewall"}},
			{Delay: 200 * time.Millisecond, Type: event.DefconUpdate, Defcon: 4,
				Payload: map[string]any{"defcon": 4}},
			{Delay: 400 * time.Millisecond, Type: event.ConfirmationRequired, Defcon: 4,
				Payload: map[string]any{"reason": "Intent-action mismatch"}},
		},
	},
}
