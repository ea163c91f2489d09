package demo

import (
	"log"
	"sync"
	"time"

	"github.com/aegis-watch/console/internal/bus"
	"github.com/aegis-watch/console/internal/clock"
	"github.com/aegis-watch/console/internal/event"
)

// Orchestrator schedules a scenario's synthetic events into the router.
// It needs no live transport; a run always terminates within the
// scenario's bounded duration and always ends with a terminal
// SESSION_TERMINATED event, even when steps fail. Demo reliability wins
// over silent failure.
type Orchestrator struct {
	router    *bus.Router
	clk       clock.Clock
	sessionID string

	mu      sync.Mutex
	running bool
	timers  []clock.Timer
	done    chan struct{}
	failed  int
}

// NewOrchestrator returns an orchestrator emitting events for the given
// session id.
func NewOrchestrator(router *bus.Router, clk clock.Clock, sessionID string) *Orchestrator {
	return &Orchestrator{router: router, clk: clk, sessionID: sessionID}
}

// Running reports whether a scenario is in flight.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start validates sc and schedules all of its steps plus the terminal
// event. The returned channel closes after the terminal event has been
// emitted. Only one scenario runs at a time.
func (o *Orchestrator) Start(sc Scenario) (<-chan struct{}, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil, &ScenarioError{Scenario: sc.Name, Reason: "another scenario is running"}
	}
	o.running = true
	o.failed = 0
	o.done = make(chan struct{})
	o.timers = o.timers[:0]

	var offset time.Duration
	for _, step := range sc.Steps {
		offset += capDelay(step.Delay)
		step := step
		o.timers = append(o.timers, o.clk.AfterFunc(offset, func() {
			o.emitStep(step)
		}))
	}
	// Terminal completion trails the last step so its snapshot is
	// ordered after every step's.
	o.timers = append(o.timers, o.clk.AfterFunc(offset+50*time.Millisecond, func() {
		o.finish(sc)
	}))
	return o.done, nil
}

// Stop aborts the current run: pending steps are cancelled and the
// terminal event is emitted immediately.
func (o *Orchestrator) Stop(sc Scenario) {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	for _, t := range o.timers {
		t.Stop()
	}
	o.timers = o.timers[:0]
	o.mu.Unlock()

	o.finish(sc)
}

func (o *Orchestrator) emitStep(step Step) {
	defer func() {
		if r := recover(); r != nil {
			o.mu.Lock()
			o.failed++
			o.mu.Unlock()
			log.Printf("demo: step %s failed: %v", step.Type, r)
		}
	}()

	defcon := step.Defcon
	if defcon < 1 {
		defcon = 1
	}
	o.router.Publish(event.Event{
		Type:      step.Type,
		SessionID: o.sessionID,
		Timestamp: o.clk.Now(),
		Payload:   step.Payload,
		Meta: event.Meta{
			LatencyMs: sampleLatency(),
			Defcon:    defcon,
			CPULoad:   sampleCPULoad(),
		},
	})
}

func (o *Orchestrator) finish(sc Scenario) {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	failed := o.failed
	done := o.done
	o.mu.Unlock()

	result := "complete"
	if failed > 0 {
		result = "error"
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("demo: terminal emission failed: %v", r)
			}
		}()
		o.router.Publish(event.Event{
			Type:      event.SessionTerminated,
			SessionID: o.sessionID,
			Timestamp: o.clk.Now(),
			Payload: map[string]any{
				"demo":        true,
				"scenario":    sc.Name,
				"result":      result,
				"failedSteps": failed,
			},
			Meta: event.Meta{
				LatencyMs: sampleLatency(),
				Defcon:    1,
				CPULoad:   sampleCPULoad(),
			},
		})
	}()

	close(done)
}
