// Command console runs the monitoring sync core headless: it connects
// to the remote analysis engine (or replays a demo scenario) and logs
// the derived security state as it evolves. Rendering is out of scope;
// dashboards consume the same packages this binary wires together.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aegis-watch/console/internal/bus"
	"github.com/aegis-watch/console/internal/clock"
	"github.com/aegis-watch/console/internal/command"
	"github.com/aegis-watch/console/internal/config"
	"github.com/aegis-watch/console/internal/demo"
	"github.com/aegis-watch/console/internal/event"
	"github.com/aegis-watch/console/internal/query"
	"github.com/aegis-watch/console/internal/session"
	"github.com/aegis-watch/console/internal/timeline"
	"github.com/aegis-watch/console/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	demoMode := flag.Bool("demo", false, "Replay a canned scenario instead of connecting")
	scenario := flag.String("scenario", "prompt-injection", "Scenario name or YAML file (with -demo)")
	listScenarios := flag.Bool("list-scenarios", false, "Print built-in scenario names and exit")
	sessionID := flag.String("session", "", "Attach to an existing session id instead of minting one")
	flag.Parse()

	if *listScenarios {
		for _, name := range demo.BuiltinNames() {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	identity := session.NewIdentity()
	if *sessionID != "" {
		identity = session.IdentityFrom(*sessionID)
	}

	clk := clock.New()
	router := bus.NewRouter()
	store := timeline.NewStore(clk,
		timeline.WithStepInterval(cfg.Playback.StepInterval),
		timeline.WithCapacity(cfg.Playback.Capacity),
	)
	client := transport.NewClient(cfg.Engine.WSBase(), router, clk,
		transport.WithBaseDelay(cfg.Transport.BaseDelay),
		transport.WithMaxAttempts(cfg.Transport.MaxAttempts),
	)
	monitor := session.NewMonitor(identity, router, client, store, clk,
		session.WithQueries(query.NewClient(cfg.Engine.APIBase())),
		session.WithTrustDecay(cfg.Trust.DecayPerMinute),
	)
	emitter := command.NewEmitter(client)

	router.On(bus.Wildcard, func(ev event.Event) {
		log.Printf("event %-22s defcon=%d latency=%dms cpu=%s", ev.Type, ev.Meta.Defcon, ev.Meta.LatencyMs, ev.Meta.CPULoad)
	})

	// Headless: no operator to click through confirmations, so escalate
	// straight to human control.
	router.On(string(event.ConfirmationRequired), func(ev event.Event) {
		log.Printf("confirmation required: %v", ev.Payload["reason"])
		if err := emitter.RequestHumanControl(); err != nil {
			log.Printf("escalation not delivered: %v", err)
		}
	})

	log.Printf("session %s", identity)

	if *demoMode {
		runDemo(cfg, monitor, router, clk, *scenario)
		return
	}

	if err := monitor.Connect(); err != nil {
		log.Printf("initial connect failed: %v (offline until next attempt)", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")
	monitor.Close()
	router.Clear()
}

func runDemo(cfg *config.Config, monitor *session.Monitor, router *bus.Router, clk clock.Clock, name string) {
	monitor.SetDemoMode(true)

	sc, ok := demo.Builtin(name)
	if !ok {
		path := name
		if cfg.Demo.ScenarioDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Demo.ScenarioDir, name)
		}
		var err error
		sc, err = demo.Load(path)
		if err != nil {
			log.Fatalf("Unknown scenario %q: %v", name, err)
		}
	}

	log.Printf("demo: running %q (%s), ~%v", sc.Name, sc.Description, sc.Duration())
	o := demo.NewOrchestrator(router, clk, monitor.Identity().String())
	done, err := o.Start(sc)
	if err != nil {
		log.Fatalf("Scenario failed to start: %v", err)
	}
	<-done

	risk := monitor.Risk()
	log.Printf("demo: finished; risk=%d threats=%v trust=%.1f", risk.Score, risk.ActiveThreats, monitor.Trust())

	// Replay the recorded timeline once, at playback cadence.
	tl := monitor.Timeline()
	off := tl.OnChange(func(snap timeline.Snapshot) {
		log.Printf("replay %s risk=%d trust=%.1f defcon=%d tier=%s",
			snap.Timestamp.Format("15:04:05.000"), snap.RiskScore, snap.Trust, snap.Defcon, snap.AlertTier)
	})
	defer off()
	log.Printf("demo: replaying %d snapshots", tl.Len())
	tl.Play()
	for tl.Playing() {
		time.Sleep(50 * time.Millisecond)
	}
	monitor.Close()
}
