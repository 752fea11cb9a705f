// Command junction.report runs the adaptive signal decision engine for a
// single intersection against the built-in traffic generator and serves
// the monitoring API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	ossignal "os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gridlock-systems/junction.report/internal/api"
	"github.com/gridlock-systems/junction.report/internal/config"
	"github.com/gridlock-systems/junction.report/internal/journal"
	"github.com/gridlock-systems/junction.report/internal/signal"
	"github.com/gridlock-systems/junction.report/internal/sim"
	"github.com/gridlock-systems/junction.report/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "journal.db", "Journal database path")
	configPath    = flag.String("config", "", "Tuning config JSON path")
	migrationsDir = flag.String("migrations", "", "Apply migrations from this directory before starting")
	devMode       = flag.Bool("dev", false, "Run with a fixed simulation seed")
	debugMode     = flag.Bool("debug", false, "Mount tsweb/tailsql debug endpoints")
	tickInterval  = flag.Duration("tick", time.Second, "Wall-clock interval between ticks")
	simStep       = flag.Float64("sim-step", 1.0, "Simulated seconds advanced per tick")
	maxTicks      = flag.Int("ticks", 0, "Stop after this many ticks (0 = run until interrupted)")
	seed          = flag.Int64("seed", 0, "Traffic generator seed (0 = time-based, ignored with -dev)")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		log.Printf("junction.report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	log.Printf("starting junction.report %s (%s)", version.Version, version.GitSHA)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	j, err := journal.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}
	defer j.Close()

	if *migrationsDir != "" {
		if err := j.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	simCfg := sim.DefaultConfig()
	switch {
	case *devMode:
		simCfg.Seed = 1
	case *seed != 0:
		simCfg.Seed = *seed
	default:
		simCfg.Seed = time.Now().UnixNano()
	}
	simCfg.ApproachLength = tuning.GetApproachLength()
	junction := sim.New(simCfg)

	controller := signal.NewController(
		signal.ControllerConfigFromTuning(tuning), junction, junction, j)

	mux := http.NewServeMux()
	server := api.NewServer(controller, j)
	handler := server.Routes(mux)
	if *debugMode {
		if err := api.MountDebug(mux, j, "Junction journal"); err != nil {
			log.Fatalf("failed to mount debug endpoints: %v", err)
		}
	}

	var wg sync.WaitGroup
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{Addr: *listen, Handler: handler}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("monitoring API listening on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runTicks(ctx, junction, controller)
		stop()
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	wg.Wait()

	s := controller.Summary()
	log.Printf("run summary: ticks=%d transitions=%d preemptions=%d emergencies=%d yields=%d",
		s.Ticks, s.Transitions, s.Preemptions, s.EmergencyEvents, s.YieldsIssued)
}

// runTicks drives the simulation and the controller until the context is
// cancelled or the tick budget runs out.
func runTicks(ctx context.Context, junction *sim.Junction, controller *signal.Controller) {
	ticker := time.NewTicker(*tickInterval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			junction.Step(*simStep)
			controller.Tick()
			ticks++
			if *maxTicks > 0 && ticks >= *maxTicks {
				return
			}
		}
	}
}
