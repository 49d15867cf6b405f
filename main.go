// Command wh-mpc boots the water-heater optimization service: it loads the
// process configuration, opens the client/decision repository, fetches a
// solar production forecast, runs the optimizer for each configured client
// and publishes the delivered trajectory over the status server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/devskill-org/wh-mpc/domain"
	"github.com/devskill-org/wh-mpc/forecastfeed"
	"github.com/devskill-org/wh-mpc/repository"
	"github.com/devskill-org/wh-mpc/server"
	"github.com/devskill-org/wh-mpc/service"
	"github.com/devskill-org/wh-mpc/trajectory"
)

func main() {
	var (
		configFile = flag.String("config", "config.json", "Configuration file path")
		clientFile = flag.String("client", "", "Path to a client YAML file to optimize once and exit")
		help       = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	var cfg *server.Config
	if _, statErr := os.Stat(*configFile); statErr != nil {
		cfg = server.DefaultConfig()
	} else {
		var err error
		cfg, err = server.LoadConfig(*configFile)
		if err != nil {
			fmt.Println("Error loading configuration:", err)
			return
		}
	}

	logger := log.New(os.Stdout, "[wh-mpc] ", log.LstdFlags)

	if *clientFile != "" {
		runOnce(cfg, logger, *clientFile)
		return
	}

	runDaemon(cfg, logger)
}

// runOnce loads a single client from a YAML file, solves its trajectory
// against a forecast fetched from the configured feed, and prints the
// result — the "-mpc" style one-shot path from the teacher's CLI.
func runOnce(cfg *server.Config, logger *log.Logger, clientFile string) {
	data, err := os.ReadFile(clientFile)
	if err != nil {
		logger.Printf("failed to read client file: %v", err)
		return
	}
	client, err := domain.ClientFromYAML(data)
	if err != nil {
		logger.Printf("failed to parse client: %v", err)
		return
	}

	start := time.Now().Truncate(time.Duration(cfg.DeltaMinutes) * time.Minute)
	forecast, err := fetchForecast(cfg, start)
	if err != nil {
		logger.Printf("failed to fetch forecast: %v", err)
		return
	}

	svc := service.NewOptimizerService(cfg.HorizonHours, cfg.DeltaMinutes)
	svc.SolverTimeout = cfg.SolverTimeout

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SolverTimeout+10*time.Second)
	defer cancel()

	sys, err := svc.TrajectoryOfClient(ctx, client, start, cfg.InitialTemperature, forecast)
	if err != nil {
		logger.Printf("optimization failed: %v", err)
		return
	}

	printTrajectory(client.ClientID, sys, logger)
}

// runDaemon opens the repository, starts the status server, and re-solves
// every client's trajectory on each forecast poll tick until terminated.
func runDaemon(cfg *server.Config, logger *log.Logger) {
	var clients repository.ClientRepository
	var decisions repository.DecisionRepository

	if cfg.PostgresDSN != "" {
		pg, err := repository.NewPostgresRepository(cfg.PostgresDSN, logger)
		if err != nil {
			logger.Printf("failed to open repository: %v", err)
			return
		}
		defer pg.Close()
		clients, decisions = pg, pg
	}

	status := server.NewStatusServer(cfg.ListenPort, clients, decisions, logger)
	if err := status.Start(); err != nil {
		logger.Printf("status server failed to start: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pollAndOptimize(ctx, cfg, clients, decisions, status, logger)
	}()

	logger.Printf("wh-mpc started, listening on :%d. Press Ctrl+C to stop...", cfg.ListenPort)
	<-sigChan
	logger.Printf("shutdown signal received, stopping...")

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := status.Stop(shutdownCtx); err != nil {
		logger.Printf("status server shutdown error: %v", err)
	}
	logger.Printf("wh-mpc stopped")
}

// pollAndOptimize runs one optimization pass per client at the configured
// forecast poll interval, following the teacher's PeriodicTask shape:
// ticker-driven, context-cancellable, no cooperative cancellation beyond
// the context.
func pollAndOptimize(ctx context.Context, cfg *server.Config, clients repository.ClientRepository, decisions repository.DecisionRepository, status *server.StatusServer, logger *log.Logger) {
	ticker := time.NewTicker(cfg.ForecastPollInterval)
	defer ticker.Stop()

	run := func() {
		if clients == nil {
			return
		}
		all, err := clients.ListAll(ctx)
		if err != nil {
			logger.Printf("failed to list clients: %v", err)
			return
		}
		for _, client := range all {
			optimizeClient(ctx, cfg, client, decisions, status, logger)
		}
	}

	run()
	for {
		select {
		case <-ticker.C:
			run()
		case <-ctx.Done():
			return
		}
	}
}

func optimizeClient(ctx context.Context, cfg *server.Config, client *domain.Client, decisions repository.DecisionRepository, status *server.StatusServer, logger *log.Logger) {
	start := time.Now().Truncate(time.Duration(cfg.DeltaMinutes) * time.Minute)
	forecast, err := fetchForecast(cfg, start)
	if err != nil {
		logger.Printf("client %d: failed to fetch forecast: %v", client.ClientID, err)
		return
	}

	svc := service.NewOptimizerService(cfg.HorizonHours, cfg.DeltaMinutes)
	svc.SolverTimeout = cfg.SolverTimeout

	sys, err := svc.TrajectoryOfClient(ctx, client, start, cfg.InitialTemperature, forecast)
	if err != nil {
		logger.Printf("client %d: optimization failed: %v", client.ClientID, err)
		return
	}

	status.Publish(client.ClientID, sys)

	if decisions != nil {
		for i, x := range sys.Decisions() {
			at := start.Add(time.Duration(i) * time.Duration(cfg.DeltaMinutes) * time.Minute)
			if err := decisions.CreateDecision(ctx, client.ClientID, at, x*client.WaterHeater.PowerWatts); err != nil {
				logger.Printf("client %d: failed to log decision: %v", client.ClientID, err)
			}
		}
	}
}

// fetchForecast resolves the forecast DataFrame for a run: from the
// configured HTTP feed when one is set, or a flat zero-solar fallback
// otherwise (keeps the daemon runnable without a forecast feed configured).
func fetchForecast(cfg *server.Config, start time.Time) (service.ForecastSeries, error) {
	horizon := time.Duration(cfg.HorizonHours * float64(time.Hour))
	if cfg.ForecastFeedURL == "" {
		return flatForecast(start, horizon, time.Duration(cfg.DeltaMinutes)*time.Minute), nil
	}
	feed := forecastfeed.NewClient(cfg.ForecastFeedURL, cfg.UserAgent)
	loc := forecastfeed.Location{Latitude: cfg.Latitude, Longitude: cfg.Longitude}
	return feed.Fetch(loc, start, horizon)
}

func flatForecast(start time.Time, horizon, delta time.Duration) service.ForecastSeries {
	n := int(horizon/delta) + 1
	series := service.ForecastSeries{Times: make([]time.Time, n), Values: make([]float64, n)}
	for i := 0; i < n; i++ {
		series.Times[i] = start.Add(time.Duration(i) * delta)
	}
	return series
}

func printTrajectory(clientID int, sys *trajectory.System, logger *log.Logger) {
	snap := server.SnapshotFrom(clientID, sys)

	fmt.Printf("\n========================================\n")
	fmt.Printf("TRAJECTORY FOR CLIENT %d\n", clientID)
	fmt.Printf("========================================\n")
	fmt.Printf("%-6s %10s %10s %10s %10s\n", "step", "x", "T(°C)", "I(W)", "E(W)")
	for i, x := range snap.Decisions {
		fmt.Printf("%-6d %10.3f %10.2f %10.2f %10.2f\n", i, x, snap.Temperatures[i], snap.Imports[i], snap.Exports[i])
	}
	if snap.Cost != nil {
		fmt.Printf("\ncost: %.4f\n", *snap.Cost)
	}
	if snap.SelfConsumption != nil {
		fmt.Printf("self-consumption: %.3f\n", *snap.SelfConsumption)
	}
	logger.Printf("client %d: trajectory delivered (%d steps)", clientID, len(snap.Decisions))
}

func showHelp() {
	fmt.Println("wh-mpc - optimize a domestic water heater's control trajectory against solar + tariffs")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  wh-mpc [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Run the daemon: poll the forecast feed, optimize every configured client")
	fmt.Println("  wh-mpc --config=config.json")
	fmt.Println()
	fmt.Println("  # Solve a single client file once and print the trajectory")
	fmt.Println("  wh-mpc --client=client.yaml")
}
