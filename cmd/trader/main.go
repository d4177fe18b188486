package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"

	"main/internal/engine"
	"main/internal/obs"
	"main/internal/ops"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	mode := flag.String("mode", "backtest", "Run mode: backtest or live")
	start := flag.String("start", "", "Backtest window start (RFC3339); earlier events feed warm-up history")
	end := flag.String("end", "", "Backtest window end (RFC3339)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disable profiling)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("config path is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   *pyroscopeAddr,
			Tags: map[string]string{
				"mode": *mode,
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() { _ = profiler.Stop() }()
	}

	rcfg, err := resolveRunConfig(*mode, *start, *end)
	if err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	loaded, err := ops.Load(ctx, *configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	metrics := obs.NewMetrics()
	eng, err := engine.New(engine.Config{
		Feed:        loaded.Feed,
		Fund:        loaded.Fund,
		Broker:      loaded.Broker,
		BusCapacity: loaded.BusCapacity,
		Metrics:     metrics,
	})
	if err != nil {
		log.Fatalf("engine setup failed: %v", err)
	}

	result, err := eng.Run(ctx, rcfg)
	if err != nil {
		log.Fatalf("run failed: %+v", err)
	}

	fmt.Print(result.Summary())
	snapshot := metrics.Snapshot()
	log.Printf("metrics: events=%v drops=%d closed=%d orders=%d rejections=%d dispatch_latency=%+v",
		snapshot.EventCounts, snapshot.BusDrops, snapshot.BusClosed,
		snapshot.OrdersAccepted, snapshot.OrdersRejected, snapshot.DispatchLatency)
}

func resolveRunConfig(mode, start, end string) (engine.RunConfig, error) {
	rcfg := engine.RunConfig{}
	switch mode {
	case "backtest":
		rcfg.Mode = engine.ModeBacktest
	case "live":
		rcfg.Mode = engine.ModeLive
	default:
		return rcfg, fmt.Errorf("unknown mode: %s", mode)
	}
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return rcfg, fmt.Errorf("invalid start: %w", err)
		}
		rcfg.Start = t
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return rcfg, fmt.Errorf("invalid end: %w", err)
		}
		rcfg.End = t
	}
	if !rcfg.Start.IsZero() && !rcfg.End.IsZero() && rcfg.End.Before(rcfg.Start) {
		return rcfg, fmt.Errorf("end %s precedes start %s", end, start)
	}
	return rcfg, nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
