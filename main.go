package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Resanso/aquaseer-api/internal/accounts"
	"github.com/Resanso/aquaseer-api/internal/auth"
	influx "github.com/Resanso/aquaseer-api/internal/influxdb"
	"github.com/Resanso/aquaseer-api/internal/llm"
	"github.com/Resanso/aquaseer-api/internal/metrics"
	"github.com/Resanso/aquaseer-api/internal/mysql"
	"github.com/Resanso/aquaseer-api/internal/processing"
	"github.com/Resanso/aquaseer-api/internal/server"
	"github.com/Resanso/aquaseer-api/internal/simulation"
	"github.com/Resanso/aquaseer-api/internal/stream"
	"github.com/Resanso/aquaseer-api/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env file not loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promMetrics := metrics.New()
	hub := stream.NewHub()
	deps := server.Dependencies{
		Hub:         hub,
		Metrics:     promMetrics,
		CORSOrigins: corsOriginsFromEnv(),
	}

	var sinks []telemetry.Sink

	influxCfg, err := influx.FromEnv()
	switch {
	case errors.Is(err, influx.ErrNotConfigured):
		log.Printf("influx not configured; recorded readings disabled")
	case err != nil:
		log.Fatalf("influx config error: %v", err)
	default:
		client, err := influx.New(ctx, influxCfg)
		if err != nil {
			log.Fatalf("influx connection error: %v", err)
		}
		defer client.Close()
		deps.Influx = client
		sinks = append(sinks, telemetry.Guard(
			telemetry.NewInfluxSink(client.WriteAPI(), influx.MeasurementName),
			telemetry.DefaultBreakerSettings, promMetrics))
	}

	if mqttCfg, err := telemetry.MQTTFromEnv(); err == nil {
		sink, err := telemetry.ConnectMQTT(ctx, mqttCfg)
		if err != nil {
			log.Printf("mqtt sink disabled: %v", err)
		} else {
			sinks = append(sinks, telemetry.Guard(sink, telemetry.DefaultBreakerSettings, promMetrics))
		}
	}

	if kafkaCfg, err := telemetry.KafkaFromEnv(); err == nil {
		writer := telemetry.NewKafkaWriter(kafkaCfg.Brokers, kafkaCfg.Topic)
		sinks = append(sinks, telemetry.Guard(telemetry.NewKafkaSink(writer), telemetry.DefaultBreakerSettings, promMetrics))
		log.Printf("kafka sink enabled: topic=%s brokers=%s", kafkaCfg.Topic, strings.Join(kafkaCfg.Brokers, ","))
	}

	fanout := telemetry.NewFanout(promMetrics, sinks)
	fanout.Start(ctx)
	defer fanout.Close()

	store := userStore(ctx)
	if repo, ok := store.(*accounts.Repository); ok {
		deps.Accounts = repo
	}
	gateway := auth.NewService(store, auth.WithSessionTTL(auth.SessionTTLFromEnv()))
	deps.Auth = gateway

	if llmCfg, err := llm.FromEnv(); err != nil {
		log.Printf("pond assistant disabled: %v", err)
	} else {
		client, err := llm.New(ctx, llmCfg)
		if err != nil {
			log.Printf("pond assistant disabled: %v", err)
		} else {
			defer client.Close()
			deps.LLM = client
		}
	}

	opts := []simulation.Option{
		simulation.WithInterval(simulation.IntervalFromEnv()),
		simulation.WithListener(promMetrics),
		simulation.WithListener(hub),
	}
	if fanout.Len() > 0 {
		opts = append(opts, simulation.WithListener(fanout))
	}
	simulator := simulation.New(simulation.DefaultSensors(time.Now()), opts...)
	promMetrics.SetSensors(simulator.Len())
	deps.Simulator = simulator

	if simulation.RequireSessionFromEnv() {
		simulation.NewCoordinator(simulator, gateway).Start(ctx)
	}
	simulator.Start(ctx)

	alerts := processing.NewAlertService(simulator, processing.WithInterval(processing.IntervalFromEnv()))
	alerts.Start(ctx)
	deps.Alerts = alerts

	router := server.NewRouter(deps)
	srv := &http.Server{
		Addr:              ":" + portFromEnv(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting AquaSeer API on %s (sinks=%d, interval=%s)", srv.Addr, fanout.Len(), simulator.Interval())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Printf("http shutdown failed: %v", err)
	}
}

// userStore prefers MySQL and falls back to an in-memory store.
func userStore(ctx context.Context) auth.UserStore {
	cfg, err := mysql.FromEnv()
	if errors.Is(err, mysql.ErrNotConfigured) {
		log.Printf("mysql not configured; accounts kept in memory")
		return accounts.NewMemoryStore()
	}
	if err != nil {
		log.Fatalf("mysql config error: %v", err)
	}
	db, err := mysql.New(ctx, cfg)
	if err != nil {
		log.Fatalf("mysql connection error: %v", err)
	}
	repo := accounts.NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("mysql schema error: %v", err)
	}
	return repo
}

func portFromEnv() string {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return port
	}
	return "8080"
}

func corsOriginsFromEnv() []string {
	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
