package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/approval"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/classify"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/dispatch"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/enforce"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/history"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/metrics"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/pipeline"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/report"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/transport"
)

func main() {
	log.Println("Starting moderation pipeline service...")

	// --- Channel routing ---
	modChannels := parseModChannels(os.Getenv("MOD_CHANNELS"))
	if len(modChannels) == 0 {
		log.Fatalf("MOD_CHANNELS must be set (community=channel,community=channel,...)")
	}
	monitored := splitList(os.Getenv("MONITORED_CHANNELS"))

	// --- NATS ---
	natsConfig := transport.DefaultNATSConfig()
	if v := os.Getenv("NATS_URL"); v != "" {
		natsConfig.URL = v
	}
	natsClient, err := transport.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// --- Redis ---
	redisAddr := "localhost:6379"
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		redisAddr = v
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cancelPing()
	enforcer := enforce.NewStore(rdb)

	// --- PostgreSQL (optional case history) ---
	var recorder pipeline.CaseRecorder
	var db *sql.DB
	postgresDSN := os.Getenv("POSTGRES_DSN")
	if postgresDSN != "" {
		migrationsDir := "migrations"
		if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
			migrationsDir = v
		}
		m, err := migrate.New("file://"+migrationsDir, postgresDSN)
		if err != nil {
			log.Fatalf("failed to open migrations: %v", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run migrations: %v", err)
		}
		m.Close()

		db, err = sql.Open("postgres", postgresDSN)
		if err != nil {
			log.Fatalf("failed to open PostgreSQL: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("failed to connect to PostgreSQL: %v", err)
		}
		recorder = history.NewStore(db)
	} else {
		log.Printf("POSTGRES_DSN not set; case history disabled")
	}

	// --- Classifiers ---
	perspectiveKey := os.Getenv("PERSPECTIVE_API_KEY")
	if perspectiveKey == "" {
		log.Fatalf("PERSPECTIVE_API_KEY must be set")
	}
	scorer := classify.NewPerspectiveClient(perspectiveKey)

	classifierURL := "http://localhost:8000/classify"
	if v := os.Getenv("CLASSIFIER_URL"); v != "" {
		classifierURL = v
	}
	labeler := classify.NewCategoryClient(classifierURL)

	// --- Pipeline ---
	index := transport.NewMessageIndex()
	p := pipeline.New(pipeline.Config{
		Reports:     report.NewManager(transport.NewIndexResolver(index)),
		Gate:        approval.NewGate(),
		Dispatcher:  dispatch.NewDispatcher(natsClient),
		Scorer:      scorer,
		Labeler:     labeler,
		Index:       index,
		Send:        natsClient,
		Recorder:    recorder,
		Enforcer:    enforcer,
		Monitored:   monitored,
		ModChannels: modChannels,
	})

	if err := natsClient.SubscribeInbound(func(ev transport.InboundEvent) {
		p.Events() <- ev
	}); err != nil {
		log.Fatalf("failed to subscribe to inbound events: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("pipeline stopped: %v", err)
		}
	}()

	wsIngestAddr := os.Getenv("WS_INGEST_ADDR")
	if wsIngestAddr != "" {
		ingest := transport.NewWSIngest(wsIngestAddr, p.Events())
		go func() {
			if err := ingest.ListenAndServe(ctx); err != nil {
				log.Printf("ws ingest stopped: %v", err)
			}
		}()
	}

	metricsAddr := ":9091"
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		metricsAddr = v
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	log.Printf("Moderation pipeline service running")
	log.Printf("  nats_url:       %s", natsConfig.URL)
	log.Printf("  redis_addr:     %s", redisAddr)
	log.Printf("  postgres:       %v", postgresDSN != "")
	log.Printf("  classifier_url: %s", classifierURL)
	log.Printf("  communities:    %d", len(modChannels))
	log.Printf("  monitored:      %d channels", len(monitored))
	log.Printf("  ws_ingest:      %s", orNone(wsIngestAddr))
	log.Printf("  metrics_addr:   %s", metricsAddr)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	cancel()
	natsClient.Close()
	rdb.Close()
	if db != nil {
		db.Close()
	}
}

// parseModChannels parses "community=channel,community=channel" into a map.
func parseModChannels(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range splitList(s) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			log.Printf("skipping malformed MOD_CHANNELS entry %q", pair)
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}

// splitList splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}
