package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/havenlist/tracker-backend/internal/config"
	"github.com/havenlist/tracker-backend/internal/db"
	"github.com/havenlist/tracker-backend/internal/external"
	"github.com/havenlist/tracker-backend/internal/httputil"
	"github.com/havenlist/tracker-backend/internal/notifications"
	"github.com/havenlist/tracker-backend/internal/repository"
	"github.com/havenlist/tracker-backend/internal/scheduler"
	"github.com/havenlist/tracker-backend/internal/tracker"
)

const banner = `
╔══════════════════════════════════════╗
║   Havenlist Price Tracker v0.1       ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	once := flag.Bool("once", false, "run one tracking pass immediately and exit")
	flag.Parse()

	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	fmt.Printf("\n[DB] Connecting to %s ...\n", cfg.MongoDatabase)
	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
		fmt.Println("[DB] Connection closed")
	}()

	if err := db.TestConnection(client); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test ping failed: %v\n", err)
		os.Exit(1)
	}

	coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
	repo := repository.NewPropertyRepo(coll)

	if n, err := repo.CountUnpriced(ctx); err == nil {
		fmt.Printf("[DB] %d unpriced properties pending\n", n)
	}

	lookup := external.NewLookupClient(cfg.LookupBaseURL, cfg.LookupTimeout, httputil.RetryConfig{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    httputil.DefaultRetry.MaxDelay,
	})

	sender := notifications.NewSender(cfg.WebhookURL, cfg.ReporterName)

	trk := tracker.New(repo, lookup, tracker.Options{
		BatchSize:  cfg.BatchSize,
		ChunkSize:  cfg.ChunkSize,
		ChunkDelay: cfg.ChunkDelay,
		BatchDelay: cfg.BatchDelay,
	})

	if *once {
		res, err := trk.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[TRACKER] Run failed: %v\n", err)
			os.Exit(1)
		}
		sender.SendRunReport(res)
		return
	}

	sched := scheduler.NewDailyScheduler(trk, scheduler.DailyConfig{
		Hour:       cfg.RunHourUTC,
		OnComplete: sender.SendRunReport,
	})
	sched.Start()

	fmt.Printf("\nPrice tracking scheduled daily at %02d:00 UTC\n", cfg.RunHourUTC)

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	sched.Stop()
	fmt.Println("Shutdown complete")
}
