package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/guluwater/navadmin/pkg/analytics"
	"github.com/guluwater/navadmin/pkg/config"
	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store/postgres"
)

var (
	schedule = flag.String("schedule", "5 0 * * *", "Cron schedule for the daily reconcile (default: 00:05 UTC)")
	runOnce  = flag.Bool("run-once", false, "Reconcile once and exit (for testing or backfilling)")
	dateFlag = flag.String("date", "", "Date to reconcile (YYYY-MM-DD). Defaults to yesterday. Only used with --run-once")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.Database.Configured() {
		log.Fatal("Reconciler requires a database; set DB_HOST and DB_NAME")
	}

	// Seeding is the API server's job; the reconciler connects bare.
	st, err := postgres.New(postgres.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Database:       cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	aggregator := analytics.NewAggregator(st, nil, nil)

	if *runOnce {
		dateKey := *dateFlag
		if dateKey == "" {
			dateKey = nav.DateKey(time.Now().UTC().AddDate(0, 0, -1))
		} else if _, err := time.Parse("2006-01-02", dateKey); err != nil {
			log.Fatalf("Invalid date format: %v", err)
		}

		log.Infof("Reconciling buckets for %s", dateKey)
		if err := aggregator.ReconcileDay(context.Background(), dateKey); err != nil {
			log.Fatalf("Reconcile failed: %v", err)
		}
		log.Info("Reconcile completed")
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*schedule, func() {
		yesterday := nav.DateKey(time.Now().UTC().AddDate(0, 0, -1))
		log.Infof("Starting daily reconcile for %s", yesterday)

		if err := aggregator.ReconcileDay(context.Background(), yesterday); err != nil {
			log.Errorf("Daily reconcile failed: %v", err)
		} else {
			log.Info("Daily reconcile completed")
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily reconcile: %v", err)
	}

	c.Start()
	log.Infof("Reconciler started, schedule: %s", *schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()
	log.Info("Reconciler stopped")
}
