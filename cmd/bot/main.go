package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"intakebot/internal/bot"
	"intakebot/internal/catalog"
	"intakebot/internal/config"
	"intakebot/internal/flow"
	"intakebot/internal/metrics"
	"intakebot/internal/notify"
	"intakebot/internal/report"
	"intakebot/internal/search"
	"intakebot/internal/session"
	"intakebot/internal/store"
	"intakebot/internal/telegram"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("catalog failed: %v", err)
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	dataStore := store.NewPostgresStore(db)

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Printf("Using in-memory session storage")
		sessions = session.NewMemoryStore()
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	searchService.ReindexAllFromPG(ctx)

	var archive *report.Archive
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archive, err = report.NewArchive(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("report archive failed: %v", err)
		}
	}

	window, err := notify.ParseWindow(cfg.WindowStart, cfg.WindowEnd, cfg.WindowTZ)
	if err != nil {
		log.Fatalf("notification window invalid: %v", err)
	}

	client, err := telegram.NewClient(cfg.BotToken, cfg.InfoURL)
	if err != nil {
		log.Fatalf("telegram connection failed: %v", err)
	}

	builder := report.NewBuilder(cat)
	notifier := notify.NewGroupNotifier(cfg.GroupChatID, window, builder, client, dataStore)
	scheduler := notify.NewScheduler(dataStore, notifier, window, cfg.SweepInterval)
	go scheduler.Run(ctx)

	surveyFlow := flow.NewSurveyFlow(sessions, dataStore, client, notifier, cat)
	caseFlow := flow.NewCaseFlow(sessions, dataStore, client, notifier, builder, searchService, archive, cat,
		cfg.AdminChatID, cfg.NotifyCandidateOnCancel)
	reports := flow.NewReports(dataStore, builder)

	router := bot.NewRouter(client, surveyFlow, caseFlow, reports, searchService, dataStore, cfg.AdminChatID)
	dispatcher := bot.NewDispatcher(8, 64)
	dispatcher.Run()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	go client.Poll(ctx, dispatcher, router)
	log.Printf("intake bot running, delivery window %s", window)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancel()
	dispatcher.Stop()
}
