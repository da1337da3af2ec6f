package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SOSDesk/internal/alertstore"
	"SOSDesk/internal/backend"
	"SOSDesk/internal/config"
	"SOSDesk/internal/database"
	"SOSDesk/internal/handler"
	"SOSDesk/internal/logger"
	"SOSDesk/internal/metrics"
	"SOSDesk/internal/models"
	"SOSDesk/internal/mqtt"
	"SOSDesk/internal/notify"
	"SOSDesk/internal/repository"
	"SOSDesk/internal/server"
	"SOSDesk/internal/service"
	"SOSDesk/internal/session"
	"SOSDesk/internal/socket"
	"SOSDesk/internal/websocket"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		MaxBackups:  cfg.Logging.MaxBackups,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting SOS desk for hospital %s", cfg.Hospital.ID)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	m := metrics.New()

	// 3. Backend
	api := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Paths: backend.Paths{
			History:  cfg.Backend.HistoryPath,
			SaveCase: cfg.Backend.SaveCasePath,
			UserInfo: cfg.Backend.UserInfoPath,
		},
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout,
	}, log)
	api.CheckToken(time.Now())

	// 4. Notices fan out to the log, dashboard clients and optionally MQTT.
	hub := websocket.NewHub(log)
	hubCtx, stopHub := context.WithCancel(ctx)
	go hub.Run(hubCtx)

	notices := notify.NewMulti(
		notify.NewLogNotifier(log),
		hub,
		notify.Func(func(n notify.Notice) { m.Notice(string(n.Level)) }),
	)

	var broker *mqtt.Client
	if cfg.MQTT.Enabled {
		broker, err = mqtt.NewClient(mqtt.ClientConfig{
			MQTT:   &cfg.MQTT,
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to create MQTT client: %v", err)
		}
		if err := broker.Connect(); err != nil {
			log.Error("MQTT broker unavailable, notices will not be mirrored until it reconnects: %v", err)
		}
		defer func() {
			if err := broker.Disconnect(); err != nil {
				log.Error("Failed to disconnect MQTT: %v", err)
			}
		}()
	}

	// 5. Journal
	var (
		journal     service.AlertJournal
		journalRepo *repository.JournalRepository
		db          *database.Database
	)
	if cfg.Journal.Enabled {
		db, err = database.New(cfg.GetJournalDSN(), &cfg.Journal)
		if err != nil {
			log.Fatal("Failed to connect to journal database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			log.Fatal("Journal migration failed: %v", err)
		}
		journalRepo = repository.NewJournalRepository(db.DB)
		journal = journalRepo
		log.Info("Journal database connected")

		if cfg.Journal.Retention > 0 {
			go pruneJournal(ctx, journalRepo, cfg.Journal.Retention, log)
		}
	}

	// 6. Core services
	var location *models.Location
	if cfg.Hospital.Latitude != nil && cfg.Hospital.Longitude != nil {
		location = &models.Location{Latitude: *cfg.Hospital.Latitude, Longitude: *cfg.Hospital.Longitude}
	} else {
		log.Warn("Hospital location not configured; alerts cannot be accepted")
	}

	sock := socket.NewManager(cfg.SocketURL, socket.Options{
		HandshakeTimeout: cfg.Socket.HandshakeTimeout,
		PingPeriod:       cfg.Socket.PingPeriod,
		PongWait:         cfg.Socket.PongWait,
		WriteWait:        cfg.Socket.WriteWait,
		MaxMessageSize:   cfg.Socket.MaxMessageSize,
	}, log)
	store := alertstore.New()

	ingest := service.NewIngestService(api, store, notices, journal, m, service.IngestOptions{
		CacheSize:     cfg.Cache.PatientCacheSize,
		CacheTTL:      cfg.Cache.PatientCacheTTL,
		EnrichTimeout: cfg.Socket.EnrichTimeout,
	}, log)
	history := service.NewHistoryService(api, notices, log)
	resolve := service.NewResolutionService(store, api, sock, history, notices, journal, m, location, log)

	desk := session.New(sock, store, ingest, resolve, history, m, log)

	if broker != nil {
		publisher := mqtt.NewNoticePublisher(broker, func() string {
			id := desk.HospitalID()
			if id == "" {
				id = cfg.Hospital.ID
			}
			return mqtt.TopicFor(cfg.MQTT.NoticeTopic, id)
		}, log)
		go publisher.Run(ctx)
		notices.Add(publisher)
	}

	// 7. Dashboard push
	desk.SubscribeAlerts(func(alerts []models.Alert) {
		hub.Broadcast(websocket.TypeAlerts, alerts)
	})
	desk.SubscribeConnectivity(func(connected bool) {
		hub.Broadcast(websocket.TypeConnectivity, map[string]bool{"connected": connected})
	})
	history.OnUpdate(func(rows []models.HistoryEntry) {
		hub.Broadcast(websocket.TypeHistory, rows)
	})
	hub.SetSnapshot(func() []websocket.Message {
		return []websocket.Message{
			{Type: websocket.TypeConnectivity, Payload: map[string]bool{"connected": desk.Connected()}},
			{Type: websocket.TypeAlerts, Payload: desk.Alerts()},
			{Type: websocket.TypeHistory, Payload: desk.History()},
		}
	})

	// 8. Handlers
	var (
		counter       handler.EventCounter
		healthJournal handler.HealthChecker
		brokerStatus  handler.BrokerStatus
		journalRoutes *handler.JournalHandler
	)
	if journalRepo != nil {
		counter = journalRepo
		healthJournal = db
		journalRoutes = handler.NewJournalHandler(journalRepo, log)
	}
	if broker != nil {
		brokerStatus = broker
	}

	srv := server.New(cfg, m, log)
	srv.RegisterHandlers(
		handler.NewAlertHandler(desk, log),
		handler.NewHistoryHandler(desk, cfg.Hospital.Name, log),
		handler.NewConnectionHandler(desk, cfg.Hospital.ID, location != nil, counter, hub.ClientCount, log),
		journalRoutes,
		handler.NewHealthHandler(desk, api, brokerStatus, healthJournal, log),
		hub,
	)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("Operator API ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	if cfg.Hospital.AutoConnect {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Socket.HandshakeTimeout+cfg.Backend.Timeout)
		if err := desk.Connect(connectCtx, cfg.Hospital.ID); err != nil {
			log.Error("Initial connect failed: %v", err)
		}
		cancel()
	}

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}

	desk.Close()
	stopHub()
	stop()

	log.Info("Shutdown complete")
}

func pruneJournal(ctx context.Context, repo repository.IJournalRepository, retention time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		n, err := repo.DeleteOld(ctx, retention)
		if err != nil {
			log.Error("Journal pruning failed: %v", err)
		} else if n > 0 {
			log.Info("Pruned %d journal entries older than %s", n, retention)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
