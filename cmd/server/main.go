package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scout-sync-server/internal/config"
	"scout-sync-server/internal/handler"
	"scout-sync-server/internal/middleware"
	"scout-sync-server/internal/repository"
	"scout-sync-server/internal/service"
	"scout-sync-server/internal/signaling"
	"scout-sync-server/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		log.Fatalf("Failed to connect to CouchDB: %v", err)
	}

	exists, err := client.DBExists(context.Background(), cfg.Database.Name)
	if err != nil {
		log.Fatalf("Failed to check database existence: %v", err)
	}

	if !exists {
		if err := client.CreateDB(context.Background(), cfg.Database.Name); err != nil {
			log.Fatalf("Failed to create database: %v", err)
		}
		log.Printf("Created database: %s", cfg.Database.Name)
	}

	entryRepo := repository.NewEntryRepository(client, cfg.Database.Name)
	deviceRepo := repository.NewDeviceRepository(client, cfg.Database.Name)

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnections,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	go wsManager.Run()

	deviceService, err := service.NewDeviceService(deviceRepo, cfg.Sync.Passphrase, cfg.JWT.Secret, cfg.JWT.Expiration)
	if err != nil {
		log.Fatalf("Failed to initialize device service: %v", err)
	}

	classifier := service.NewClassifierService(entryRepo, cfg.Sync.CorrectionSkewTolerance)
	sessions := service.NewSessionManager()
	operations := service.NewOperationService(cfg.Sync.OperationHistorySize)
	uploadService := service.NewUploadService(entryRepo, classifier, sessions, operations, wsManager)
	entryService := service.NewEntryService(entryRepo)

	relay := signaling.NewRelay(cfg.Relay.RoomTTL, cfg.Relay.SweepInterval)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	relay.StartSweep(sweepCtx)

	signalHandler := handler.NewSignalHandler(relay)
	syncHandler := handler.NewSyncHandler(uploadService, deviceService, sessions, operations)
	entryHandler := handler.NewEntryHandler(entryService)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.JWT.Secret)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORS))

	// The signaling relay keeps the browser clients' flat wire format
	// and stays outside the authenticated API: it only ever carries
	// opaque rendezvous blobs.
	r.HandleFunc("/signal", signalHandler.Post).Methods("POST", "OPTIONS")
	r.HandleFunc("/signal", signalHandler.Poll).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/devices/register", deviceHandler.Register).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	protected.HandleFunc("/devices", deviceHandler.List).Methods("GET", "OPTIONS")

	protected.HandleFunc("/entries", entryHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/entries/export", entryHandler.Export).Methods("GET", "OPTIONS")

	protected.HandleFunc("/sync/upload", syncHandler.Upload).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sync/operations", syncHandler.ListOperations).Methods("GET", "OPTIONS")
	protected.HandleFunc("/sync/sessions/{id}", syncHandler.GetSession).Methods("GET", "OPTIONS")
	protected.HandleFunc("/sync/sessions/{id}/resolve", syncHandler.Resolve).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sync/sessions/{id}/resolve-batch", syncHandler.ResolveBatch).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sync/sessions/{id}/undo", syncHandler.Undo).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sync/sessions/{id}/review-batch", syncHandler.ReviewBatch).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler(relay)).Methods("GET")
	r.HandleFunc("/", rootHandler(cfg.SignalPoll)).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting Scout Sync Server on %s (env: %s)", addr, cfg.Server.Env)
		log.Printf("Connected to CouchDB at %s:%s", cfg.Database.Host, cfg.Database.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func healthHandler(relay *signaling.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"scout-sync-server","activeRooms":%d}`, relay.RoomCount())
	}
}

// rootHandler advertises the API surface and the poll cadence
// signaling clients should adopt.
func rootHandler(poll config.SignalPollConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w,
			`{"message":"Scout Sync Server API","version":"2.0","signalPoll":{"baseIntervalMs":%d,"maxIntervalMs":%d},"endpoints":{"/api/v1/devices/register":"POST","/api/v1/sync/upload":"POST (protected)","/signal":"POST/GET"}}`,
			poll.BaseInterval.Milliseconds(),
			poll.MaxInterval.Milliseconds(),
		)
	}
}
