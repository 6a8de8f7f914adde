package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/config"
	"github.com/Dias221467/Sales_CRM/internal/database"
	"github.com/Dias221467/Sales_CRM/internal/handlers"
	"github.com/Dias221467/Sales_CRM/internal/push"
	"github.com/Dias221467/Sales_CRM/internal/repository"
	"github.com/Dias221467/Sales_CRM/internal/scheduler"
	"github.com/Dias221467/Sales_CRM/internal/services"
	"github.com/Dias221467/Sales_CRM/pkg/logger"
	"github.com/Dias221467/Sales_CRM/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatalf("Configuration error: %v", err)
	}

	db, err := database.ConnectDB(cfg)
	if err != nil {
		logger.Log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	reminderRepo := repository.NewReminderRepository(db)
	clientRepo := repository.NewClientRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	userRepo := repository.NewUserRepository(db)

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	for _, ensure := range []func(context.Context) error{
		reminderRepo.EnsureIndexes,
		clientRepo.EnsureIndexes,
		interactionRepo.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			logger.Log.Fatalf("Index creation error: %v", err)
		}
	}
	cancelIndexes()

	// --- Push gateway ---
	gateway, err := push.NewFCMGateway(context.Background(), cfg.FCMCredentialsFile, cfg.FCMDispatchRate)
	if err != nil {
		logger.Log.Fatalf("Push gateway error: %v", err)
	}

	policy, err := services.ParseRetryPolicy(cfg.ReminderRetryPolicy)
	if err != nil {
		logger.Log.Fatalf("Configuration error: %v", err)
	}

	// --- Services ---
	reminderService := services.NewReminderService(reminderRepo)
	clientService := services.NewClientService(clientRepo, interactionRepo, reminderService)
	deviceService := services.NewDeviceService(userRepo)
	deliveryService := services.NewDeliveryService(
		reminderRepo,
		clientService,
		deviceService,
		deviceService,
		gateway,
		policy,
		cfg.ReminderBatchSize,
	)

	reminderScheduler := scheduler.New(deliveryService, cfg.ReminderInterval, cfg.ReminderRunTimeout)
	reminderScheduler.Start()

	// --- Handlers ---
	clientHandler := handlers.NewClientHandler(clientService, reminderService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)
	reminderHandler := handlers.NewReminderHandler(reminderService, reminderScheduler)

	router := mux.NewRouter()

	clientRoutes := router.PathPrefix("/clients").Subrouter()
	clientRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	clientRoutes.HandleFunc("", clientHandler.CreateClientHandler).Methods("POST")
	clientRoutes.HandleFunc("", clientHandler.ListClientsHandler).Methods("GET")
	clientRoutes.HandleFunc("/{id}", clientHandler.GetClientHandler).Methods("GET")
	clientRoutes.HandleFunc("/{id}", clientHandler.UpdateClientHandler).Methods("PUT")
	clientRoutes.HandleFunc("/{id}", clientHandler.DeleteClientHandler).Methods("DELETE")
	clientRoutes.HandleFunc("/{id}/interactions", clientHandler.LogInteractionHandler).Methods("POST")
	clientRoutes.HandleFunc("/{id}/interactions", clientHandler.GetInteractionsHandler).Methods("GET")
	clientRoutes.HandleFunc("/{id}/reminders", clientHandler.GetClientRemindersHandler).Methods("GET")

	deviceRoutes := router.PathPrefix("/devices").Subrouter()
	deviceRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	deviceRoutes.HandleFunc("", deviceHandler.RegisterDeviceHandler).Methods("POST")
	deviceRoutes.HandleFunc("", deviceHandler.ListDevicesHandler).Methods("GET")
	deviceRoutes.HandleFunc("/{token}", deviceHandler.UnregisterDeviceHandler).Methods("DELETE")

	reminderRoutes := router.PathPrefix("/reminders").Subrouter()
	reminderRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	reminderRoutes.HandleFunc("/status", reminderHandler.StatusHandler).Methods("GET")

	// Admin routes
	adminRoutes := router.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	adminRoutes.Use(middleware.RequireRole("admin"))
	adminRoutes.HandleFunc("/reminders/run", reminderHandler.RunNowHandler).Methods("POST")

	router.Use(middleware.LoggingMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("HTTP server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Log.Info("Shutting down")

	// Let an in-flight reminder run finish before the store goes away.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ReminderRunTimeout+10*time.Second)
	defer cancel()

	select {
	case <-reminderScheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Log.Warn("Timed out waiting for the reminder run to finish")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("HTTP server shutdown failed")
	}
	if err := database.Disconnect(shutdownCtx, db); err != nil {
		logger.Log.WithError(err).Error("MongoDB disconnect failed")
	}
	logger.Log.Info("Server stopped")
}
