package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/coopfin/loan-service/internal/config"
	"github.com/coopfin/loan-service/internal/handler"
	"github.com/coopfin/loan-service/internal/integrations/banrep"
	"github.com/coopfin/loan-service/internal/middleware"
	"github.com/coopfin/loan-service/internal/repository"
	"github.com/coopfin/loan-service/internal/service"
	"github.com/coopfin/loan-service/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	notifier := email.NewSender(cfg, logger)
	svc := service.NewService(repo, logger, cfg, notifier)
	feed := banrep.NewClient(cfg, logger)
	h := handler.NewHandler(svc, feed)

	// Schedule the daily overdue sweep
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		if _, err := svc.RunOverdueSweep(context.Background(), time.Now()); err != nil {
			logger.Errorf("Scheduled overdue sweep failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule overdue sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/loans", h.RequestLoan).Methods("POST")
	r.HandleFunc("/loans/{id:[0-9]+}", h.GetLoan).Methods("GET")
	r.HandleFunc("/rates/{year:[0-9]+}", h.RateForYear).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/loans/{id:[0-9]+}/approve", h.ApproveLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id:[0-9]+}/reject", h.RejectLoan).Methods("POST")
	authRouter.HandleFunc("/installments/{id:[0-9]+}/payments", h.ApplyPayment).Methods("POST")
	authRouter.HandleFunc("/rates", h.CreateRate).Methods("POST")
	authRouter.HandleFunc("/rates/{year:[0-9]+}/suggested", h.SuggestedRate).Methods("GET")
	authRouter.HandleFunc("/sweep/run", h.RunSweep).Methods("POST")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
