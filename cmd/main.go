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

	"paidreply/backend/internal/api/handler"
	"paidreply/backend/internal/escrow"
	"paidreply/backend/internal/fanout"
	"paidreply/backend/internal/lives"
	"paidreply/backend/internal/models"
	"paidreply/backend/internal/payment"
	"paidreply/backend/internal/storage"
	"paidreply/backend/internal/sweeper"
	"paidreply/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getenv("DB_HOST", "localhost"),
		getenv("DB_USER", "user"),
		getenv("DB_PASSWORD", "password"),
		getenv("DB_NAME", "paidreplydb"),
		getenv("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Creator{},
		&models.Tip{},
		&models.Conversation{},
		&models.Message{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.Println("Starting PaidReply Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	var provider payment.Provider = payment.DryRun{}

	throttle := lives.NewService(s)
	ledger := escrow.NewLedger(s, provider)
	sw := sweeper.NewSweeper(s, ledger)

	var notifier *telegram.Notifier
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		var err error
		notifier, err = telegram.NewNotifier(token)
		if err != nil {
			log.Fatalf("Failed to start Telegram notifier: %v", err)
		}
	}

	router := fanout.NewRouter()
	fanout.StartEventBridge(s.SubscribeEvents(), router)
	sw.Start()

	r := gin.Default()
	h := handler.NewHandler(s, router, throttle, ledger, sw, notifier)

	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)
	r.POST("/payments/confirmed", h.PaymentConfirmed)
	r.POST("/conversations/:id/open", h.OpenConversation)
	r.POST("/conversations/:id/messages", h.PostMessage)
	r.GET("/conversations/:id/history", h.GetHistory)

	admin := r.Group("/admin", handler.RequireOperator())
	admin.POST("/creators/:creator_id/token", h.GetCreatorToken)
	admin.POST("/tips/:id/fulfill", h.FulfillTip)
	admin.POST("/sweep/refunds", h.SweepRefunds)
	admin.POST("/payouts/:creator_id", h.Payout)

	server := &http.Server{
		Addr:           ":" + getenv("PORT", "8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	sw.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}
