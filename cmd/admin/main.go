package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"paidreply/backend/internal/config"
	"paidreply/backend/internal/escrow"
	"paidreply/backend/internal/models"
	"paidreply/backend/internal/payment"
	"paidreply/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	godotenv.Load()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	ledger := escrow.NewLedger(storageSvc, payment.DryRun{})

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "create-creator":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin create-creator <handle>")
			os.Exit(1)
		}
		creator := &models.Creator{
			Handle:       os.Args[2],
			Lives:        config.DefaultMaxLives,
			MaxLives:     config.DefaultMaxLives,
			LastRefillAt: time.Now(),
		}
		if err := storageSvc.SaveCreator(creator); err != nil {
			log.Fatalf("Error creating creator: %v", err)
		}
		fmt.Printf("Creator %s created with id %s.\n", creator.Handle, creator.ID)
	case "grant-lives":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin grant-lives <creator_id> <max_lives>")
			os.Exit(1)
		}
		maxLives, err := strconv.Atoi(os.Args[3])
		if err != nil {
			fmt.Println("Invalid max lives. Please provide an integer.")
			os.Exit(1)
		}
		if err := grantLives(storageSvc, os.Args[2], maxLives); err != nil {
			log.Fatalf("Error granting lives: %v", err)
		}
		fmt.Printf("Creator %s now has max %d lives.\n", os.Args[2], maxLives)
	case "set-unlimited":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin set-unlimited <creator_id> <true|false>")
			os.Exit(1)
		}
		unlimited, err := strconv.ParseBool(os.Args[3])
		if err != nil {
			fmt.Println("Invalid flag. Please provide true or false.")
			os.Exit(1)
		}
		if err := setUnlimited(storageSvc, os.Args[2], unlimited); err != nil {
			log.Fatalf("Error updating creator: %v", err)
		}
		fmt.Printf("Creator %s unlimited=%v.\n", os.Args[2], unlimited)
	case "refund-sweep":
		refunded, err := ledger.RefundOverdue(config.RefundDeadline)
		if err != nil {
			log.Fatalf("Error running refund sweep: %v", err)
		}
		fmt.Printf("Refunded %d overdue tips.\n", len(refunded))
	case "payout":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin payout <creator_id>")
			os.Exit(1)
		}
		result, err := ledger.Payout(os.Args[2])
		if err != nil {
			log.Fatalf("Error running payout: %v", err)
		}
		if result.TransferID == "" {
			fmt.Printf("Below threshold: %d cents fulfilled, nothing transferred.\n", result.TotalCents)
		} else {
			fmt.Printf("Paid out %d cents across %d tips (transfer %s).\n",
				result.TotalCents, len(result.Tips), result.TransferID)
		}
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func grantLives(s storage.Storage, creatorID string, maxLives int) error {
	creator, err := s.GetCreatorByID(creatorID)
	if err != nil {
		return err
	}
	creator.MaxLives = maxLives
	if creator.Lives > maxLives {
		creator.Lives = maxLives
	}
	return s.SaveCreator(creator)
}

func setUnlimited(s storage.Storage, creatorID string, unlimited bool) error {
	creator, err := s.GetCreatorByID(creatorID)
	if err != nil {
		return err
	}
	creator.IsUnlimited = unlimited
	return s.SaveCreator(creator)
}
