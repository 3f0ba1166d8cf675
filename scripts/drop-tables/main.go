package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/mo-amir99/course-enrollment-server/internal/bootstrap"
	"github.com/mo-amir99/course-enrollment-server/pkg/config"
	"github.com/mo-amir99/course-enrollment-server/pkg/database"
	"github.com/mo-amir99/course-enrollment-server/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel, "")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	db, err := database.Open(context.Background(), cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db, appLogger)

	fmt.Println("\n⚠️  WARNING: This will DROP ALL TABLES in the database!")
	fmt.Println("   This action CANNOT be undone.")
	fmt.Print("\nType 'DROP ALL TABLES' to confirm: ")

	reader := bufio.NewReader(os.Stdin)
	confirmation, _ := reader.ReadString('\n')
	if strings.TrimSpace(confirmation) != "DROP ALL TABLES" {
		fmt.Println("\n❌ Operation cancelled. Database unchanged.")
		os.Exit(0)
	}

	// Reverse of migration order so dependents go first.
	models := bootstrap.Models()
	dropped := 0
	for i := len(models) - 1; i >= 0; i-- {
		model := models[i]
		if err := db.Migrator().DropTable(model); err != nil {
			appLogger.Warn("Failed to drop table", slog.String("model", fmt.Sprintf("%T", model)), slog.String("error", err.Error()))
			continue
		}
		appLogger.Info("Dropped table", slog.String("model", fmt.Sprintf("%T", model)))
		dropped++
	}

	fmt.Printf("\n✅ Successfully dropped %d tables!\n", dropped)
	fmt.Println("   You can now run the migrate script to recreate them.")
}
