package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"childsubs/internal/config"
	"childsubs/internal/database"
	"childsubs/internal/logger"
	"childsubs/internal/service"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer log.Sync()

	ctx := context.Background()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Ensure the schema is up to date before touching data
	if _, err := db.RunMigrations(ctx); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	backupService := service.NewBackupService(db, log)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, log, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, log, backupService, db, *importInput, *importClear)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, log *zap.Logger, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("failed to create output directory", zap.Error(err))
		}
	}

	if err := backupService.Export(ctx, outputPath); err != nil {
		log.Fatal("export failed", zap.Error(err))
	}

	if info, err := os.Stat(outputPath); err == nil {
		log.Info("export complete", zap.String("size", fmt.Sprintf("%.2f MB", float64(info.Size())/1024/1024)))
	}
}

func handleImport(ctx context.Context, log *zap.Logger, backupService *service.BackupService, db *database.DB, inputPath string, clearData bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatal("input file does not exist", zap.String("path", inputPath))
	}

	if clearData {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Info("import cancelled")
			return
		}

		log.Info("clearing existing data")
		if err := clearDatabase(ctx, log, db); err != nil {
			log.Fatal("failed to clear database", zap.Error(err))
		}
	}

	if err := backupService.Import(ctx, inputPath); err != nil {
		log.Fatal("import failed", zap.Error(err))
	}

	log.Info("import complete", zap.String("path", inputPath))
}

func clearDatabase(ctx context.Context, log *zap.Logger, db *database.DB) error {
	// Delete in reverse order of dependencies
	tables := []string{
		"subscription_meta",
		"subscriptions",
		"order_meta",
		"order_items",
		"orders",
		"cart_items",
		"children",
		"products",
		"sessions",
		"users",
	}

	return db.WithTx(ctx, func(tx *database.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			log.Info("cleared table", zap.String("table", table))
		}
		return nil
	})
}

func printUsage() {
	fmt.Println("Child Subscriptions Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to JSON file")
	fmt.Println("  backup import [options]    Import database from JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  backup export -output mybackup.json")
	fmt.Println("  backup import -input backup.json -clear")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./childsubs.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
