package main

import (
	"context"
	"time"

	mongoMigration "eventa/internal/migrations/mongo"
	"eventa/pkg/config"

	"github.com/spf13/pflag"
)

const JobName = "mongo-migration"

func main() {
	timeout := pflag.Duration("timeout", 120*time.Second, "overall migration deadline")
	database := pflag.String("database", "", "database to migrate (defaults to MONGO_DATABASE_NAME)")
	pflag.Parse()

	cfg := config.Load(JobName)
	if *database != "" {
		cfg.MongoDatabaseName = *database
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg.SetMongo()

	cfg.Log.Info("Starting Mongo migration job", "database", cfg.MongoDatabaseName)
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	err := mongoMigration.RunMigration(ctx, db, cfg.Log)
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
