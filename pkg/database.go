package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/question-bank-service/internal/config"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// InitDatabase opens the postgres connection and migrates the schema when enabled
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(Models()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return db, nil
}

// Models lists every table owned by this service
func Models() []interface{} {
	return []interface{}{
		&models.Account{},
		&models.Course{},
		&models.ContextMembership{},
		&models.QuestionBank{},
		&models.QuestionBankUser{},
		&models.Question{},
		&models.Quiz{},
		&models.QuizGroup{},
		&models.QuizQuestion{},
		&models.LearningOutcome{},
		&models.OutcomeAlignment{},
	}
}

// NewRedisClient parses REDIS_URL and verifies the connection
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}
