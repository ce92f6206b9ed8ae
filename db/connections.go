package db

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"contact-manager/model"
)

var (
	DB   *gorm.DB
	once sync.Once
)

func InitDB() (*gorm.DB, error) {
	var initErr error
	once.Do(func() {
		host := os.Getenv("DB_HOST")
		user := os.Getenv("DB_USER")
		password := os.Getenv("DB_PASSWORD")
		dbname := os.Getenv("DB_NAME")

		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=require", host, user, password, dbname)

		DB, initErr = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if initErr != nil {
			initErr = fmt.Errorf("failed to connect to database: %w", initErr)
			return
		}

		initErr = DB.AutoMigrate(&model.User{}, &model.Contact{}, &model.SMSRequest{}, &model.PadronRow{})
		if initErr != nil {
			initErr = fmt.Errorf("failed to migrate database: %w", initErr)
		}
	})
	return DB, initErr
}

// InitRedis connects to the cache used for per-user contact counts and
// padron lookup results. Callers treat a nil client as "no cache".
func InitRedis(ctx context.Context) (*redis.Client, error) {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		return nil, fmt.Errorf("REDIS_HOST environment variable is not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr: redisHost,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
