package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var (
	dbPool *pgxpool.Pool
	once   sync.Once
)

// BuildPostgresDSN assembles the connection string from environment
// variables, loading .env first if one is present.
func BuildPostgresDSN() string {
	_ = godotenv.Load()
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	sslmode := os.Getenv("DB_SSLMODE")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode,
	)
}

// GetPostgresDBPool returns the singleton *pgxpool.Pool, connecting on
// first use and verifying the connection with a ping.
func GetPostgresDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	var err error
	once.Do(func() {
		config, configErr := pgxpool.ParseConfig(BuildPostgresDSN())
		if configErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", configErr)
			return
		}

		pool, connectErr := pgxpool.NewWithConfig(ctx, config)
		if connectErr != nil {
			err = fmt.Errorf("unable to connect to DB: %w", connectErr)
			return
		}
		dbPool = pool
	})

	if err != nil {
		return nil, err
	}
	if dbPool == nil {
		return nil, errors.New("database pool was not initialized")
	}
	if pingErr := dbPool.Ping(ctx); pingErr != nil {
		return nil, fmt.Errorf("database pool ping failed: %w", pingErr)
	}

	return dbPool, nil
}
