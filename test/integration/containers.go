package integration

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Env is a disposable Postgres+Kafka environment for integration tests.
type Env struct {
	PG     *postgres.PostgresContainer
	Kafka  *kafka.KafkaContainer
	PGURL  string
	KAddr  []string
	Cancel context.CancelFunc
}

func Setup(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("yourbarrio"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cancel()
		return nil, err
	}

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("checkout-test"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	brokers, err := kafkaC.Brokers(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Env{
		PG:     pgC,
		Kafka:  kafkaC,
		PGURL:  pgURL,
		KAddr:  brokers,
		Cancel: cancel,
	}, nil
}

// Migrate applies the repository's schema to the containerized database.
func (e *Env) Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, self, _, _ := runtime.Caller(0)
	schema, err := os.ReadFile(filepath.Join(filepath.Dir(self), "..", "..", "migrations", "001_init.sql"))
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, string(schema))
	return err
}

func (e *Env) Teardown(ctx context.Context) {
	e.Cancel()
	_ = e.Kafka.Terminate(ctx)
	_ = e.PG.Terminate(ctx)
}
