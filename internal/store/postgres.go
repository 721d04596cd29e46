package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/leakstopper/leakstopper-cli/internal/db"
	"github.com/leakstopper/leakstopper-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_dataset":  `INSERT INTO datasets (id, name, customer_count, created_at) VALUES ($1, $2, $3, $4)`,
	"get_dataset":     `SELECT id, name, customer_count, created_at FROM datasets WHERE id = $1`,
	"insert_analysis": `INSERT INTO analyses (id, dataset_id, result, created_at) VALUES ($1, $2, $3, $4)`,
	"latest_analysis": `SELECT result FROM analyses WHERE dataset_id = $1 ORDER BY created_at DESC LIMIT 1`,
	"insert_message":  `INSERT INTO messages (id, dataset_id, customer_id, customer_name, provider, sector, subject, body, call_to_action, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, query := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, query); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used in tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name           TEXT NOT NULL,
	customer_count INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dataset_customers (
	dataset_id UUID NOT NULL REFERENCES datasets(id),
	position   INTEGER NOT NULL,
	customer   JSONB NOT NULL,
	PRIMARY KEY (dataset_id, position)
);

CREATE TABLE IF NOT EXISTS analyses (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	dataset_id UUID NOT NULL REFERENCES datasets(id),
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	dataset_id     UUID,
	customer_id    TEXT NOT NULL,
	customer_name  TEXT NOT NULL,
	provider       TEXT NOT NULL,
	sector         TEXT NOT NULL,
	subject        TEXT,
	body           TEXT NOT NULL,
	call_to_action TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_dataset ON analyses(dataset_id);
CREATE INDEX IF NOT EXISTS idx_messages_dataset ON messages(dataset_id);
CREATE INDEX IF NOT EXISTS idx_messages_customer ON messages(customer_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateDataset(ctx context.Context, name string, customers []model.Customer) (*Dataset, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO datasets (id, name, customer_count, created_at) VALUES ($1, $2, $3, $4)`,
		id, name, len(customers), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert dataset")
	}

	rows := make([][]any, 0, len(customers))
	for i, c := range customers {
		customerJSON, err := json.Marshal(c)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: marshal customer %s", c.ID)
		}
		rows = append(rows, []any{id, i, string(customerJSON)})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "dataset_customers",
		[]string{"dataset_id", "position", "customer"}, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy dataset customers")
	}

	return &Dataset{
		ID:            id,
		Name:          name,
		CustomerCount: len(customers),
		CreatedAt:     now,
	}, nil
}

func (s *PostgresStore) GetDataset(ctx context.Context, id string) (*Dataset, []model.Customer, error) {
	var ds Dataset
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, customer_count, created_at FROM datasets WHERE id = $1`, id,
	).Scan(&ds.ID, &ds.Name, &ds.CustomerCount, &ds.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, eris.Errorf("dataset not found: %s", id)
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: get dataset")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT customer FROM dataset_customers WHERE dataset_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: get dataset customers")
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var customerJSON string
		if err := rows.Scan(&customerJSON); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: scan customer")
		}
		var c model.Customer
		if err := json.Unmarshal([]byte(customerJSON), &c); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: unmarshal customer")
		}
		customers = append(customers, c)
	}
	return &ds, customers, eris.Wrap(rows.Err(), "postgres: dataset customers iterate")
}

func (s *PostgresStore) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, customer_count, created_at FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		var ds Dataset
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.CustomerCount, &ds.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		datasets = append(datasets, ds)
	}
	return datasets, eris.Wrap(rows.Err(), "postgres: list datasets iterate")
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, datasetID string, result *model.AnalysisResult) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal analysis")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, dataset_id, result, created_at) VALUES ($1, $2, $3, $4)`,
		id, datasetID, string(resultJSON), now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert analysis for dataset %s", datasetID)
	}
	return id, nil
}

func (s *PostgresStore) GetLatestAnalysis(ctx context.Context, datasetID string) (*model.AnalysisResult, error) {
	var resultJSON string
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM analyses WHERE dataset_id = $1 ORDER BY created_at DESC LIMIT 1`,
		datasetID,
	).Scan(&resultJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get latest analysis")
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	return &result, nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, msg SavedMessage) (*SavedMessage, error) {
	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, dataset_id, customer_id, customer_name, provider, sector, subject, body, call_to_action, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		msg.ID, nullable(msg.DatasetID), msg.CustomerID, msg.CustomerName, msg.Provider,
		string(msg.Sector), nullable(msg.Subject), msg.Body, nullable(msg.CallToAction), msg.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert message for customer %s", msg.CustomerID)
	}
	return &msg, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, filter MessageFilter) ([]SavedMessage, error) {
	query := `SELECT id, dataset_id, customer_id, customer_name, provider, sector, subject, body, call_to_action, created_at
	          FROM messages WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.DatasetID != "" {
		query += ` AND dataset_id = ` + arg(filter.DatasetID)
	}
	if filter.CustomerID != "" {
		query += ` AND customer_id = ` + arg(filter.CustomerID)
	}
	if filter.Provider != "" {
		query += ` AND provider = ` + arg(filter.Provider)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list messages")
	}
	defer rows.Close()

	var messages []SavedMessage
	for rows.Next() {
		m, err := scanPostgresMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, eris.Wrap(rows.Err(), "postgres: list messages iterate")
}

func scanPostgresMessage(row pgx.Row) (*SavedMessage, error) {
	var m SavedMessage
	var datasetID, subject, callToAction *string
	var sector string

	err := row.Scan(&m.ID, &datasetID, &m.CustomerID, &m.CustomerName, &m.Provider,
		&sector, &subject, &m.Body, &callToAction, &m.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan message")
	}

	if datasetID != nil {
		m.DatasetID = *datasetID
	}
	if subject != nil {
		m.Subject = *subject
	}
	if callToAction != nil {
		m.CallToAction = *callToAction
	}
	m.Sector = model.Sector(sector)
	return &m, nil
}
