package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/leakstopper/leakstopper-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	customer_count INTEGER NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dataset_customers (
	dataset_id TEXT NOT NULL REFERENCES datasets(id),
	position   INTEGER NOT NULL,
	customer   TEXT NOT NULL,
	PRIMARY KEY (dataset_id, position)
);

CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES datasets(id),
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS messages (
	id             TEXT PRIMARY KEY,
	dataset_id     TEXT,
	customer_id    TEXT NOT NULL,
	customer_name  TEXT NOT NULL,
	provider       TEXT NOT NULL,
	sector         TEXT NOT NULL,
	subject        TEXT,
	body           TEXT NOT NULL,
	call_to_action TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dataset_customers_dataset ON dataset_customers(dataset_id);
CREATE INDEX IF NOT EXISTS idx_analyses_dataset ON analyses(dataset_id);
CREATE INDEX IF NOT EXISTS idx_messages_dataset ON messages(dataset_id);
CREATE INDEX IF NOT EXISTS idx_messages_customer ON messages(customer_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDataset(ctx context.Context, name string, customers []model.Customer) (*Dataset, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin dataset tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO datasets (id, name, customer_count, created_at) VALUES (?, ?, ?, ?)`,
		id, name, len(customers), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert dataset")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dataset_customers (dataset_id, position, customer) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare customer insert")
	}
	defer stmt.Close()

	for i, c := range customers {
		customerJSON, err := json.Marshal(c)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: marshal customer %s", c.ID)
		}
		if _, err := stmt.ExecContext(ctx, id, i, string(customerJSON)); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert customer %s", c.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit dataset")
	}

	return &Dataset{
		ID:            id,
		Name:          name,
		CustomerCount: len(customers),
		CreatedAt:     now,
	}, nil
}

func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*Dataset, []model.Customer, error) {
	var ds Dataset
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, customer_count, created_at FROM datasets WHERE id = ?`, id,
	).Scan(&ds.ID, &ds.Name, &ds.CustomerCount, &ds.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, eris.Errorf("dataset not found: %s", id)
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: get dataset")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT customer FROM dataset_customers WHERE dataset_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: get dataset customers")
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var customerJSON string
		if err := rows.Scan(&customerJSON); err != nil {
			return nil, nil, eris.Wrap(err, "sqlite: scan customer")
		}
		var c model.Customer
		if err := json.Unmarshal([]byte(customerJSON), &c); err != nil {
			return nil, nil, eris.Wrap(err, "sqlite: unmarshal customer")
		}
		customers = append(customers, c)
	}
	return &ds, customers, eris.Wrap(rows.Err(), "sqlite: dataset customers iterate")
}

func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, customer_count, created_at FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		var ds Dataset
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.CustomerCount, &ds.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		datasets = append(datasets, ds)
	}
	return datasets, eris.Wrap(rows.Err(), "sqlite: list datasets iterate")
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, datasetID string, result *model.AnalysisResult) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal analysis")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, dataset_id, result, created_at) VALUES (?, ?, ?, ?)`,
		id, datasetID, string(resultJSON), now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert analysis for dataset %s", datasetID)
	}
	return id, nil
}

func (s *SQLiteStore) GetLatestAnalysis(ctx context.Context, datasetID string) (*model.AnalysisResult, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM analyses WHERE dataset_id = ? ORDER BY created_at DESC LIMIT 1`,
		datasetID,
	).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get latest analysis")
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return &result, nil
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, msg SavedMessage) (*SavedMessage, error) {
	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, dataset_id, customer_id, customer_name, provider, sector, subject, body, call_to_action, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, nullable(msg.DatasetID), msg.CustomerID, msg.CustomerName, msg.Provider,
		string(msg.Sector), nullable(msg.Subject), msg.Body, nullable(msg.CallToAction), msg.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert message for customer %s", msg.CustomerID)
	}
	return &msg, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, filter MessageFilter) ([]SavedMessage, error) {
	query := `SELECT id, dataset_id, customer_id, customer_name, provider, sector, subject, body, call_to_action, created_at
	          FROM messages WHERE 1=1`
	var args []any

	if filter.DatasetID != "" {
		query += ` AND dataset_id = ?`
		args = append(args, filter.DatasetID)
	}
	if filter.CustomerID != "" {
		query += ` AND customer_id = ?`
		args = append(args, filter.CustomerID)
	}
	if filter.Provider != "" {
		query += ` AND provider = ?`
		args = append(args, filter.Provider)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list messages")
	}
	defer rows.Close()

	var messages []SavedMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, eris.Wrap(rows.Err(), "sqlite: list messages iterate")
}

// helpers

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMessage(row scannable) (*SavedMessage, error) {
	var m SavedMessage
	var datasetID, subject, callToAction sql.NullString
	var sector string

	err := row.Scan(&m.ID, &datasetID, &m.CustomerID, &m.CustomerName, &m.Provider,
		&sector, &subject, &m.Body, &callToAction, &m.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan message")
	}

	m.DatasetID = datasetID.String
	m.Subject = subject.String
	m.CallToAction = callToAction.String
	m.Sector = model.Sector(sector)
	return &m, nil
}
