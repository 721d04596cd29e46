// Package store persists imported datasets, analysis snapshots and
// generated messages, behind a driver-selectable interface.
package store

import (
	"context"
	"time"

	"github.com/leakstopper/leakstopper-cli/internal/model"
)

// Dataset is one imported customer set.
type Dataset struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CustomerCount int       `json:"customer_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// SavedMessage is one generated reclamation message kept for audit.
type SavedMessage struct {
	ID           string       `json:"id"`
	DatasetID    string       `json:"dataset_id,omitempty"`
	CustomerID   string       `json:"customer_id"`
	CustomerName string       `json:"customer_name"`
	Provider     string       `json:"provider"`
	Sector       model.Sector `json:"sector"`
	Subject      string       `json:"subject,omitempty"`
	Body         string       `json:"body"`
	CallToAction string       `json:"call_to_action,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// MessageFilter specifies criteria for listing saved messages.
type MessageFilter struct {
	DatasetID  string `json:"dataset_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the CLI.
type Store interface {
	// Datasets
	CreateDataset(ctx context.Context, name string, customers []model.Customer) (*Dataset, error)
	GetDataset(ctx context.Context, id string) (*Dataset, []model.Customer, error)
	ListDatasets(ctx context.Context) ([]Dataset, error)

	// Analysis snapshots
	SaveAnalysis(ctx context.Context, datasetID string, result *model.AnalysisResult) (string, error)
	GetLatestAnalysis(ctx context.Context, datasetID string) (*model.AnalysisResult, error)

	// Generated messages
	SaveMessage(ctx context.Context, msg SavedMessage) (*SavedMessage, error)
	ListMessages(ctx context.Context, filter MessageFilter) ([]SavedMessage, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
