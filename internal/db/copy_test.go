package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "dataset_customers", []string{"dataset_id", "position"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"dataset_customers"}, []string{"dataset_id", "position", "customer"}).WillReturnResult(3)

	rows := [][]any{
		{"ds-1", 0, `{"id":"customer-1"}`},
		{"ds-1", 1, `{"id":"customer-2"}`},
		{"ds-1", 2, `{"id":"customer-3"}`},
	}
	n, err := CopyFrom(context.Background(), mock, "dataset_customers", []string{"dataset_id", "position", "customer"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"dataset_customers"}, []string{"dataset_id"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"ds-1"}}
	_, err = CopyFrom(context.Background(), mock, "dataset_customers", []string{"dataset_id"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO dataset_customers")
	assert.NoError(t, mock.ExpectationsWereMet())
}
