package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

func TestCounterAdapter_Load(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCounterAdapter(client, nil)

	mock.ExpectQuery(`SELECT "bucket_type", "bucket_key", "counter_name", "value" FROM "metric_counters" WHERE .*"bucket_key" IN \(\$1, \$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"bucket_type", "bucket_key", "counter_name", "value"}).
			AddRow("day", "2026-10-13", "atendimentosIniciados", 4).
			AddRow("day", "2026-10-14", "atendimentosIniciados", 6).
			AddRow("day", "2026-10-14", "faturamento", 30000))

	rows, err := adapter.Load(context.Background(), entities.BucketDay, []string{"2026-10-13", "2026-10-14"})

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, entities.CounterAtendimentosIniciados, rows[0].Name)

	set := entities.CounterSetFromRows(rows)
	assert.Equal(t, int64(10), set.AtendimentosIniciados)
	assert.Equal(t, entities.Cents(30000), set.Faturamento)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterAdapter_Load_NoKeys(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCounterAdapter(client, nil)

	rows, err := adapter.Load(context.Background(), entities.BucketWeek, nil)

	assert.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterAdapter_Load_Failure(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCounterAdapter(client, nil)

	mock.ExpectQuery(`SELECT .* FROM "metric_counters"`).
		WillReturnError(errors.New("connection reset"))

	_, err := adapter.Load(context.Background(), entities.BucketMonth, []string{"2026-10"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
}
