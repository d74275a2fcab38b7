package store

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var batchCols = []string{"tenant_id", "device_id", "batch_request_key", "fingerprint", "results", "recorded_at"}

func TestBatchRepository_SaveBatch(t *testing.T) {
	rec := models.BatchRecord{
		TenantID:        "tenant-a",
		DeviceID:        "dev-1",
		BatchRequestKey: "batch-1",
		Fingerprint:     "fp-new",
		Results:         []byte(`[{"item_request_key":"i1","outcome":"created_new"}]`),
		RecordedAt:      testNow,
	}

	t.Run("first writer", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewBatchRepository(db, logger.Nop())

		mock.ExpectExec("INSERT INTO offline_batches").WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := repo.SaveBatch(testContext(), rec)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loser gets the stored outcome", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewBatchRepository(db, logger.Nop())

		stored := []byte(`[{"item_request_key":"i1","outcome":"already_applied"}]`)
		mock.ExpectExec("INSERT INTO offline_batches").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM offline_batches").
			WithArgs("batch-1", "dev-1", "tenant-a").
			WillReturnRows(sqlmock.NewRows(batchCols).AddRow("tenant-a", "dev-1", "batch-1", "fp-old", stored, testNow))

		got, err := repo.SaveBatch(testContext(), rec)
		require.NoError(t, err)
		assert.Equal(t, "fp-old", got.Fingerprint)
		assert.Equal(t, stored, got.Results)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBatchRepository_GetBatch_NotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewBatchRepository(db, logger.Nop())

	mock.ExpectQuery("SELECT (.+) FROM offline_batches").WillReturnRows(sqlmock.NewRows(batchCols))

	_, err := repo.GetBatch(testContext(), "tenant-a", "dev-1", "batch-9")
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestBatchRepository_GetItemKey(t *testing.T) {
	cols := []string{"tenant_id", "item_request_key", "object_id", "outcome", "content_hash", "created_at"}

	t.Run("found", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewBatchRepository(db, logger.Nop())

		mock.ExpectQuery("SELECT (.+) FROM offline_item_keys").
			WithArgs("item-1", "tenant-a").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("tenant-a", "item-1", "obj-1", "completed_existing", "abc", testNow))

		key, err := repo.GetItemKey(testContext(), "tenant-a", "item-1")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeCompletedExisting, key.Outcome)
		assert.Equal(t, "abc", key.ContentHash)
		assert.Equal(t, "obj-1", key.ObjectID)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewBatchRepository(db, logger.Nop())

		mock.ExpectQuery("SELECT (.+) FROM offline_item_keys").WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.GetItemKey(testContext(), "tenant-a", "item-1")
		require.ErrorIs(t, err, ErrItemKeyNotFound)
	})
}
