package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outboxNote(key, text string) models.OutboxItem {
	return models.OutboxItem{
		Item:        models.OfflineItem{ItemRequestKey: key, SourceKind: models.AuthoredNote, Text: text},
		ContentHash: "hash-" + key,
		CapturedAt:  testNow,
	}
}

func TestOutboxRepository_Enqueue(t *testing.T) {
	item := outboxNote("i1", "inspection passed")
	body, err := json.Marshal(item.Item)
	require.NoError(t, err)

	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "queued"},
		{
			name:    "duplicate key",
			execErr: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey},
			wantErr: ErrOutboxItemExists,
		},
		{name: "driver failure", execErr: errors.New("disk I/O error"), wantErr: ErrExecutingStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newTestDB(t)
			repo := NewOutboxRepository(db, logger.Nop())

			exp := mock.ExpectExec("INSERT INTO outbox_items").
				WithArgs("i1", "authored_note", body, "hash-i1", testNow)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := repo.Enqueue(testContext(), item)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOutboxRepository_OpenBatch(t *testing.T) {
	first, err := json.Marshal(outboxNote("i1", "a").Item)
	require.NoError(t, err)
	second, err := json.Marshal(outboxNote("i2", "b").Item)
	require.NoError(t, err)

	t.Run("assigns pending items to a new batch", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewOutboxRepository(db, logger.Nop())

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT batch_request_key, created_at FROM outbox_batches").
			WillReturnRows(sqlmock.NewRows([]string{"batch_request_key", "created_at"}))
		mock.ExpectExec("UPDATE outbox_items SET batch_request_key").
			WithArgs("batch-new", 50).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("INSERT INTO outbox_batches").
			WithArgs("batch-new", testNow).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT body FROM outbox_items").WithArgs("batch-new").
			WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(first).AddRow(second))
		mock.ExpectCommit()

		batch, err := repo.OpenBatch(testContext(), "batch-new", testNow, 50)
		require.NoError(t, err)
		assert.Equal(t, "batch-new", batch.BatchRequestKey)
		require.Len(t, batch.Items, 2)
		assert.Equal(t, "i1", batch.Items[0].ItemRequestKey)
		assert.Equal(t, "b", batch.Items[1].Text)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("resumes an unfinished batch under its old key", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewOutboxRepository(db, logger.Nop())

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT batch_request_key, created_at FROM outbox_batches").
			WillReturnRows(sqlmock.NewRows([]string{"batch_request_key", "created_at"}).AddRow("batch-old", testNow))
		mock.ExpectQuery("SELECT body FROM outbox_items").WithArgs("batch-old").
			WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(first))
		mock.ExpectCommit()

		batch, err := repo.OpenBatch(testContext(), "batch-new", testNow, 50)
		require.NoError(t, err)
		assert.Equal(t, "batch-old", batch.BatchRequestKey)
		assert.Len(t, batch.Items, 1)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to send", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewOutboxRepository(db, logger.Nop())

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT batch_request_key, created_at FROM outbox_batches").
			WillReturnRows(sqlmock.NewRows([]string{"batch_request_key", "created_at"}))
		mock.ExpectExec("UPDATE outbox_items SET batch_request_key").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := repo.OpenBatch(testContext(), "batch-new", testNow, 50)
		require.ErrorIs(t, err, ErrOutboxEmpty)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_CompleteBatch(t *testing.T) {
	results := []models.ItemResult{
		{ItemRequestKey: "i1", Outcome: models.OutcomeCreatedNew, ObjectID: "obj-1"},
		{ItemRequestKey: "i2", Outcome: models.OutcomeRejected, ErrorCode: "HASH_MISMATCH"},
	}

	t.Run("records results", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewOutboxRepository(db, logger.Nop())

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE outbox_items SET").
			WithArgs("created_new", "obj-1", nil, "i1", "batch-1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE outbox_items SET").
			WithArgs("rejected", nil, "HASH_MISMATCH", "i2", "batch-1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE outbox_batches SET completed_at").
			WithArgs(testNow, "batch-1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CompleteBatch(testContext(), "batch-1", results, testNow))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown batch", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewOutboxRepository(db, logger.Nop())

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE outbox_batches SET completed_at").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.CompleteBatch(testContext(), "batch-9", nil, testNow)
		require.ErrorIs(t, err, ErrOutboxBatchNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_ListItems(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewOutboxRepository(db, logger.Nop())

	body, err := json.Marshal(outboxNote("i1", "a").Item)
	require.NoError(t, err)
	pending, err := json.Marshal(outboxNote("i2", "b").Item)
	require.NoError(t, err)

	cols := []string{"body", "content_hash", "captured_at", "batch_request_key", "outcome", "object_id", "error_code"}
	mock.ExpectQuery("SELECT (.+) FROM outbox_items").WillReturnRows(sqlmock.NewRows(cols).
		AddRow(body, "hash-i1", testNow, "batch-1", "created_new", "obj-1", nil).
		AddRow(pending, "hash-i2", testNow, nil, nil, nil, nil))

	items, err := repo.ListItems(testContext())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.True(t, items[0].Synced())
	assert.Equal(t, "obj-1", *items[0].ObjectID)
	assert.Equal(t, "batch-1", *items[0].BatchRequestKey)
	assert.Nil(t, items[0].ErrorCode)

	assert.False(t, items[1].Synced())
	assert.Nil(t, items[1].BatchRequestKey)
	assert.Equal(t, "b", items[1].Item.Text)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteErrorClassifier(t *testing.T) {
	c := NewSQLiteErrorClassifier()

	assert.Equal(t, Retryable, c.Classify(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.Equal(t, Retryable, c.Classify(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.Equal(t, NonRetryable, c.Classify(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.Equal(t, NonRetryable, c.Classify(errors.New("other")))
}
