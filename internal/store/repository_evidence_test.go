package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-custody-ledger/internal/logger"
	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &DB{DB: db, logger: logger.Nop(), errorClassificator: NewPostgresErrorClassifier()}, mock
}

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

var testNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func sampleObject() models.EvidenceObject {
	h := "c0ffee"
	return models.EvidenceObject{
		ID:          "obj-1",
		TenantID:    "tenant-a",
		SourceKind:  models.AuthoredNote,
		CreatedAt:   testNow,
		ContentHash: &h,
		ContentSize: 5,
		ChainStatus: models.StatusOpen,
		TipHash:     "e0",
		TipSeq:      0,
	}
}

func sampleEvent(seq int64, prev, hash string) models.CustodyEvent {
	return models.CustodyEvent{
		ObjectID:      "obj-1",
		TenantID:      "tenant-a",
		Seq:           seq,
		EventType:     models.EventCreated,
		EventAt:       testNow,
		Payload:       json.RawMessage(`{}`),
		PrevEventHash: prev,
		EventHash:     hash,
	}
}

func objectRow(obj models.EvidenceObject) *sqlmock.Rows {
	return sqlmock.NewRows(objectColumns).AddRow(
		obj.ID, obj.TenantID, nil, string(obj.SourceKind), nil, nil, obj.CreatedAt.In(time.FixedZone("X", 3600)),
		*obj.ContentHash, obj.ContentSize, obj.PendingBytes, nil, nil, []byte("hello"),
		string(obj.ChainStatus), nil, obj.TipHash, obj.TipSeq,
	)
}

func TestEvidenceRepository_CreateObject(t *testing.T) {
	key := &models.ItemKey{TenantID: "tenant-a", ItemRequestKey: "item-1", ObjectID: "obj-1", Outcome: models.OutcomeCreatedNew, CreatedAt: testNow}

	tests := []struct {
		name    string
		key     *models.ItemKey
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "object with item key",
			key:  key,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO offline_item_keys").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO evidence_objects").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO custody_events").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "live capture without item key",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO evidence_objects").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO custody_events").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "item key already resolved",
			key:  key,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO offline_item_keys").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr: ErrItemKeyExists,
		},
		{
			name: "duplicate object id",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO evidence_objects").WillReturnError(pgError(pgerrcode.UniqueViolation))
				mock.ExpectRollback()
			},
			wantErr: ErrObjectExists,
		},
		{
			name: "event insert fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO evidence_objects").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO custody_events").WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			wantErr: ErrExecutingStatement,
		},
		{
			name: "begin fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("no connection"))
			},
			wantErr: ErrBeginningTransaction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newTestDB(t)
			repo := NewEvidenceRepository(db, logger.Nop())
			tt.setup(mock)

			err := repo.CreateObject(testContext(), sampleObject(), sampleEvent(0, "", "e0"), tt.key)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEvidenceRepository_GetObject(t *testing.T) {
	t.Run("found and normalized to UTC", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewEvidenceRepository(db, logger.Nop())

		mock.ExpectQuery("SELECT (.+) FROM evidence_objects").
			WithArgs("obj-1", "tenant-a").
			WillReturnRows(objectRow(sampleObject()))

		obj, err := repo.GetObject(testContext(), "tenant-a", "obj-1")
		require.NoError(t, err)

		assert.Equal(t, "obj-1", obj.ID)
		assert.Equal(t, models.AuthoredNote, obj.SourceKind)
		assert.Equal(t, models.StatusOpen, obj.ChainStatus)
		assert.Equal(t, time.UTC, obj.CreatedAt.Location())
		assert.Nil(t, obj.ScopeID)
		assert.Equal(t, []byte("hello"), obj.InlineContent)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewEvidenceRepository(db, logger.Nop())

		mock.ExpectQuery("SELECT (.+) FROM evidence_objects").WillReturnRows(sqlmock.NewRows(objectColumns))

		_, err := repo.GetObject(testContext(), "tenant-b", "obj-1")
		require.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewEvidenceRepository(db, logger.Nop())

		mock.ExpectQuery("SELECT (.+) FROM evidence_objects").WillReturnError(sql.ErrConnDone)

		_, err := repo.GetObject(testContext(), "tenant-a", "obj-1")
		require.ErrorIs(t, err, ErrScanningRow)
	})
}

func TestEvidenceRepository_AppendEvent(t *testing.T) {
	sealed := models.StatusSealed
	hash := "c0ffee"
	appendReq := Append{
		TenantID: "tenant-a",
		Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e0", Seq: 0},
		Event:    sampleEvent(1, "e0", "e1"),
		Change: ObjectChange{
			Status:        &sealed,
			ContentHash:   &hash,
			RequireStatus: []models.ChainStatus{models.StatusOpen},
		},
	}

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "tip advanced",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE evidence_objects SET").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO custody_events").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery("SELECT (.+) FROM evidence_objects").WillReturnRows(objectRow(sampleObject()))
				mock.ExpectCommit()
			},
		},
		{
			name: "tip moved",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE evidence_objects SET").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT (.+) FROM evidence_objects").WillReturnRows(objectRow(sampleObject()))
				mock.ExpectRollback()
			},
			wantErr: ErrTipConflict,
		},
		{
			name: "object missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE evidence_objects SET").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT (.+) FROM evidence_objects").WillReturnRows(sqlmock.NewRows(objectColumns))
				mock.ExpectRollback()
			},
			wantErr: ErrObjectNotFound,
		},
		{
			name: "second successor of the same predecessor",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE evidence_objects SET").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO custody_events").WillReturnError(pgError(pgerrcode.UniqueViolation))
				mock.ExpectRollback()
			},
			wantErr: ErrTipConflict,
		},
		{
			name: "commit fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE evidence_objects SET").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO custody_events").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery("SELECT (.+) FROM evidence_objects").WillReturnRows(objectRow(sampleObject()))
				mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
			},
			wantErr: ErrCommitingTransaction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newTestDB(t)
			repo := NewEvidenceRepository(db, logger.Nop())
			tt.setup(mock)

			_, err := repo.AppendEvent(testContext(), appendReq)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEvidenceRepository_AppendEvent_ContentOnSealedObject(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewEvidenceRepository(db, logger.Nop())

	sealedObj := sampleObject()
	sealedObj.ChainStatus = models.StatusSealed
	hash := "bbbb"

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE evidence_objects SET tip_hash = \$1, tip_seq = \$2, content_hash = \$3 WHERE .+ AND chain_status = \$8`).
		WithArgs("e1", int64(1), "bbbb", "obj-1", "tenant-a", "e0", int64(0), "open").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM evidence_objects").WillReturnRows(objectRow(sealedObj))
	mock.ExpectRollback()

	_, err := repo.AppendEvent(testContext(), Append{
		TenantID: "tenant-a",
		Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e0", Seq: 0},
		Event:    sampleEvent(1, "e0", "e1"),
		Change:   ObjectChange{ContentHash: &hash},
	})
	require.ErrorIs(t, err, ErrTipConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidenceRepository_ListEvents(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewEvidenceRepository(db, logger.Nop())

	local := time.FixedZone("UTC+5", 5*3600)
	rows := sqlmock.NewRows(eventColumns).
		AddRow("obj-1", "tenant-a", int64(0), "created", testNow.In(local), []byte(`{"a":1}`), "", "e0").
		AddRow("obj-1", "tenant-a", int64(1), "sealed", testNow.In(local), []byte(`{}`), "e0", "e1")
	mock.ExpectQuery("SELECT (.+) FROM custody_events (.+) ORDER BY seq ASC").
		WithArgs("obj-1", "tenant-a").
		WillReturnRows(rows)

	events, err := repo.ListEvents(testContext(), "tenant-a", "obj-1")
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, models.EventSealed, events[1].EventType)
	assert.Equal(t, "e0", events[1].PrevEventHash)
	assert.Equal(t, time.UTC, events[0].EventAt.Location())
	assert.JSONEq(t, `{"a":1}`, string(events[0].Payload))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildAdvanceTipQuery(t *testing.T) {
	pending := int64(42)
	query, args, err := buildAdvanceTipQuery(Append{
		TenantID: "tenant-a",
		Expected: models.ChainTip{ObjectID: "obj-1", Hash: "e0", Seq: 0},
		Event:    sampleEvent(1, "e0", "e1"),
		Change: ObjectChange{
			ContentSize:    &pending,
			ClearPending:   true,
			RequireStatus:  []models.ChainStatus{models.StatusOpen},
			RequirePending: true,
		},
	})
	require.NoError(t, err)

	assert.Contains(t, query, "UPDATE evidence_objects SET tip_hash = $1, tip_seq = $2")
	assert.Contains(t, query, "pending_bytes = $")
	assert.Contains(t, query, "chain_status IN ($")
	assert.Contains(t, query, "tip_hash = $")
	assert.Contains(t, args, "e1")
	assert.Contains(t, args, "e0")
	assert.Contains(t, args, "tenant-a")
}

func TestDB_IsRetryable(t *testing.T) {
	db, _ := newTestDB(t)

	assert.True(t, db.IsRetryable(ErrTipConflict))
	assert.True(t, db.IsRetryable(ErrVersionConflict))
	assert.True(t, db.IsRetryable(pgError(pgerrcode.SerializationFailure)))
	assert.False(t, db.IsRetryable(pgError(pgerrcode.UniqueViolation)))
	assert.False(t, db.IsRetryable(ErrObjectNotFound))

	var none *DB
	assert.True(t, none.IsRetryable(ErrTipConflict))
	assert.False(t, none.IsRetryable(errors.New("x")))
}

func TestPostgresErrorClassifier(t *testing.T) {
	c := NewPostgresErrorClassifier()
	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{name: "nil", err: nil, want: NonRetryable},
		{name: "not a pg error", err: errors.New("boom"), want: NonRetryable},
		{name: "serialization failure", err: pgError(pgerrcode.SerializationFailure), want: Retryable},
		{name: "deadlock", err: pgError(pgerrcode.DeadlockDetected), want: Retryable},
		{name: "connection failure", err: pgError(pgerrcode.ConnectionFailure), want: Retryable},
		{name: "cannot connect now", err: pgError(pgerrcode.CannotConnectNow), want: Retryable},
		{name: "unique violation", err: pgError(pgerrcode.UniqueViolation), want: NonRetryable},
		{name: "undefined table", err: pgError(pgerrcode.UndefinedTable), want: NonRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.err))
		})
	}

	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", pgError(pgerrcode.UniqueViolation))))
	assert.Equal(t, pgerrcode.DeadlockDetected, postgresError(pgError(pgerrcode.DeadlockDetected)))
	assert.Empty(t, postgresError(errors.New("x")))
}
