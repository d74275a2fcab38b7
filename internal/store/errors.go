package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrObjectNotFound is returned when no evidence object exists for the
	// (tenant, id) pair.
	ErrObjectNotFound = errors.New("evidence object was not found")

	// ErrObjectExists is returned when an object id is inserted twice.
	ErrObjectExists = errors.New("evidence object already exists")

	// ErrTipConflict is returned when the chain tip or the guarded object
	// state no longer matches what the caller read. The caller re-reads
	// and decides again.
	ErrTipConflict = errors.New("custody chain tip moved")

	// ErrBundleNotFound is returned when no bundle exists for (tenant, id).
	ErrBundleNotFound = errors.New("bundle was not found")

	// ErrBundleNotOpen is returned when items or the manifest of a sealed or
	// exported bundle would change.
	ErrBundleNotOpen = errors.New("bundle is not open")

	// ErrBundleNotSealed is returned when exporting a bundle that was never
	// sealed.
	ErrBundleNotSealed = errors.New("bundle is not sealed")

	// ErrVersionConflict is returned when an optimistic-locking check on a
	// bundle fails: another request changed it since it was read.
	ErrVersionConflict = errors.New("bundle version conflict occurred")

	// ErrBatchNotFound is returned when no outcome is recorded for a batch key.
	ErrBatchNotFound = errors.New("batch outcome was not found")

	// ErrItemKeyNotFound is returned when an offline item key is unresolved.
	ErrItemKeyNotFound = errors.New("item key was not found")

	// ErrItemKeyExists is returned when an offline item key was resolved by
	// another transaction first.
	ErrItemKeyExists = errors.New("item key already resolved")

	// ErrOutboxEmpty is returned when the device outbox has nothing to send.
	ErrOutboxEmpty = errors.New("outbox is empty")

	// ErrOutboxItemExists is returned when an item request key is queued twice.
	ErrOutboxItemExists = errors.New("outbox item already queued")

	// ErrOutboxBatchNotFound is returned when completing an unknown or already
	// completed batch.
	ErrOutboxBatchNotFound = errors.New("outbox batch was not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE) fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrEncodingColumn is returned when a structured column cannot be
	// encoded or decoded.
	ErrEncodingColumn = errors.New("failed to encode column")
)
