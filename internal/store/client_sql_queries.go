// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

const (
	enqueueOutboxItem = `
		INSERT INTO outbox_items (
			item_request_key,
			source_kind,
			body,
			content_hash,
			captured_at
		) VALUES (?, ?, ?, ?, ?);`

	selectOpenOutboxBatch = `
		SELECT batch_request_key, created_at
		FROM outbox_batches
		WHERE completed_at IS NULL
		ORDER BY created_at
		LIMIT 1;`

	assignOutboxItems = `
		UPDATE outbox_items SET batch_request_key = ?
		WHERE item_request_key IN (
			SELECT item_request_key
			FROM outbox_items
			WHERE batch_request_key IS NULL
			ORDER BY captured_at, item_request_key
			LIMIT ?
		);`

	insertOutboxBatch = `
		INSERT INTO outbox_batches (batch_request_key, created_at) VALUES (?, ?);`

	selectOutboxBatchItems = `
		SELECT body
		FROM outbox_items
		WHERE batch_request_key = ?
		ORDER BY captured_at, item_request_key;`

	recordOutboxItemResult = `
		UPDATE outbox_items SET
			outcome    = ?,
			object_id  = ?,
			error_code = ?
		WHERE item_request_key = ? AND batch_request_key = ?;`

	completeOutboxBatch = `
		UPDATE outbox_batches SET completed_at = ?
		WHERE batch_request_key = ? AND completed_at IS NULL;`

	selectOutboxItems = `
		SELECT
			body,
			content_hash,
			captured_at,
			batch_request_key,
			outcome,
			object_id,
			error_code
		FROM outbox_items
		ORDER BY captured_at, item_request_key;`
)
