// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/MKhiriev/go-custody-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

var validHash = strings.Repeat("ab", 32)

func TestNewEvidenceValidator(t *testing.T) {
	require.NotNil(t, NewEvidenceValidator())
}

func TestValidate_UnsupportedType(t *testing.T) {
	err := NewEvidenceValidator().Validate(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValidate_CreateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CreateRequest
		fields  []string
		wantErr error
	}{
		{
			name: "valid note",
			req:  models.CreateRequest{SourceKind: models.AuthoredNote, Content: models.NoteContent{Text: "x"}, ClientHash: ptr(validHash)},
		},
		{
			name: "pending document",
			req:  models.CreateRequest{SourceKind: models.FetchedDocument, SourceURL: ptr("https://example.com/a.pdf")},
		},
		{
			name:    "unknown kind",
			req:     models.CreateRequest{SourceKind: "video"},
			wantErr: ErrInvalidSourceKind,
		},
		{
			name:    "content of another kind",
			req:     models.CreateRequest{SourceKind: models.StoredBlob, Content: models.NoteContent{Text: "x"}},
			wantErr: ErrInvalidSourceKind,
		},
		{
			name:    "short client hash",
			req:     models.CreateRequest{SourceKind: models.AuthoredNote, ClientHash: ptr("abc")},
			wantErr: ErrInvalidClientHash,
		},
		{
			name:    "document without url",
			req:     models.CreateRequest{SourceKind: models.FetchedDocument},
			wantErr: ErrMissingSourceURL,
		},
		{
			name:    "non-http url",
			req:     models.CreateRequest{SourceKind: models.FetchedDocument, SourceURL: ptr("file:///etc/passwd")},
			wantErr: ErrInvalidSourceURL,
		},
		{
			name:    "empty scope",
			req:     models.CreateRequest{SourceKind: models.AuthoredNote, ScopeID: ptr("")},
			wantErr: ErrEmptyScopeID,
		},
		{
			name:   "scoped to kind only",
			req:    models.CreateRequest{SourceKind: models.FetchedDocument},
			fields: []string{FieldSourceKind},
		},
		{
			name:    "unknown field",
			req:     models.CreateRequest{SourceKind: models.AuthoredNote},
			fields:  []string{"nope"},
			wantErr: ErrUnknownField,
		},
	}

	v := NewEvidenceValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), &tt.req, tt.fields...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_OfflineBatch(t *testing.T) {
	item := func(key string) models.OfflineItem {
		return models.OfflineItem{ItemRequestKey: key, SourceKind: models.AuthoredNote, Text: key}
	}

	tests := []struct {
		name    string
		batch   models.OfflineBatch
		wantErr error
	}{
		{name: "valid", batch: models.OfflineBatch{BatchRequestKey: "b", Items: []models.OfflineItem{item("1"), item("2")}, Length: 2}},
		{name: "no key", batch: models.OfflineBatch{Items: []models.OfflineItem{item("1")}}, wantErr: ErrEmptyBatchRequestKey},
		{name: "no items", batch: models.OfflineBatch{BatchRequestKey: "b"}, wantErr: ErrEmptyItems},
		{name: "length mismatch", batch: models.OfflineBatch{BatchRequestKey: "b", Items: []models.OfflineItem{item("1")}, Length: 3}, wantErr: ErrLengthMismatch},
		{name: "empty item key", batch: models.OfflineBatch{BatchRequestKey: "b", Items: []models.OfflineItem{item("")}}, wantErr: ErrEmptyItemRequestKey},
		{name: "duplicate item key", batch: models.OfflineBatch{BatchRequestKey: "b", Items: []models.OfflineItem{item("1"), item("1")}}, wantErr: ErrDuplicateItemKey},
	}

	v := NewEvidenceValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tt.batch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_OfflineItem(t *testing.T) {
	v := NewEvidenceValidator()
	ctx := context.Background()

	assert.NoError(t, v.Validate(ctx, models.OfflineItem{ItemRequestKey: "i", SourceKind: models.StoredBlob}))
	assert.ErrorIs(t, v.Validate(ctx, models.OfflineItem{ItemRequestKey: "i", SourceKind: "x"}), ErrInvalidSourceKind)
	assert.ErrorIs(t, v.Validate(ctx, models.OfflineItem{
		ItemRequestKey: "i", SourceKind: models.StoredBlob, TargetObjectID: ptr("obj"), ScopeID: ptr("claim"),
	}), ErrTargetWithScopeChange)
	assert.ErrorIs(t, v.Validate(ctx, &models.OfflineItem{
		ItemRequestKey: "i", SourceKind: models.FetchedDocument,
	}, FieldSourceURL), ErrMissingSourceURL)
}

func TestValidate_BundleAndLifecycleRequests(t *testing.T) {
	v := NewEvidenceValidator()
	ctx := context.Background()

	assert.NoError(t, v.Validate(ctx, models.CreateBundleRequest{Purpose: "claim-7", Metadata: json.RawMessage(`{"court":"x"}`)}))
	assert.NoError(t, v.Validate(ctx, models.CreateBundleRequest{Purpose: "claim-7"}))
	assert.ErrorIs(t, v.Validate(ctx, models.CreateBundleRequest{}), ErrEmptyPurpose)
	assert.ErrorIs(t, v.Validate(ctx, models.CreateBundleRequest{Purpose: "p", Metadata: json.RawMessage(`[1]`)}), ErrInvalidMetadata)

	assert.NoError(t, v.Validate(ctx, models.SupersedeRequest{ReplacementID: "obj-2"}))
	assert.ErrorIs(t, v.Validate(ctx, models.SupersedeRequest{}), ErrEmptyReplacementID)
	assert.ErrorIs(t, v.Validate(ctx, &models.SupersedeRequest{ReplacementID: "x"}, FieldReason), ErrEmptyReason)

	assert.NoError(t, v.Validate(ctx, models.RevokeRequest{Reason: "duplicate upload"}))
	assert.ErrorIs(t, v.Validate(ctx, models.RevokeRequest{}), ErrEmptyReason)
}
