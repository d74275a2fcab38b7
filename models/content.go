package models

import "encoding/json"

// Content is the closed set of capture payloads, one concrete type per
// [SourceKind]. Implementations live only in this package.
type Content interface {
	Kind() SourceKind
	isContent()
}

// NoteContent is the text of an authored note.
type NoteContent struct {
	Text string
}

// DocumentContent is a fetched document. ExtractedText is derived data and
// never participates in hashing.
type DocumentContent struct {
	Raw           []byte
	URL           string
	ExtractedText string
}

// BlobContent is an uploaded file.
type BlobContent struct {
	Raw      []byte
	FileName string
}

// SnapshotContent is a structured snapshot payload.
type SnapshotContent struct {
	Payload json.RawMessage
}

// FeedItemContent is an item received from an external feed.
type FeedItemContent struct {
	Feed    string
	Payload json.RawMessage
}

func (NoteContent) Kind() SourceKind     { return AuthoredNote }
func (DocumentContent) Kind() SourceKind { return FetchedDocument }
func (BlobContent) Kind() SourceKind     { return StoredBlob }
func (SnapshotContent) Kind() SourceKind { return StructuredSnapshot }
func (FeedItemContent) Kind() SourceKind { return ExternalFeedItem }

func (NoteContent) isContent()     {}
func (DocumentContent) isContent() {}
func (BlobContent) isContent()     {}
func (SnapshotContent) isContent() {}
func (FeedItemContent) isContent() {}

// ContentFromBytes builds the Content variant of kind from raw capture data.
// For notes data is the UTF-8 text, for snapshots and feed items the JSON
// payload, for blobs and documents the raw bytes.
func ContentFromBytes(kind SourceKind, data []byte) (Content, bool) {
	switch kind {
	case AuthoredNote:
		return NoteContent{Text: string(data)}, true
	case FetchedDocument:
		return DocumentContent{Raw: data}, true
	case StoredBlob:
		return BlobContent{Raw: data}, true
	case StructuredSnapshot:
		return SnapshotContent{Payload: json.RawMessage(data)}, true
	case ExternalFeedItem:
		return FeedItemContent{Payload: json.RawMessage(data)}, true
	}
	return nil, false
}
