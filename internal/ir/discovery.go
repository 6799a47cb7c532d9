package ir

import (
	"context"
)

// DocumentID identifies one query document within a Discovery.
type DocumentID string

type DocumentMetadata struct {
	ID       DocumentID
	FilePath string
}

// Discovery locates the query documents to compile.
type Discovery interface {
	ListDocuments(ctx context.Context) ([]*DocumentMetadata, error)
	ReadDocument(ctx context.Context, id DocumentID) (string, error)
}
