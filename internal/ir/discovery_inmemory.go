package ir

import (
	"context"
	"fmt"
)

type InMemoryDocument struct {
	// file path reported in violations and operation metadata
	Name    string
	Content string
}

// InMemoryDiscovery serves documents held in memory, in the order given.
type InMemoryDiscovery struct {
	docs     []*DocumentMetadata
	contents map[DocumentID]string
}

// NewInMemoryDiscovery creates a new InMemoryDiscovery instance
func NewInMemoryDiscovery(docs []InMemoryDocument) *InMemoryDiscovery {
	discovery := &InMemoryDiscovery{
		contents: make(map[DocumentID]string),
	}
	for _, doc := range docs {
		id := DocumentID(doc.Name)
		discovery.docs = append(discovery.docs, &DocumentMetadata{ID: id, FilePath: doc.Name})
		discovery.contents[id] = doc.Content
	}
	return discovery
}

// ListDocuments implements Discovery interface
func (d *InMemoryDiscovery) ListDocuments(ctx context.Context) ([]*DocumentMetadata, error) {
	return append([]*DocumentMetadata(nil), d.docs...), nil
}

// ReadDocument implements Discovery interface
func (d *InMemoryDiscovery) ReadDocument(ctx context.Context, id DocumentID) (string, error) {
	content, exists := d.contents[id]
	if !exists {
		return "", fmt.Errorf("document %q not found", id)
	}
	return content, nil
}
