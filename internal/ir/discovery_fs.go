package ir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

var documentExtensions = map[string]bool{".graphql": true, ".gql": true}

// FileSystemDiscovery implements Discovery for query documents on disk
type FileSystemDiscovery struct {
	docFilePaths map[DocumentID]string
	docMetas     []*DocumentMetadata
}

// NewFileSystemDiscovery walks rootDir for GraphQL documents. Paths listed in
// exclude (typically the schema files) are skipped.
func NewFileSystemDiscovery(ctx context.Context, rootDir string, exclude ...string) (*FileSystemDiscovery, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("documents root cannot be empty")
	}
	skip := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		if abs, err := filepath.Abs(p); err == nil {
			skip[abs] = true
		}
	}
	discovery := &FileSystemDiscovery{
		docFilePaths: make(map[DocumentID]string),
	}

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !documentExtensions[filepath.Ext(d.Name())] {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && skip[abs] {
			return nil
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %q: %w", path, err)
		}
		id := DocumentID(filepath.ToSlash(relPath))
		discovery.docFilePaths[id] = path
		discovery.docMetas = append(discovery.docMetas, &DocumentMetadata{ID: id, FilePath: relPath})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk documents root %q: %w", rootDir, err)
	}
	sort.Slice(discovery.docMetas, func(i, j int) bool { return discovery.docMetas[i].ID < discovery.docMetas[j].ID })
	return discovery, nil
}

// ListDocuments returns the documents found under the root, sorted by path
func (d *FileSystemDiscovery) ListDocuments(ctx context.Context) ([]*DocumentMetadata, error) {
	return append([]*DocumentMetadata(nil), d.docMetas...), nil
}

// ReadDocument reads the GraphQL source for a given document
func (d *FileSystemDiscovery) ReadDocument(ctx context.Context, id DocumentID) (string, error) {
	fp, ok := d.docFilePaths[id]
	if !ok {
		return "", fmt.Errorf("document %q not found", id)
	}
	content, err := os.ReadFile(fp)
	if err != nil {
		return "", fmt.Errorf("failed to read document %q: %w", id, err)
	}
	return string(content), nil
}
