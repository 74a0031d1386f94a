// Package storage defines the file-system abstraction for content and output trees.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for tree file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the root).
	List(dir string) ([]models.ArticleMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the root).
	Delete(path string) error
}
