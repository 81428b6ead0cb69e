package utils

import (
	"os"
	"path/filepath"
)

// LocalDocumentStore writes documents under a base directory served from
// the public folder and returns their URL path.
type LocalDocumentStore struct {
	BaseDir string
}

func NewLocalDocumentStore(baseDir string) *LocalDocumentStore {
	return &LocalDocumentStore{BaseDir: baseDir}
}

// Write stores the document and returns its serving location.
func (s *LocalDocumentStore) Write(filename string, data []byte) (string, error) {
	// Create destination directory if it doesn't exist
	if err := os.MkdirAll(s.BaseDir, 0755); err != nil {
		return "", err
	}

	filePath := filepath.Join(s.BaseDir, filename)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", err
	}

	return "/certificates/" + filename, nil
}
