package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
)

// Workspace is the private temp directory of a single conversion request
type Workspace struct {
	ID     ulid.ULID
	Dir    string
	OutDir string // rasterizer output
}

// NewWorkspace creates root if needed and a fresh ULID named directory below it
func NewWorkspace(root string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("unable to create temp root %s: %w", root, err)
	}

	id := ulid.Make()
	dir := filepath.Join(root, id.String())
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("unable to create workspace: %w", err)
	}
	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0700); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("unable to create workspace output directory: %w", err)
	}

	return &Workspace{ID: id, Dir: dir, OutDir: outDir}, nil
}

// SaveUpload streams src into the workspace as <id>.pdf and returns the path
func (w *Workspace) SaveUpload(src io.Reader) (string, int64, error) {
	path := filepath.Join(w.Dir, w.ID.String()+".pdf")
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", 0, fmt.Errorf("unable to create upload file: %w", err)
	}
	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", written, fmt.Errorf("unable to write upload file: %w", err)
	}
	return path, written, nil
}

// Cleanup removes the workspace and everything in it, safe to call more than once
func (w *Workspace) Cleanup() error {
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("unable to remove workspace %s: %w", w.Dir, err)
	}
	return nil
}
