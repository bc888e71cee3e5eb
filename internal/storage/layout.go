// Package storage lays out the per-job working directories on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidJobID is returned for ids that could escape the storage root.
var ErrInvalidJobID = errors.New("invalid job id")

const (
	defaultInputName = "track.mp3"
	outputName       = "montage.mp4"
)

// Layout places every job under <root>/jobs/<id>.
type Layout struct {
	Root string
}

// NewLayout returns a layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// JobDir returns the working directory of a job.
func (l Layout) JobDir(id string) string {
	return filepath.Join(l.Root, "jobs", id)
}

// ClipDir returns the directory generated clips are written to.
func (l Layout) ClipDir(id string) string {
	return filepath.Join(l.JobDir(id), "clips")
}

// OutputPath returns the path of the final rendered video.
func (l Layout) OutputPath(id string) string {
	return filepath.Join(l.JobDir(id), "output", outputName)
}

// SaveInput copies an uploaded audio file into the job's input directory and
// returns its path. Only the base name of filename is kept.
func (l Layout) SaveInput(id, filename string, r io.Reader) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		name = defaultInputName
	}
	dir := filepath.Join(l.JobDir(id), "input")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create input dir: %w", err)
	}
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create input file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("write input file: %w", err)
	}
	return path, nil
}

// Remove deletes everything stored for a job. Removing a missing job is not
// an error.
func (l Layout) Remove(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return os.RemoveAll(l.JobDir(id))
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%q: %w", id, ErrInvalidJobID)
	}
	return nil
}
