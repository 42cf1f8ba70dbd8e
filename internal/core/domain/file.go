package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotRegular is returned for directories, sockets, devices and the like
	ErrNotRegular = errors.New("not a regular file")

	// ErrIgnored marks files filtered out by hidden-file or ignore-pattern rules
	ErrIgnored = errors.New("file ignored")

	// ErrLocked is returned when another instance holds the archive lock
	ErrLocked = errors.New("archive is locked by another rfm process")
)

// FileRecord describes an incoming file as observed on disk.
// It is rebuilt on every run and never persisted.
type FileRecord struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Stem    string    `json:"stem"`
	Ext     string    `json:"ext"` // lower-case, without the dot
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// NewFileRecord stats path and builds a record for it
func NewFileRecord(path string) (FileRecord, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileRecord{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return FileRecord{}, err
	}
	if !info.Mode().IsRegular() {
		return FileRecord{}, fmt.Errorf("%s: %w", abs, ErrNotRegular)
	}

	return RecordFromInfo(abs, info), nil
}

// RecordFromInfo builds a record from an already obtained FileInfo
func RecordFromInfo(path string, info fs.FileInfo) FileRecord {
	name := filepath.Base(path)
	stem, ext := SplitName(name)
	return FileRecord{
		Path:    path,
		Name:    name,
		Stem:    stem,
		Ext:     ext,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// Dir returns the directory containing the file
func (r FileRecord) Dir() string {
	return filepath.Dir(r.Path)
}

// SplitName splits a base name into stem and lower-cased extension.
// "Paper.Final.PDF" -> ("Paper.Final", "pdf"), ".bashrc" -> (".bashrc", "")
func SplitName(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsHidden reports whether a base name is a dotfile or an editor lock file
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}
