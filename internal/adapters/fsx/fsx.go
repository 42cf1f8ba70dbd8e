// Package fsx implements the filesystem side of organizing: collision-free
// placement, content hashing and atomic small-file writes.
package fsx

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// swappable so tests can simulate EXDEV
var renameFunc = os.Rename

// maxSuffix bounds the collision loop
const maxSuffix = 10000

// Mode selects between moving and copying a file into place
type Mode int

const (
	ModeMove Mode = iota
	ModeCopy
)

func (m Mode) String() string {
	if m == ModeCopy {
		return "copy"
	}
	return "move"
}

// Placement is the result of Place
type Placement struct {
	Path      string // final location, or the existing identical file
	Hash      string // SHA-256 of the source content
	Duplicate bool   // identical content already existed, nothing written
	Unchanged bool   // the source already was the destination
	CrossDev  bool   // move fell back to copy+remove
}

// CrossDeviceError marks a rename that failed with EXDEV
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cross-device rename %q -> %q: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice reports whether err is a CrossDeviceError
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename wraps os.Rename and tags EXDEV failures
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// Place moves or copies src into dir under name.
//
// The directory is created if needed. A taken name gets "_1", "_2", ...
// appended before the extension; an existing file is never overwritten.
// The chosen name is reserved with O_EXCL before any data moves, so two
// placements racing for the same name end up with different names.
// When a file with identical content already exists under name or one of
// its suffixed variants, nothing is written and that path is returned with
// Duplicate set.
func Place(src, dir, name string, mode Mode) (Placement, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return Placement{}, err
	}
	if !srcInfo.Mode().IsRegular() {
		return Placement{}, fmt.Errorf("%s: not a regular file", src)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Placement{}, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	hash, err := HashFile(src)
	if err != nil {
		return Placement{}, err
	}

	if existing, same, err := findIdentical(dir, name, srcInfo, hash); err != nil {
		return Placement{}, err
	} else if existing != "" {
		return Placement{Path: existing, Hash: hash, Unchanged: same, Duplicate: !same}, nil
	}

	dst, err := reserve(dir, name)
	if err != nil {
		return Placement{}, err
	}

	placed := Placement{Path: dst, Hash: hash}
	switch mode {
	case ModeCopy:
		err = copyInto(src, dst, srcInfo)
	default:
		err = Rename(src, dst)
		if IsCrossDevice(err) {
			placed.CrossDev = true
			if err = copyInto(src, dst, srcInfo); err == nil {
				err = os.Remove(src)
			}
		}
	}
	if err != nil {
		if _, statErr := os.Stat(src); statErr == nil {
			_ = os.Remove(dst)
		}
		return Placement{}, fmt.Errorf("failed to %s %s: %w", mode, src, err)
	}

	_ = syncDirBestEffort(dir)
	return placed, nil
}

// CandidateName returns name with the n-th collision suffix; 0 returns name
func CandidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	if ext == name {
		ext = ""
	}
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
}

// reserve claims the first free candidate name with an empty placeholder
func reserve(dir, name string) (string, error) {
	for n := 0; n < maxSuffix; n++ {
		p := filepath.Join(dir, CandidateName(name, n))
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if err := f.Close(); err != nil {
				_ = os.Remove(p)
				return "", err
			}
			return p, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %s in %s after %d attempts", name, dir, maxSuffix)
}

// findIdentical looks for name and its suffixed variants holding the same
// content as src. same reports that the match is src itself.
func findIdentical(dir, name string, srcInfo fs.FileInfo, hash string) (path string, same bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, err
	}

	variant := variantPattern(name)
	var candidates []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !variant.MatchString(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		if os.SameFile(info, srcInfo) {
			return p, true, nil
		}
		if info.Size() == srcInfo.Size() {
			candidates = append(candidates, p)
		}
	}

	for _, p := range candidates {
		if h, err := HashFile(p); err == nil && h == hash {
			return p, false, nil
		}
	}
	return "", false, nil
}

func variantPattern(name string) *regexp.Regexp {
	ext := filepath.Ext(name)
	if ext == name {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)
	return regexp.MustCompile(`^` + regexp.QuoteMeta(stem) + `(?:_[0-9]+)?` + regexp.QuoteMeta(ext) + `$`)
}

// copyInto copies src over dst, fsyncs it and carries over mode and mtime
func copyInto(src, dst string, srcInfo fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Chmod(srcInfo.Mode().Perm()); err != nil && runtime.GOOS != "windows" {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
}

// HashFile returns the hex SHA-256 of a file's content
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// WriteFileAtomic writes data to dir/name through a temp file and rename.
// It refuses to replace an existing file and returns os.ErrExist instead.
func WriteFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s: %w", dst, os.ErrExist)
	} else if !os.IsNotExist(err) {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil && runtime.GOOS != "windows" {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := Rename(tmpName, dst); err != nil {
		return err
	}

	_ = syncDirBestEffort(dir)
	return nil
}

func syncDirBestEffort(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
