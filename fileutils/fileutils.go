package fileutils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename, replacing any existing file at path.
func WriteFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp_write_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// CopyFileIfNew copies src into dstDir under its basename, first write wins.
// An existing destination is left untouched and reported as copied=false.
// O_EXCL makes the claim on the destination atomic, so concurrent stagers
// cannot clobber each other.
func CopyFileIfNew(src, dstDir string) (dstPath string, copied bool, err error) {
	if src == "" || dstDir == "" {
		return "", false, errors.New("CopyFileIfNew: empty path")
	}

	dstPath = filepath.Join(dstDir, filepath.Base(src))
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", false, fmt.Errorf("CopyFileIfNew: mkdir dstDir: %w", err)
	}

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return dstPath, false, nil
		}
		return "", false, fmt.Errorf("CopyFileIfNew: create dst: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return "", false, fmt.Errorf("CopyFileIfNew: open src: %w", err)
	}
	defer in.Close()

	if _, err := io.Copy(dst, in); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return "", false, fmt.Errorf("CopyFileIfNew: copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", false, fmt.Errorf("CopyFileIfNew: close dst: %w", err)
	}
	return dstPath, true, nil
}

// CreateFileIfNew writes contents to dir/name unless that file already exists.
// An existing file is left untouched and reported as created=false.
func CreateFileIfNew(dir, name string, contents []byte) (path string, created bool, err error) {
	if dir == "" || name == "" {
		return "", false, errors.New("CreateFileIfNew: empty path")
	}

	path = filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("CreateFileIfNew: mkdir dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("CreateFileIfNew: create: %w", err)
	}
	if _, err := f.Write(contents); err != nil {
		_ = f.Close()
		return "", false, fmt.Errorf("CreateFileIfNew: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("CreateFileIfNew: close: %w", err)
	}
	return path, true, nil
}
