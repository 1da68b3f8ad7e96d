package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// PathExists reports whether anything (file, directory or dangling symlink)
// exists at path.
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// CopyFile copies a single file from src to dst, keeping its permissions.
func CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return err
	}

	destFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, sourceInfo.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	if err := destFile.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, sourceInfo.Mode().Perm())
}

// CopyDir recursively copies the directory src to dst. Symlinks are
// recreated rather than followed. dst must not exist yet.
func CopyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}
	if PathExists(dst) {
		return fmt.Errorf("%s already exists", dst)
	}
	return copyTree(src, dst, srcInfo.Mode().Perm())
}

func copyTree(src, dst string, perm os.FileMode) error {
	if err := os.Mkdir(dst, perm); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		info, err := entry.Info()
		if err != nil {
			return err
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(srcPath)
			if err != nil {
				return err
			}
			if err := os.Symlink(target, dstPath); err != nil {
				return err
			}
		case info.IsDir():
			if err := copyTree(srcPath, dstPath, info.Mode().Perm()); err != nil {
				return err
			}
		default:
			if err := CopyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// MoveDir moves the directory src to dst. When the two are on different
// filesystems the tree is copied and the source removed afterwards.
func MoveDir(src, dst string) error {
	if PathExists(dst) {
		return fmt.Errorf("%s already exists", dst)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := CopyDir(src, dst); err != nil {
		_ = os.RemoveAll(dst)
		return err
	}
	return os.RemoveAll(src)
}
