package config

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/patternmatcher"
)

// DefaultSeedExclusions are runtime files that must never be copied from a
// skeleton, in .dockerignore syntax.
var DefaultSeedExclusions = []string{
	"**/.parentlock",
	"**/parent.lock",
	"**/lock",
	"**/*.pid",
	"**/*.sqlite-wal",
	"**/*.sqlite-shm",
}

// Seed copies the src tree into dst when dst is absent or empty. Existing
// content is never overwritten. It reports whether anything was copied. A
// missing src is not an error.
func Seed(src, dst string, exclusions []string) (bool, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("seed source %s is not a directory", src)
	}

	empty, err := isEmptyDir(dst)
	if err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}

	matcher, err := patternmatcher.New(exclusions)
	if err != nil {
		return false, fmt.Errorf("invalid seed exclusion pattern: %w", err)
	}

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if rel != "." {
			excluded, err := matcher.MatchesOrParentMatches(rel)
			if err != nil {
				return err
			}
			if excluded {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return nil
		}
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// isEmptyDir reports true for an absent path or a directory with no entries.
func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
