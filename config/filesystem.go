package config

import (
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/i2pportal/errors"
	"github.com/sirupsen/logrus"
)

// OwnerLookup resolves a user name to its uid and primary gid.
type OwnerLookup func(name string) (uid, gid int, err error)

// LookupOwner resolves name through the system user database.
func LookupOwner(name string) (int, int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, 0, err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, err
	}
	return uid, gid, nil
}

// PrepareOptions controls Prepare.
type PrepareOptions struct {
	// Privileged enables recursive ownership changes to the session identity.
	Privileged bool
	// Lookup defaults to LookupOwner.
	Lookup OwnerLookup
	// Exclusions default to DefaultSeedExclusions.
	Exclusions []string
}

// Prepare creates the persisted state tree, seeds first-run content, ensures the
// browser proxy prefs and, when privileged, hands the tree to the identity.
// Directory creation is idempotent. Unwritable paths are fatal; ownership
// failures are logged and ignored.
func (s *Session) Prepare(logger *logrus.Entry, opts PrepareOptions) error {
	if opts.Lookup == nil {
		opts.Lookup = LookupOwner
	}
	if opts.Exclusions == nil {
		opts.Exclusions = DefaultSeedExclusions
	}

	if err := os.MkdirAll(s.ConfigRoot, 0755); err != nil {
		return errors.Filesystem(s.ConfigRoot, err)
	}

	// Seeding runs before the remaining directories exist so that a fresh router
	// config dir is still empty when it is checked.
	seeds := []struct{ src, dst string }{
		{filepath.Join(s.SeedRoot, "profile"), s.BrowserProfile},
		{filepath.Join(s.SeedRoot, "i2p"), s.RouterConfigDir},
	}
	for _, seed := range seeds {
		copied, err := Seed(seed.src, seed.dst, opts.Exclusions)
		if err != nil {
			return errors.Filesystem(seed.dst, err)
		}
		if copied {
			logger.WithFields(logrus.Fields{"from": seed.src, "to": seed.dst}).Info("Seeded first-run content")
		} else {
			logger.WithField("path", seed.dst).Debug("Seed skipped")
		}
	}

	for _, dir := range s.stateDirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Filesystem(dir, err)
		}
	}

	changed, err := EnsurePrefs(s.ProfilePrefsFile(), ProxyPrefs)
	if err != nil {
		return errors.Filesystem(s.ProfilePrefsFile(), err)
	}
	if changed {
		logger.WithField("path", s.ProfilePrefsFile()).Info("Synchronized browser proxy preferences")
	}

	if opts.Privileged {
		s.chownTree(logger, opts.Lookup)
	}
	return nil
}

func (s *Session) stateDirs() []string {
	return []string{s.RouterConfigDir, s.RouterLogDir, s.RouterPIDDir, s.BrowserProfile}
}

// ownershipRoots returns the config root plus any state dir that lives outside it.
func (s *Session) ownershipRoots() []string {
	roots := []string{s.ConfigRoot}
	for _, dir := range s.stateDirs() {
		if !within(s.ConfigRoot, dir) {
			roots = append(roots, dir)
		}
	}
	return roots
}

func (s *Session) chownTree(logger *logrus.Entry, lookup OwnerLookup) {
	uid, gid, err := lookup(s.Identity)
	if err != nil {
		logger.WithError(err).WithField("user", s.Identity).Warn("Cannot resolve identity, leaving ownership unchanged")
		return
	}

	failures := 0
	for _, root := range s.ownershipRoots() {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				failures++
				return nil
			}
			if err := os.Lchown(path, uid, gid); err != nil {
				failures++
				if failures == 1 {
					logger.WithError(err).WithField("path", path).Warn("Failed to set ownership")
				}
			}
			return nil
		})
	}
	if failures > 1 {
		logger.WithField("failures", failures).Warn("Ownership could not be set on some paths")
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
