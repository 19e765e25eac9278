package remote

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// cursorConn is the slice of a stateful-cursor control connection the
// recursive delete walks against. The FTP adapter provides it over its
// client handle; tests provide fakes.
type cursorConn interface {
	currentDir() (string, error)
	changeDir(path string) error
	listLines(path string) ([]string, error)
	deleteFile(path string) error
	removeDir(path string) error
}

// pathConn is the stateless-path counterpart: every call addresses the
// server by absolute path.
type pathConn interface {
	stat(path string) (os.FileInfo, error)
	readDir(path string) ([]os.FileInfo, error)
	remove(path string) error
	removeDirectory(path string) error
}

// deleteTreeStateful removes a directory tree over a shared server-side
// cursor. The protocol has no recursive remove, so it tries a plain remove
// first (an empty directory needs nothing else), and on a "not empty"
// failure walks the tree itself: save the cursor, enter the target, list
// it, restore the cursor before recursing (the cursor is shared mutable
// state), then delete files before directories so a partial failure leaves
// the smallest possible remainder. Not transactional; the returned error
// describes which entries survived.
func deleteTreeStateful(c cursorConn, remotePath string) error {
	remotePath = cleanDirPath(remotePath)

	rmErr := c.removeDir(remotePath)
	if rmErr == nil {
		return nil
	}
	if !isNotEmpty(rmErr) {
		return fmt.Errorf("cannot delete directory %s: %w", remotePath, rmErr)
	}

	saved, err := c.currentDir()
	if err != nil || saved == "" {
		saved = "/"
	}
	if err := c.changeDir(remotePath); err != nil {
		return fmt.Errorf("cannot access directory %s: %w", remotePath, err)
	}
	lines, listErr := c.listLines("")
	// Restore the cursor before any recursion; recursive calls will move it
	// again and callers assume cursor stability across top-level calls.
	if err := c.changeDir(saved); err != nil {
		_ = c.changeDir(parentDir(remotePath))
	}
	if listErr != nil {
		return fmt.Errorf("cannot list directory %s: %w", remotePath, listErr)
	}

	entries := ParseLines(lines)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return !entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})

	var errs *multierror.Error
	for _, e := range entries {
		full := joinRemote(remotePath, e.Name)
		if e.IsDir {
			if err := deleteTreeStateful(c, full); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("subdirectory %q: %w", e.Name, err))
			}
			continue
		}
		if err := c.deleteFile(full); err != nil {
			if relErr := deleteByRelativeName(c, full, e.Name, saved); relErr != nil {
				errs = multierror.Append(errs, fmt.Errorf("file %q: %w", e.Name, err))
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("partially deleted %s: %w", remotePath, err)
	}

	if err := c.removeDir(remotePath); err != nil {
		return fmt.Errorf("deleted contents but failed to remove %s: %w", remotePath, err)
	}
	return nil
}

// deleteByRelativeName is the fallback for servers that refuse deletes by
// absolute path: change into the entry's parent, delete by bare name, then
// restore the cursor.
func deleteByRelativeName(c cursorConn, fullPath, name, restoreTo string) error {
	parent := parentDir(fullPath)
	if err := c.changeDir(parent); err != nil {
		return err
	}
	err := c.deleteFile(name)
	if restoreErr := c.changeDir(restoreTo); restoreErr != nil && err == nil {
		err = restoreErr
	}
	return err
}

// deleteTreeStateless removes a directory tree bottom-up over path-addressed
// calls: children are enumerated and removed (files before subdirectories),
// then the emptied directory itself. A path that turns out to be a file gets
// a plain remove, and a directory whose listing fails gets one plain remove
// attempt in case it already became empty through a race.
func deleteTreeStateless(c pathConn, target string) error {
	target = cleanDirPath(target)

	if fi, err := c.stat(target); err == nil && !fi.IsDir() {
		if err := c.remove(target); err != nil {
			return fmt.Errorf("delete %s: %w", target, err)
		}
		return nil
	}

	infos, err := c.readDir(target)
	if err != nil {
		if rmErr := c.removeDirectory(target); rmErr == nil {
			return nil
		}
		return fmt.Errorf("cannot list directory %s: %w", target, err)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].IsDir() != infos[j].IsDir() {
			return !infos[i].IsDir()
		}
		return infos[i].Name() < infos[j].Name()
	})

	var errs *multierror.Error
	for _, fi := range infos {
		name := fi.Name()
		if name == "." || name == ".." {
			continue
		}
		full := joinRemote(target, name)
		if fi.IsDir() {
			if err := deleteTreeStateless(c, full); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("subdirectory %q: %w", name, err))
			}
			continue
		}
		if err := c.remove(full); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("file %q: %w", name, err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("partially deleted %s: %w", target, err)
	}

	if err := c.removeDirectory(target); err != nil {
		return fmt.Errorf("deleted contents but failed to remove %s: %w", target, err)
	}
	return nil
}
