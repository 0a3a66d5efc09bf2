// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gitp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/karrick/godirwalk"
)

// IsRegular is true if name is a regular file.
func IsRegular(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fi.IsDir() {
		return false, fmt.Errorf("%q is a directory, should be a file", name)
	}
	return true, nil
}

// IsDir is true if name is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !fi.IsDir() {
		return false, fmt.Errorf("%q is not a directory", name)
	}
	return true, nil
}

// IsEmptyDirOrNotExist is true if name is a directory and is empty, or
// doesn't exist. Returns an error when name is a file or on other fs/io
// errors.
func IsEmptyDirOrNotExist(name string) (bool, error) {
	entries, err := os.ReadDir(name)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}

// isRealDir reports whether name is a directory and not a symlink (spec
// §4.3), the distinction the State Reconciler uses to tell a materialized
// clone apart from a materialized link.
func isRealDir(name string) (bool, error) {
	fi, err := os.Lstat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return false, nil
	}
	return fi.IsDir(), nil
}

// regexCache avoids recompiling the same link_filter pattern on every
// recursive visit.
var (
	regexCacheMu sync.Mutex
	regexCache   = map[string]*regexp.Regexp{}
)

func compileRegex(pattern string) (*regexp.Regexp, error) {
	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()
	if re, ok := regexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache[pattern] = re
	return re, nil
}

// newestSubdir returns the most recently modified direct subdirectory of
// dir whose name matches filter (nil filter matches everything), or ""
// if dir has no matching subdirectory (spec §4.3).
func newestSubdir(dir string, filter *regexp.Regexp) (string, error) {
	entries, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", NewFsError("readdir", dir, err)
	}

	var best string
	var bestTime time.Time
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if filter != nil && !filter.MatchString(e.Name()) {
			continue
		}
		fi, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if best == "" || fi.ModTime().After(bestTime) {
			best = e.Name()
			bestTime = fi.ModTime()
		}
	}
	return best, nil
}

// resolveLink composes entry.Link with root (the directory containing the
// manifest that declares entry) and, when LinkNewest is set, descends into
// the most recently modified matching subdirectory. When strict is true, a
// link target that cannot be resolved (missing container, no matching
// subdirectory) is a hard error; otherwise it returns "".
func resolveLink(root string, entry *RepoEntry, strict bool) (string, error) {
	target := entry.Link
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	if !entry.LinkNewest {
		return target, nil
	}

	var filter *regexp.Regexp
	if entry.LinkFilter != "" {
		re, err := compileRegex(entry.LinkFilter)
		if err != nil {
			return "", Wrapf(err, "compiling link_filter %q", entry.LinkFilter)
		}
		filter = re
	}

	sub, err := newestSubdir(target, filter)
	if err != nil {
		return "", err
	}
	if sub == "" {
		if strict {
			return "", NewFsError("resolve-link", target, fmt.Errorf("no matching subdirectory"))
		}
		return "", nil
	}
	return filepath.Join(target, sub), nil
}

// gitignoreAdd appends entry to the .gitignore in dir, creating it if
// absent, unless an identical line is already present (idempotent add per
// spec §4.3).
func gitignoreAdd(dir, entry string) error {
	path := filepath.Join(dir, ".gitignore")
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if l == entry {
			return nil
		}
	}
	lines = append(lines, entry)
	return writeLines(path, lines)
}

// gitignoreRemove deletes every line equal to entry from the .gitignore in
// dir. A missing .gitignore is not an error.
func gitignoreRemove(dir, entry string) error {
	path := filepath.Join(dir, ".gitignore")
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	out := lines[:0]
	for _, l := range lines {
		if l != entry {
			out = append(out, l)
		}
	}
	return writeLines(path, out)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewFsError("open", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, NewFsError("read", path, err)
	}
	return lines, nil
}

func writeLines(path string, lines []string) error {
	if len(lines) == 0 {
		if _, err := os.Stat(path); err == nil {
			if err := os.Remove(path); err != nil {
				return NewFsError("remove", path, err)
			}
		}
		return nil
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return NewFsError("write", path, err)
	}
	return nil
}

// renameWithFallback attempts to rename a file or directory, but falls back
// to copying in the event of a cross-device link error. If the fallback
// copy succeeds, src is still removed, emulating normal rename behavior.
func renameWithFallback(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if runtime.GOOS == "windows" && fi.IsDir() {
		if err := CopyDir(src, dest); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}

	err = os.Rename(src, dest)
	if err == nil {
		return nil
	}

	terr, ok := err.(*os.LinkError)
	if !ok {
		return err
	}

	var cerr error
	if terr.Err == syscall.EXDEV {
		if fi.IsDir() {
			cerr = CopyDir(src, dest)
		} else {
			cerr = CopyFile(src, dest)
		}
	} else if runtime.GOOS == "windows" {
		noerr, ok := terr.Err.(syscall.Errno)
		if ok && noerr == 0x11 {
			cerr = CopyFile(src, dest)
		}
	} else {
		return terr
	}

	if cerr != nil {
		return cerr
	}

	return os.RemoveAll(src)
}

// CopyDir takes in a directory and copies its contents to the destination.
// It preserves the file mode on files as well.
func CopyDir(src string, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, fi.Mode()); err != nil {
		return err
	}

	dir, err := os.Open(src)
	if err != nil {
		return err
	}
	defer dir.Close()

	objects, err := dir.Readdir(-1)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		if obj.Mode()&os.ModeSymlink != 0 {
			continue
		}

		srcfile := filepath.Join(src, obj.Name())
		destfile := filepath.Join(dest, obj.Name())

		if obj.IsDir() {
			if err := CopyDir(srcfile, destfile); err != nil {
				return err
			}
			continue
		}

		if err := CopyFile(srcfile, destfile); err != nil {
			return err
		}
	}

	return nil
}

// CopyFile copies a file from one place to another with the permission
// bits preserved as well.
func CopyFile(src string, dest string) error {
	srcfile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcfile.Close()

	destfile, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer destfile.Close()

	if _, err := io.Copy(destfile, srcfile); err != nil {
		return err
	}

	srcinfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.Chmod(dest, srcinfo.Mode())
}
