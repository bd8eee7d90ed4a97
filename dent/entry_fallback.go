// entry_fallback.go - best-effort directory-entry adapter for non-unix
//
// (c) 2024- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

//go:build !unix

package dent

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Context carries no unix-specific scratch state on this build; it
// exists so call sites compile identically across platforms.
type Context struct{}

// entry is the non-unix fallback. Device/inode numbers aren't
// available through the stdlib on these platforms, so Fingerprint
// falls back to fs.SameFile semantics, which is what the stdlib itself
// uses internally for this same purpose (see os.SameFile).
type entry struct {
	path string
	name string

	typeKnown bool
	ftype     FileType
}

var _ Entry = (*entry)(nil)

func NewRootEntry(path string) (Entry, error) {
	return &entry{path: path, name: filepath.Base(path)}, nil
}

func newChildEntry(parent string, de os.DirEntry) *entry {
	e := &entry{path: filepath.Join(parent, de.Name()), name: de.Name()}
	m := de.Type()
	if m&fs.ModeIrregular == 0 {
		e.typeKnown = true
		e.ftype = FileTypeFromMode(m)
	}
	return e
}

func (e *entry) Path() string     { return e.path }
func (e *entry) FileName() string { return e.name }

func (e *entry) FileType(follow bool, ctx *Context) (FileType, error) {
	if !follow && e.typeKnown {
		return e.ftype, nil
	}
	fi, err := e.Metadata(follow, ctx)
	if err != nil {
		return TypeUnknown, err
	}
	ft := FileTypeFromMode(fi.Mode())
	if !follow {
		e.typeKnown = true
		e.ftype = ft
	}
	return ft, nil
}

func (e *entry) Metadata(follow bool, ctx *Context) (fs.FileInfo, error) {
	if follow {
		return os.Stat(e.path)
	}
	return os.Lstat(e.path)
}

func (e *entry) ReadDir(ctx *Context) (RawReadDir, error) {
	fd, err := os.Open(e.path)
	if err != nil {
		return nil, err
	}
	return &fallbackReadDir{parent: e.path, fd: fd}, nil
}

func (e *entry) Fingerprint(ctx *Context) (Fingerprint, error) {
	fi, err := e.Metadata(true, ctx)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{fi: fi}, nil
}

func (e *entry) DeviceNum(ctx *Context) (DeviceNum, error) {
	// Not available without a platform-specific syscall; every entry
	// reports the same (zero) device, so the "stay on one filesystem"
	// option is a no-op here rather than silently wrong.
	return 0, nil
}

func (e *entry) ToParts(follow bool, ctx *Context) (Parts, error) {
	fi, err := e.Metadata(follow, ctx)
	if err != nil {
		return Parts{}, err
	}
	// Ino/Dev/Rdev/Uid/Gid/Nlink aren't available without a
	// platform-specific syscall on this build; left at zero, same as
	// DeviceNum above.
	return Parts{Path: e.path, FileName: e.name, Meta: fi}, nil
}

type fallbackReadDir struct {
	parent  string
	fd      *os.File
	entries []os.DirEntry
	idx     int
	loaded  bool
}

func (r *fallbackReadDir) Next(ctx *Context) (Entry, error, bool) {
	if !r.loaded {
		ents, err := r.fd.ReadDir(-1)
		if err != nil {
			r.loaded = true
			return nil, err, true
		}
		r.entries = ents
		r.loaded = true
	}
	if r.idx >= len(r.entries) {
		return nil, nil, false
	}
	de := r.entries[r.idx]
	r.idx++
	return newChildEntry(r.parent, de), nil, true
}

func (r *fallbackReadDir) Close() error {
	return r.fd.Close()
}
