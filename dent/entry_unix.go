// entry_unix.go - unix directory-entry adapter, backed by x/sys/unix
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

//go:build unix

package dent

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// Context is scratch memory threaded through a walk so entries can fill
// a caller-supplied stat buffer instead of allocating one per call -
// the same convention as the root package's Statm/Lstatm.
type Context struct {
	stat unix.Stat_t
}

// entry is the unix implementation of Entry. The same struct serves
// both the walk root (constructed straight from a path) and a child
// discovered via ReadDir: the two differ only in how path/name were
// derived, not in how stat/readdir work.
type entry struct {
	path string
	name string

	typeKnown bool
	ftype     FileType
}

var _ Entry = (*entry)(nil)

// NewRootEntry adapts a user-supplied walk root path into an Entry.
func NewRootEntry(path string) (Entry, error) {
	return &entry{path: path, name: filepath.Base(path)}, nil
}

// newChildEntry builds an Entry for a name read out of parent's
// directory listing. d_type from getdents(2), when available, seeds
// the cached file type so common cases (regular file, directory) never
// need a second stat just to learn the type.
func newChildEntry(parent string, name string, dtype FileType, dtypeKnown bool) *entry {
	e := &entry{path: filepath.Join(parent, name), name: name}
	if dtypeKnown && dtype != TypeUnknown {
		e.typeKnown = true
		e.ftype = dtype
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
	var st *unix.Stat_t
	if ctx != nil {
		st = &ctx.stat
	} else {
		st = new(unix.Stat_t)
	}

	var err error
	if follow {
		err = unix.Stat(e.path, st)
	} else {
		err = unix.Lstat(e.path, st)
	}
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: e.path, Err: err}
	}
	return &statFileInfo{name: e.name, st: *st}, nil
}

func (e *entry) ReadDir(ctx *Context) (RawReadDir, error) {
	fd, err := os.Open(e.path)
	if err != nil {
		return nil, err
	}
	return &unixReadDir{parent: e.path, fd: fd}, nil
}

func (e *entry) Fingerprint(ctx *Context) (Fingerprint, error) {
	fi, err := e.Metadata(true, ctx)
	if err != nil {
		return Fingerprint{}, err
	}
	st := fi.(*statFileInfo).st
	return Fingerprint{dev: uint64(st.Dev), ino: uint64(st.Ino)}, nil
}

func (e *entry) DeviceNum(ctx *Context) (DeviceNum, error) {
	fi, err := e.Metadata(false, ctx)
	if err != nil {
		return 0, err
	}
	return DeviceNum(fi.(*statFileInfo).st.Dev), nil
}

func (e *entry) ToParts(follow bool, ctx *Context) (Parts, error) {
	fi, err := e.Metadata(follow, ctx)
	if err != nil {
		return Parts{}, err
	}
	// Dev/Ino/Rdev/Uid/Gid/Nlink are copied from the unix.Stat_t.
	// No timestamps are carried here beyond Meta.ModTime() (mtime);
	// atime and ctime are not part of Parts.
	st := fi.(*statFileInfo).st
	return Parts{
		Path:     e.path,
		FileName: e.name,
		Meta:     fi,
		Ino:      st.Ino,
		Dev:      uint64(st.Dev),
		Rdev:     uint64(st.Rdev),
		Uid:      st.Uid,
		Gid:      st.Gid,
		Nlink:    uint32(st.Nlink),
	}, nil
}

// unixReadDir reads a directory's children with os.File.ReadDir, then
// re-derives each entry's unix.Stat_t lazily through Entry.Metadata -
// ReadDir(-1) gives us the d_type hint for free, which is enough to
// answer most FileType questions without a second syscall.
type unixReadDir struct {
	parent  string
	fd      *os.File
	entries []os.DirEntry
	idx     int
	loaded  bool
}

func (r *unixReadDir) Next(ctx *Context) (Entry, error, bool) {
	if !r.loaded {
		ents, err := r.fd.ReadDir(-1)
		if err != nil {
			r.loaded = true
			return nil, fmt.Errorf("readdir %q: %w", r.parent, err), true
		}
		r.entries = ents
		r.loaded = true
	}
	if r.idx >= len(r.entries) {
		return nil, nil, false
	}
	de := r.entries[r.idx]
	r.idx++

	dtype, known := dTypeOf(de)
	return newChildEntry(r.parent, de.Name(), dtype, known), nil, true
}

func (r *unixReadDir) Close() error {
	return r.fd.Close()
}

// dTypeOf maps os.DirEntry.Type() (which the stdlib already filled from
// getdents d_type on platforms that support it) onto our FileType,
// without triggering the stdlib's own lazy Info() stat.
func dTypeOf(de os.DirEntry) (FileType, bool) {
	m := de.Type()
	if m&fs.ModeSymlink != 0 {
		return TypeSymlink, true
	}
	if m&fs.ModeIrregular != 0 {
		// d_type was DT_UNKNOWN (some filesystems, notably some
		// network/fuse mounts, never fill it in); let the caller stat.
		return TypeUnknown, false
	}
	if m.IsDir() {
		return TypeDir, true
	}
	if m == 0 {
		return TypeFile, true
	}
	return TypeOther, true
}

// statFileInfo adapts a raw unix.Stat_t to fs.FileInfo so callers that
// want the stdlib shape (content processors, fio.Info conversion) don't
// need to know about unix.Stat_t at all.
type statFileInfo struct {
	name string
	st   unix.Stat_t
}

var _ fs.FileInfo = (*statFileInfo)(nil)

func (s *statFileInfo) Name() string      { return s.name }
func (s *statFileInfo) Size() int64       { return s.st.Size }
func (s *statFileInfo) Mode() fs.FileMode { return unixModeToFs(s.st.Mode) }
func (s *statFileInfo) ModTime() time.Time {
	return time.Unix(int64(s.st.Mtim.Sec), int64(s.st.Mtim.Nsec))
}
func (s *statFileInfo) IsDir() bool { return s.Mode().IsDir() }
func (s *statFileInfo) Sys() any    { return &s.st }

func unixModeToFs(m uint32) fs.FileMode {
	fm := fs.FileMode(m & 0777)
	switch m & unix.S_IFMT {
	case unix.S_IFDIR:
		fm |= fs.ModeDir
	case unix.S_IFLNK:
		fm |= fs.ModeSymlink
	case unix.S_IFIFO:
		fm |= fs.ModeNamedPipe
	case unix.S_IFSOCK:
		fm |= fs.ModeSocket
	case unix.S_IFBLK:
		fm |= fs.ModeDevice
	case unix.S_IFCHR:
		fm |= fs.ModeDevice | fs.ModeCharDevice
	}
	return fm
}
