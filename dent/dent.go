// dent.go - filesystem capability adapter used by the walk engine
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

// Package dent defines the narrow filesystem capability that the walk
// engine needs from an entry: enough to tell a directory from a file,
// read its children, and recognize when two entries name the same
// underlying object (for symlink-loop detection). It is the thing the
// engine depends on instead of depending on os/io-fs directly, so the
// engine stays testable and so a non-default adapter (chroot jail,
// virtual fs, a mock for tests) can stand in for the real filesystem.
package dent

import (
	"io/fs"
)

// FileType is a coarse, cheap-to-cache classification of a directory
// entry. It deliberately mirrors the handful of distinctions the engine
// actually branches on - whether to recurse, whether to treat an entry
// as a symlink candidate - rather than the full fs.FileMode bit space.
type FileType uint8

const (
	TypeUnknown FileType = iota
	TypeFile
	TypeDir
	TypeSymlink
	TypeOther
)

func (t FileType) IsDir() bool     { return t == TypeDir }
func (t FileType) IsFile() bool    { return t == TypeFile }
func (t FileType) IsSymlink() bool { return t == TypeSymlink }

func (t FileType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDir:
		return "dir"
	case TypeSymlink:
		return "symlink"
	case TypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// FileTypeFromMode classifies a fs.FileMode the way the engine wants it.
func FileTypeFromMode(m fs.FileMode) FileType {
	switch {
	case m&fs.ModeSymlink != 0:
		return TypeSymlink
	case m.IsDir():
		return TypeDir
	case m.IsRegular():
		return TypeFile
	default:
		return TypeOther
	}
}

// Fingerprint identifies the underlying object an Entry names, so the
// engine can tell "same inode reached by two paths" from "two distinct
// directories that merely share a name". On unix this is the
// device+inode pair; everywhere else it falls back to os.SameFile
// semantics over the cached fs.FileInfo.
type Fingerprint struct {
	dev uint64
	ino uint64
	fi  fs.FileInfo
}

// Equal reports whether two fingerprints name the same filesystem object.
func (f Fingerprint) Equal(o Fingerprint) bool {
	if f.fi != nil && o.fi != nil {
		return fs.SameFile(f.fi, o.fi)
	}
	return f.dev == o.dev && f.ino == o.ino && (f.dev != 0 || f.ino != 0)
}

// Valid reports whether the fingerprint carries any identity at all.
func (f Fingerprint) Valid() bool {
	return f.fi != nil || f.dev != 0 || f.ino != 0
}

// DeviceNum identifies the filesystem (mount) an entry lives on, used
// for the engine's "don't cross mount points" option.
type DeviceNum uint64

// Parts is the bundle of facts ToParts extracts from an Entry in one
// shot, mirroring the teacher's Statm/Lstatm "fill caller-supplied
// struct in a single syscall" convention so a content processor doesn't
// re-stat what the engine already paid to learn. The fields beyond Meta
// are the ones fs.FileInfo doesn't portably expose but a content
// processor building fio.Info still needs; on the non-unix fallback
// adapter they are left at their zero value (same graceful-degradation
// idiom as DeviceNum there).
type Parts struct {
	Path     string
	FileName string
	Meta     fs.FileInfo

	Ino, Dev, Rdev uint64
	Uid, Gid       uint32
	Nlink          uint32
}

// Entry is the capability a directory entry must offer the walk engine.
// A concrete implementation wraps either the walk root (constructed
// from a path the caller gave us) or a child discovered by reading a
// parent directory.
type Entry interface {
	// Path returns the entry's full path relative to the process cwd
	// (or absolute, if the walk root was given as an absolute path).
	Path() string

	// FileName returns the base name of the entry.
	FileName() string

	// FileType returns the entry's type, following the symlink when
	// follow is true. Implementations should cache the unfollowed
	// answer since the engine asks for it often.
	FileType(follow bool, ctx *Context) (FileType, error)

	// Metadata returns the entry's fs.FileInfo, following the symlink
	// when follow is true.
	Metadata(follow bool, ctx *Context) (fs.FileInfo, error)

	// ReadDir opens this entry as a directory for iteration. Callers
	// must Close the returned RawReadDir.
	ReadDir(ctx *Context) (RawReadDir, error)

	// Fingerprint returns the entry's filesystem identity, following
	// symlinks (used for loop detection, which only makes sense
	// post-resolution).
	Fingerprint(ctx *Context) (Fingerprint, error)

	// DeviceNum returns the device number of the filesystem this entry
	// lives on.
	DeviceNum(ctx *Context) (DeviceNum, error)

	// ToParts extracts the fields a content processor typically wants,
	// in one call, following symlinks when follow is true.
	ToParts(follow bool, ctx *Context) (Parts, error)
}

// RawReadDir is a single open directory-read handle: one Next() call
// per child, in whatever order the OS hands them back (the engine
// applies its own ordering afterward).
type RawReadDir interface {
	// Next returns the next child, or (nil, nil, false) at end of
	// directory. A non-nil error means this one child entry could not
	// be built (e.g. stat failure mid-read); the iterator is still
	// usable afterward unless the error came from the directory handle
	// itself.
	Next(ctx *Context) (Entry, error, bool)

	// Close releases the underlying OS directory handle.
	Close() error
}
