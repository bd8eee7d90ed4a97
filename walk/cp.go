// cp.go - the content-processor capability and its default instantiation
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

package walk

import (
	fio "github.com/nvksv/walkdir2"
	"github.com/nvksv/walkdir2/dent"
)

// ContentProcessor converts a raw adapter entry into the caller's item
// type. AllowPush gates descent before any conversion happens, and
// Process/ProcessRoot build the item; the same entry may be converted
// more than once (at its Entry position, again as the Parent of its own
// OpenDir, and again as collected Content for OpenDirWithContent). A conversion that
// returns ok=false behaves, at the engine's pre-descent Entry emission,
// like the Open Question in spec.md §9 resolves it: the descent is
// cancelled.
type ContentProcessor[Item any] interface {
	// ProcessRoot converts the walk root itself.
	ProcessRoot(e dent.Entry, follow, isDir bool, depth int, ctx *dent.Context) (Item, bool)

	// Process converts a non-root entry.
	Process(e dent.Entry, follow, isDir bool, depth int, ctx *dent.Context) (Item, bool)

	// AllowPush gates descent into a directory entry before any
	// conversion is attempted.
	AllowPush(e dent.Entry) bool

	// IsDir reports whether a converted item represents a directory, so
	// a custom Item type (which might not expose directoryness the same
	// way) can answer it itself. The engine does not call it:
	// OpenDirWithContent's filter operates on records and uses the
	// record's own isDir.
	IsDir(item Item) bool
}

// DirEntryContentProcessor is the default content processor: it
// produces *fio.Info, the root package's normalized file metadata type
// (stat plus xattr), grounded on the teacher's own Stat/Lstat
// convention.
type DirEntryContentProcessor struct{}

var _ ContentProcessor[*fio.Info] = DirEntryContentProcessor{}

func (DirEntryContentProcessor) ProcessRoot(e dent.Entry, follow, isDir bool, depth int, ctx *dent.Context) (*fio.Info, bool) {
	return statInfo(e, follow, ctx)
}

func (DirEntryContentProcessor) Process(e dent.Entry, follow, isDir bool, depth int, ctx *dent.Context) (*fio.Info, bool) {
	return statInfo(e, follow, ctx)
}

func (DirEntryContentProcessor) AllowPush(e dent.Entry) bool {
	return true
}

func (DirEntryContentProcessor) IsDir(item *fio.Info) bool {
	return item != nil && item.Mode().IsDir()
}

// statInfo builds a *fio.Info from the adapter's own ToParts, which the
// readdir pass (or the root's own open) already paid the stat(2)/
// lstat(2) cost for - no second stat by path. Xattr is a separate
// syscall regardless of ToParts, exactly as it was for the teacher's
// own Stat/Lstat (GetXattr/LgetXattr is not part of stat(2)).
func statInfo(e dent.Entry, follow bool, ctx *dent.Context) (*fio.Info, bool) {
	parts, err := e.ToParts(follow, ctx)
	if err != nil {
		return nil, false
	}

	var (
		x    fio.Xattr
		xerr error
	)
	if follow {
		x, xerr = fio.GetXattr(parts.Path)
	} else {
		x, xerr = fio.LgetXattr(parts.Path)
	}
	if xerr != nil {
		return nil, false
	}

	info := &fio.Info{
		Ino:   parts.Ino,
		Siz:   parts.Meta.Size(),
		Dev:   parts.Dev,
		Rdev:  parts.Rdev,
		Mod:   parts.Meta.Mode(),
		Uid:   parts.Uid,
		Gid:   parts.Gid,
		Nlink: parts.Nlink,
		Mtim:  parts.Meta.ModTime(),
		Xattr: x,
	}
	info.SetPath(parts.Path)
	return info, true
}
