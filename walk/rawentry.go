// rawentry.go - engine-side wrapper around an adapter entry
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
	"github.com/nvksv/walkdir2/dent"
)

type rawKind int

const (
	rawRoot rawKind = iota
	rawChild
)

// rawEntry wraps either a root or a child dent.Entry, caching the file
// type the engine last asked for and whether that type already reflects
// a followed symlink. A raw entry is immutable once constructed; "follow"
// produces a new raw entry rather than mutating this one.
type rawEntry struct {
	kind   rawKind
	ent    dent.Entry
	ftype  dent.FileType
	follow bool
}

func newRawRoot(e dent.Entry, ctx *dent.Context) (*rawEntry, error) {
	ft, err := e.FileType(false, ctx)
	if err != nil {
		return nil, err
	}
	return &rawEntry{kind: rawRoot, ent: e, ftype: ft}, nil
}

func newRawChild(e dent.Entry, ctx *dent.Context) (*rawEntry, error) {
	ft, err := e.FileType(false, ctx)
	if err != nil {
		return nil, err
	}
	return &rawEntry{kind: rawChild, ent: e, ftype: ft}, nil
}

// followed re-reads the entry's type through a symlink target, returning
// a new raw entry that keeps its original kind but now reports the
// target's type.
func (r *rawEntry) followed(ctx *dent.Context) (*rawEntry, error) {
	ft, err := r.ent.FileType(true, ctx)
	if err != nil {
		return nil, err
	}
	return &rawEntry{kind: r.kind, ent: r.ent, ftype: ft, follow: true}, nil
}

func (r *rawEntry) Path() string           { return r.ent.Path() }
func (r *rawEntry) FileName() string       { return r.ent.FileName() }
func (r *rawEntry) FileType() dent.FileType { return r.ftype }
func (r *rawEntry) IsRoot() bool           { return r.kind == rawRoot }
func (r *rawEntry) Followed() bool         { return r.follow }
