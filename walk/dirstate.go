// dirstate.go - per-directory working set: records, cursor, two-pass order
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
	"sort"

	"github.com/nvksv/walkdir2/dent"
)

// flatEntry is a raw entry plus the decision bits the per-entry
// processor computes: the effective directoryness used for descent
// decisions, and (if this entry's fingerprint matches an ancestor or a
// tracked root) the path of the directory it loops back to.
type flatEntry struct {
	raw      *rawEntry
	isDir    bool
	loopLink *string
}

// record is either a flat entry or a deferred error, plus the two
// emission bits: firstPass (which of the two ordering passes this
// record belongs to) and hidden (suppressed from Entry emission, but
// still traversed if it is a directory). Error records always carry
// firstPass=true, hidden=false, so they surface exactly once regardless
// of content-order.
type record struct {
	flat *flatEntry
	err  *Error

	firstPass bool
	hidden    bool
}

func (r *record) isErr() bool { return r.err != nil }

// yieldableAsEntry reports whether shiftNext should ever stop the
// cursor on this record. A hidden non-directory carries nothing the
// engine needs (it is neither emitted nor traversed), so it is skipped
// transparently; a hidden directory must still become current so its
// subtree gets visited.
func (r *record) yieldableAsEntry() bool {
	if r.isErr() {
		return true
	}
	return !r.hidden || r.flat.isDir
}

type dirPass int

const (
	passEntire dirPass = iota
	passFirst
	passSecond
)

func initialPass(order ContentOrder) dirPass {
	if order == OrderNone {
		return passEntire
	}
	return passFirst
}

// firstPassOf computes the content-order first_pass bit for a
// newly-accepted (non-error) record.
func firstPassOf(order ContentOrder, isDir bool) bool {
	switch order {
	case OrderDirsFirst:
		return isDir
	case OrderFilesFirst:
		return !isDir
	default:
		return false
	}
}

type dirPosition int

const (
	dsOpenDir dirPosition = iota
	dsEntry
	dsCloseDir
)

// fetcher turns one raw pull from the underlying handle into a record,
// or nil to silently drop the item (e.g. a same-filesystem rejection)
// and keep scanning.
type fetcher func(raw dent.Entry, rawErr error) *record

// dirState is the per-directory working set described in spec.md's
// "Directory state" component: it owns the read-dir handle, the
// materialized records, the cursor, the pass marker and the position
// marker. It does not know about the ancestor stack or options; those
// live on the engine and are threaded in via the fetcher closure.
type dirState struct {
	depth  int
	handle *readDirHandle

	records     []*record
	fullyLoaded bool
	cursor      int // index of current record; -1 before first

	pass     dirPass
	position dirPosition

	order  ContentOrder
	sorter SortFunc
}

func newDirState(depth int, handle *readDirHandle, order ContentOrder, sorter SortFunc) *dirState {
	return &dirState{
		depth:    depth,
		handle:   handle,
		cursor:   -1,
		pass:     initialPass(order),
		position: dsOpenDir,
		order:    order,
		sorter:   sorter,
	}
}

// fetchOne pulls exactly one raw item from the handle (if not already
// exhausted) and appends its record, if the fetcher kept it.
func (d *dirState) fetchOne(ctx *dent.Context, fetch fetcher) bool {
	if d.fullyLoaded {
		return false
	}
	e, err, ok := d.handle.Next(ctx)
	if !ok {
		d.fullyLoaded = true
		return false
	}
	if rec := fetch(e, err); rec != nil {
		d.records = append(d.records, rec)
	}
	return true
}

// ensureAt makes sure records[i] exists, pulling further raw items as
// needed (a fetch that silently drops an item may require several
// underlying pulls to produce one more record).
func (d *dirState) ensureAt(ctx *dent.Context, i int, fetch fetcher) bool {
	for i >= len(d.records) {
		if !d.fetchOne(ctx, fetch) {
			return false
		}
	}
	return true
}

// loadAll materializes every remaining record.
func (d *dirState) loadAll(ctx *dent.Context, fetch fetcher) {
	for d.fetchOne(ctx, fetch) {
	}
}

// PairEntryType is what a user sort comparator receives: the adapter
// child plus its cached file type, so a comparator never needs to
// re-stat.
type PairEntryType struct {
	Entry dent.Entry
	Type  dent.FileType
}

// SortFunc orders two directory children. Negative means a before b.
type SortFunc func(a, b PairEntryType, ctx *dent.Context) int

// applySort materializes every record and sorts stably: error records
// sort before ok records (rule "Err<Ok"); among ok records the
// installed comparator is consulted. The cursor is reset to "before
// first" afterward. Sorting happens at most once per directory, before
// the first advance - tickOpenDir calls this immediately before this
// dirState's first shiftNext, and position never returns to dsOpenDir
// afterward, so a later call here would be a no-op on the cursor but is
// never actually made.
func (d *dirState) applySort(ctx *dent.Context, fetch fetcher) {
	if d.sorter == nil {
		return
	}
	d.loadAll(ctx, fetch)
	sort.SliceStable(d.records, func(i, j int) bool {
		a, b := d.records[i], d.records[j]
		if a.isErr() != b.isErr() {
			return a.isErr()
		}
		if a.isErr() {
			return false
		}
		pa := PairEntryType{Entry: a.flat.raw.ent, Type: a.flat.raw.ftype}
		pb := PairEntryType{Entry: b.flat.raw.ent, Type: b.flat.raw.ftype}
		return d.sorter(pa, pb, ctx) < 0
	})
	d.cursor = -1
}

func (d *dirState) validPass(r *record) bool {
	switch d.pass {
	case passFirst:
		return r.firstPass
	case passSecond:
		return !r.firstPass
	default:
		return true
	}
}

// shiftNext advances the cursor to the next eligible record, pulling
// fresh raw items as needed. On exhaustion under a First pass it flips
// to Second and rewinds without re-reading the handle; otherwise it
// sets position to CloseDir. Returns true iff it landed on a record
// (position becomes dsEntry).
func (d *dirState) shiftNext(ctx *dent.Context, fetch fetcher) bool {
	for {
		i := d.cursor + 1
		if !d.ensureAt(ctx, i, fetch) {
			if d.pass == passFirst {
				d.pass = passSecond
				d.cursor = -1
				continue
			}
			d.position = dsCloseDir
			return false
		}
		d.cursor = i
		r := d.records[i]
		if d.validPass(r) && r.yieldableAsEntry() {
			d.position = dsEntry
			return true
		}
	}
}

// currentRecord returns the record the cursor sits on, or nil when the
// position isn't dsEntry.
func (d *dirState) currentRecord() *record {
	if d.position != dsEntry || d.cursor < 0 || d.cursor >= len(d.records) {
		return nil
	}
	return d.records[d.cursor]
}

// skipAll forces this directory to CloseDir, abandoning any remaining
// siblings (and any in-flight descent of the current record).
func (d *dirState) skipAll() {
	d.position = dsCloseDir
}

// visibleRecords materializes the whole directory and returns the
// non-error records passing the given filter, independent of this
// state's own pass/cursor bookkeeping. Used for OpenDirWithContent's
// content snapshot.
func (d *dirState) visibleRecords(ctx *dent.Context, fetch fetcher, filter ContentFilter) []*record {
	d.loadAll(ctx, fetch)
	out := make([]*record, 0, len(d.records))
	for _, r := range d.records {
		if r.isErr() {
			continue
		}
		if filter.hides(r.flat.isDir) {
			continue
		}
		out = append(out, r)
	}
	return out
}
