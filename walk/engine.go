// engine.go - the traversal engine: a position-stream-emitting iterator
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

// transitionState sequences the multi-tick protocol the engine runs
// around the entry that is about to be (or was just) descended into.
// It lives on the engine, not on any one dirState, because at most one
// directory record is ever "in transition" at a time - whichever one
// sits at the current top of stack.
type transitionState int

const (
	transNone transitionState = iota
	transCloseOldestBeforePushDown
	transBeforePushDown
	transAfterPopUp
	transBeforePopUp
)

// ancestor is one entry of the loop-detection stack: a directory's path
// and fingerprint, pushed on descent (only when following symlinks) and
// popped on ascent.
type ancestor struct {
	path string
	fp   dent.Fingerprint
}

// WalkDirIterator is the traversal engine: a pull-based iterator over
// the position stream described in spec.md §6. It is generic only over
// the content processor's output Item type - the filesystem adapter
// side is the fixed dent.Entry interface (see DESIGN.md's generics
// decision).
type WalkDirIterator[Item any] struct {
	opts *WalkDirOptions[Item]
	ctx  *dent.Context

	rootPath string
	started  bool
	done     bool

	stack     []*dirState
	ancestors []ancestor
	roots     []ancestor
	openCount int

	rootDev     dent.DeviceNum
	haveRootDev bool

	transition    transitionState
	skipRequested bool
}

func newWalkDirIterator[Item any](root string, opts *WalkDirOptions[Item]) *WalkDirIterator[Item] {
	return &WalkDirIterator[Item]{
		opts:     opts,
		ctx:      &dent.Context{},
		rootPath: root,
	}
}

// SkipCurrentDir requests that the directory currently being iterated
// be abandoned: its remaining siblings and any in-flight descent of its
// current entry are dropped, as if they had never been read. Safe to
// call at any point between Next calls.
func (w *WalkDirIterator[Item]) SkipCurrentDir() {
	w.skipRequested = true
}

// Close abandons the traversal, releasing every still-open directory
// handle - the explicit stand-in for the on-drop hook spec.md's
// resource model describes, since Go has no destructors.
func (w *WalkDirIterator[Item]) Close() {
	for _, ds := range w.stack {
		if ds.handle != nil {
			ds.handle.Close()
		}
	}
	w.stack = nil
	w.done = true
}

// Next pulls the next position off the stream. ok is false exactly once,
// when the traversal is exhausted; every prior call returns ok=true with
// a meaningful Position.
func (w *WalkDirIterator[Item]) Next() (Position[Item], bool) {
	if w.done {
		return Position[Item]{}, false
	}
	if w.skipRequested {
		w.applySkip()
		w.skipRequested = false
	}
	if !w.started {
		w.started = true
		if rootErr := w.start(); rootErr != nil {
			w.done = true
			return errorPos[Item](rootErr), true
		}
	}
	return w.drive()
}

// start constructs the root raw entry and, on success, pushes a
// single-record synthetic directory state that holds nothing but the
// root's own record - the Once read-dir handle spec.md §4.2 describes.
// From there the ordinary Entry-position machinery handles the root
// exactly like any directory record: if it is itself a directory, it
// gets pushed onto the stack as depth 1's contents; if not, it is
// emitted (or not) and the traversal ends. A non-nil return is a root
// construction failure (spec.md §7 rule 4): emitted once, at depth 0,
// after which the iterator is exhausted.
func (w *WalkDirIterator[Item]) start() *Error {
	entry, err := dent.NewRootEntry(w.rootPath)
	if err != nil {
		return ioError(0, w.rootPath, err)
	}

	if w.opts.sameFilesystem {
		dn, err := entry.DeviceNum(w.ctx)
		if err != nil {
			return ioError(0, w.rootPath, err)
		}
		w.rootDev = dn
		w.haveRootDev = true
	}

	raw, err := newRawRoot(entry, w.ctx)
	if err != nil {
		return ioError(0, w.rootPath, err)
	}

	// Seed the ancestor stack with the root itself, so a symlink further
	// down that resolves back to the root is caught as a loop exactly
	// like one resolving back to any other ancestor directory.
	if w.opts.followLinks || w.opts.trackRoots {
		if fp, ferr := entry.Fingerprint(w.ctx); ferr == nil {
			anc := ancestor{path: raw.Path(), fp: fp}
			if w.opts.followLinks {
				w.ancestors = append(w.ancestors, anc)
			}
			if w.opts.trackRoots {
				w.roots = append(w.roots, anc)
			}
		}
	}

	flat, ferr, _ := w.classifyEntry(raw, 0)
	if ferr != nil {
		return ferr
	}

	rec := &record{
		flat:      flat,
		firstPass: true,
		hidden:    w.opts.contentFilter.hides(flat.isDir),
	}

	ds := newDirState(0, newOnceHandle(nil), OrderNone, nil)
	ds.records = []*record{rec}
	ds.fullyLoaded = true

	w.stack = append(w.stack, ds)
	return nil
}

// drive runs the transition-state machine until it has a position to
// emit or the stack empties.
func (w *WalkDirIterator[Item]) drive() (Position[Item], bool) {
	for {
		if len(w.stack) == 0 || w.done {
			w.done = true
			return Position[Item]{}, false
		}

		idx := len(w.stack) - 1
		top := w.stack[idx]

		var (
			pos  Position[Item]
			emit bool
		)
		switch top.position {
		case dsOpenDir:
			pos, emit = w.tickOpenDir(idx)
		case dsEntry:
			pos, emit = w.handleEntryPosition(idx)
		case dsCloseDir:
			pos, emit = w.handleCloseDirPosition(idx)
		}
		if emit {
			return pos, true
		}
	}
}

// tickOpenDir announces descent into top (omitted at depth 0, per
// spec.md §4.4), then advances top's own position marker so the next
// tick finds it at Entry or CloseDir.
func (w *WalkDirIterator[Item]) tickOpenDir(idx int) (Position[Item], bool) {
	top := w.stack[idx]
	emit := top.depth > 0

	var pos Position[Item]
	if emit {
		parentRec := w.stack[idx-1].currentRecord()
		parentItem := w.convertRecord(parentRec, w.stack[idx-1].depth)
		if w.opts.yieldOpenDirWithContent {
			pos = openDirWithContent(parentItem, w.collectContent(top), top.depth)
		} else {
			pos = openDir[Item](parentItem, top.depth)
		}
	}
	fetch := w.makeFetcher(top.depth)
	top.applySort(w.ctx, fetch)
	top.shiftNext(w.ctx, fetch)
	return pos, emit
}

// handleEntryPosition implements spec.md §4.4's "Entry position" rules:
// error records are surfaced immediately; non-directory records are
// emitted (or not) and advanced past in one tick; directory records run
// the four-state None/CloseOldestBeforePushDown/BeforePushDown/
// AfterPopUp sub-protocol sequenced by the engine's transition state.
func (w *WalkDirIterator[Item]) handleEntryPosition(idx int) (Position[Item], bool) {
	top := w.stack[idx]
	depth := top.depth

	rec := top.currentRecord()
	if rec == nil {
		top.position = dsCloseDir
		return Position[Item]{}, false
	}

	if rec.isErr() {
		top.shiftNext(w.ctx, w.makeFetcher(depth))
		return errorPos[Item](rec.err), true
	}

	flat := rec.flat
	if !flat.isDir {
		allowYield := !rec.hidden && depth >= w.opts.minDepth
		top.shiftNext(w.ctx, w.makeFetcher(depth))
		if allowYield {
			if item, ok := w.convertFlat(flat, depth); ok {
				return entryPos(item, depth), true
			}
		}
		return Position[Item]{}, false
	}

	switch w.transition {
	case transCloseOldestBeforePushDown:
		if w.opts.maxOpen > 0 && w.openCount >= w.opts.maxOpen {
			w.drainShallowestOpen()
		}
		w.transition = transBeforePushDown
		return Position[Item]{}, false

	case transBeforePushDown:
		handle := newOpenedHandle(flat.raw.ent, w.ctx, &w.openCount)
		child := newDirState(depth+1, handle, w.opts.contentOrder, w.opts.sorter)
		if w.opts.followLinks {
			if fp, ferr := flat.raw.ent.Fingerprint(w.ctx); ferr == nil {
				w.ancestors = append(w.ancestors, ancestor{path: flat.raw.Path(), fp: fp})
			}
		}
		w.stack = append(w.stack, child)
		w.transition = transNone
		return Position[Item]{}, false

	case transAfterPopUp:
		w.transition = transNone
		top.shiftNext(w.ctx, w.makeFetcher(depth))
		if w.opts.contentsFirst {
			if allowYield := w.allowYield(rec, flat, depth); allowYield {
				if item, ok := w.convertFlat(flat, depth); ok {
					return entryPos(item, depth), true
				}
			}
		}
		return Position[Item]{}, false

	default: // transNone: first visit to this directory record
		allowPush := depth < w.opts.maxDepth && (flat.raw.IsRoot() || w.opts.cp.AllowPush(flat.raw.ent))
		switch {
		case !allowPush:
			w.transition = transAfterPopUp
		case flat.loopLink != nil:
			w.transition = transAfterPopUp
			if !w.opts.yieldLoopLinks {
				return errorPos[Item](loopError(depth, *flat.loopLink, flat.raw.Path())), true
			}
		default:
			w.transition = transCloseOldestBeforePushDown
		}

		if !w.opts.contentsFirst {
			if allowYield := w.allowYield(rec, flat, depth); allowYield {
				if item, ok := w.convertFlat(flat, depth); ok {
					return entryPos(item, depth), true
				}
				w.transition = transAfterPopUp
			}
		}
		return Position[Item]{}, false
	}
}

// allowYield is spec.md §4.4's allow-yield predicate, shared by the
// pre-descent and contents-first post-descent emission points.
func (w *WalkDirIterator[Item]) allowYield(rec *record, flat *flatEntry, depth int) bool {
	return !rec.hidden && depth >= w.opts.minDepth && (flat.loopLink == nil || w.opts.yieldLoopLinks)
}

// handleCloseDirPosition implements spec.md §4.4's "CloseDir position":
// terminal at depth 0; otherwise emit CloseDir once, then pop on the
// following tick.
func (w *WalkDirIterator[Item]) handleCloseDirPosition(idx int) (Position[Item], bool) {
	top := w.stack[idx]
	if top.depth == 0 {
		w.done = true
		return Position[Item]{}, false
	}

	if w.transition == transBeforePopUp {
		top.handle.Close()
		w.stack = w.stack[:idx]
		if w.opts.followLinks && len(w.ancestors) > 0 {
			w.ancestors = w.ancestors[:len(w.ancestors)-1]
		}
		w.transition = transAfterPopUp
		return Position[Item]{}, false
	}

	w.transition = transBeforePopUp
	return closeDirPos[Item](top.depth), true
}

func (w *WalkDirIterator[Item]) applySkip() {
	if len(w.stack) == 0 {
		return
	}
	w.stack[len(w.stack)-1].skipAll()
	w.transition = transNone
}

// drainShallowestOpen finds the shallowest directory state whose handle
// is still Opened and drains it into memory, releasing one handle - the
// FD-budget relief valve spec.md §5 describes.
func (w *WalkDirIterator[Item]) drainShallowestOpen() {
	for _, ds := range w.stack {
		if ds.handle != nil && ds.handle.IsOpened() {
			ds.loadAll(w.ctx, w.makeFetcher(ds.depth))
			return
		}
	}
}

// makeFetcher returns the per-entry processing function spec.md §4.4
// hands to a directory state when it materializes records for entries
// at the given depth.
func (w *WalkDirIterator[Item]) makeFetcher(depth int) fetcher {
	return func(e dent.Entry, rawErr error) *record {
		if rawErr != nil {
			return &record{err: ioError(depth, entryPathOrEmpty(e), rawErr), firstPass: true}
		}
		raw, err := newRawChild(e, w.ctx)
		if err != nil {
			return &record{err: ioError(depth, e.Path(), err), firstPass: true}
		}
		flat, ferr, drop := w.classifyEntry(raw, depth)
		if drop {
			return nil
		}
		if ferr != nil {
			return &record{err: ferr, firstPass: true}
		}
		return &record{
			flat:      flat,
			firstPass: firstPassOf(w.opts.contentOrder, flat.isDir),
			hidden:    w.opts.contentFilter.hides(flat.isDir),
		}
	}
}

func entryPathOrEmpty(e dent.Entry) string {
	if e == nil {
		return ""
	}
	return e.Path()
}

// classifyEntry is spec.md §4.4's per-entry processing function: follow
// a symlink if configured, compute the effective directoryness and loop
// status, and (for directories below the root) enforce same-filesystem.
// A drop=true return means silently omit this entry entirely (no
// record at all), used by the same-filesystem rejection.
func (w *WalkDirIterator[Item]) classifyEntry(raw *rawEntry, depth int) (flat *flatEntry, errOut *Error, drop bool) {
	effective := raw
	var loopLink *string

	isSymlink := raw.FileType().IsSymlink()
	rootSymlinkSpecialCase := depth == 0 && isSymlink && !w.opts.followLinks

	switch {
	case isSymlink && w.opts.followLinks:
		followed, err := raw.followed(w.ctx)
		if err != nil {
			return nil, ioError(depth, raw.Path(), err), false
		}
		if p, ok := w.matchAncestor(raw); ok {
			loopLink = &p
		}
		effective = followed

	case rootSymlinkSpecialCase:
		followed, err := raw.followed(w.ctx)
		if err != nil {
			return nil, ioError(depth, raw.Path(), err), false
		}
		// The raw entry itself keeps its symlink identity; only the
		// directoryness decision follows the target.
		return &flatEntry{raw: raw, isDir: followed.FileType().IsDir()}, nil, false
	}

	isDir := effective.FileType().IsDir()

	if w.opts.sameFilesystem && depth > 0 && isDir {
		dn, err := effective.ent.DeviceNum(w.ctx)
		if err != nil {
			return nil, ioError(depth, effective.Path(), err), false
		}
		if w.haveRootDev && dn != w.rootDev {
			return nil, nil, true
		}
	}

	return &flatEntry{raw: effective, isDir: isDir, loopLink: loopLink}, nil, false
}

// matchAncestor scans the ancestor stack deepest-to-shallowest for one
// whose fingerprint matches raw's, returning its path on the first
// match. When TrackRoots is enabled, a followed symlink that doesn't
// loop back into the current ancestor chain is additionally checked
// against the roots this iterator recorded, which is only its own walk
// root; traversals started by WalkRoots do not share this record.
func (w *WalkDirIterator[Item]) matchAncestor(raw *rawEntry) (string, bool) {
	if len(w.ancestors) == 0 && (!w.opts.trackRoots || len(w.roots) == 0) {
		return "", false
	}
	fp, err := raw.ent.Fingerprint(w.ctx)
	if err != nil {
		return "", false
	}
	for i := len(w.ancestors) - 1; i >= 0; i-- {
		if w.ancestors[i].fp.Equal(fp) {
			return w.ancestors[i].path, true
		}
	}
	if w.opts.trackRoots {
		for i := len(w.roots) - 1; i >= 0; i-- {
			if w.roots[i].fp.Equal(fp) {
				return w.roots[i].path, true
			}
		}
	}
	return "", false
}

// convertRecord converts a record (expected non-error, non-nil - the
// caller only ever passes the record that caused a descent, which must
// already have been accepted) into an Item, or the zero Item if
// conversion fails.
func (w *WalkDirIterator[Item]) convertRecord(rec *record, depth int) Item {
	var zero Item
	if rec == nil || rec.flat == nil {
		return zero
	}
	if item, ok := w.convertFlat(rec.flat, depth); ok {
		return item
	}
	return zero
}

func (w *WalkDirIterator[Item]) convertFlat(flat *flatEntry, depth int) (Item, bool) {
	follow := flat.raw.Followed()
	if flat.raw.IsRoot() {
		return w.opts.cp.ProcessRoot(flat.raw.ent, follow, flat.isDir, depth, w.ctx)
	}
	return w.opts.cp.Process(flat.raw.ent, follow, flat.isDir, depth, w.ctx)
}

// collectContent materializes top's visible children (per the
// open-dir-with-content filter) and converts each, used for
// OpenDirWithContent.
func (w *WalkDirIterator[Item]) collectContent(top *dirState) []Item {
	recs := top.visibleRecords(w.ctx, w.makeFetcher(top.depth), w.opts.openDirWithContentFilter)
	out := make([]Item, 0, len(recs))
	for _, r := range recs {
		if item, ok := w.convertFlat(r.flat, top.depth); ok {
			out = append(out, item)
		}
	}
	return out
}
