// readdir.go - the four-state open-directory handle
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

type rdState int

const (
	rdOnce rdState = iota
	rdOpened
	rdClosed
	rdError
)

// readDirHandle is the engine's view of one open directory: Once emits a
// single synthesized root entry before any platform directory is opened;
// Opened wraps a live dent.RawReadDir and counts against the open-handle
// budget; Closed is terminal; Error holds one deferred construction
// failure to be delivered exactly once.
//
// The open count is a pointer to the engine's own counter, incremented
// at construction of Opened and decremented at the handle's Closed
// transition or explicit Close - the same "single integer threaded by
// reference through three points" convention the spec requires.
type readDirHandle struct {
	state     rdState
	onceItem  dent.Entry
	rd        dent.RawReadDir
	err       error
	openCount *int
}

func newOnceHandle(root dent.Entry) *readDirHandle {
	return &readDirHandle{state: rdOnce, onceItem: root}
}

func newOpenedHandle(parent dent.Entry, ctx *dent.Context, openCount *int) *readDirHandle {
	rd, err := parent.ReadDir(ctx)
	if err != nil {
		return &readDirHandle{state: rdError, err: err}
	}
	*openCount++
	return &readDirHandle{state: rdOpened, rd: rd, openCount: openCount}
}

// Next pulls the handle's next raw item. hasMore=false means the handle
// is exhausted; hasMore=true with a non-nil error means this slot is a
// per-entry failure (no entry); otherwise entry is valid.
func (h *readDirHandle) Next(ctx *dent.Context) (entry dent.Entry, err error, hasMore bool) {
	switch h.state {
	case rdOnce:
		entry = h.onceItem
		h.onceItem = nil
		h.state = rdClosed
		return entry, nil, true

	case rdOpened:
		e, rerr, ok := h.rd.Next(ctx)
		if !ok {
			h.closeOpened()
			return nil, nil, false
		}
		return e, rerr, true

	case rdError:
		e := h.err
		h.err = nil
		h.state = rdClosed
		if e == nil {
			return nil, nil, false
		}
		return nil, e, true

	default: // rdClosed
		return nil, nil, false
	}
}

func (h *readDirHandle) closeOpened() {
	if h.state == rdOpened {
		h.rd.Close()
		*h.openCount--
		h.state = rdClosed
	}
}

// Close abandons the handle regardless of its state - the on-drop hook
// equivalent, invoked whenever the engine pops a directory state before
// it has been fully drained (e.g. skip-current-dir).
func (h *readDirHandle) Close() {
	h.closeOpened()
	h.state = rdClosed
}

// IsOpened reports whether this handle currently counts against the
// open-handle budget.
func (h *readDirHandle) IsOpened() bool {
	return h.state == rdOpened
}
