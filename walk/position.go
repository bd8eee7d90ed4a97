// position.go - the traversal's output tape and the options it obeys
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

// ContentFilter controls which entries within a directory are emitted
// as Position Entry events. A hidden directory is still descended into
// - only its own Entry is suppressed.
type ContentFilter int

const (
	FilterNone ContentFilter = iota
	FilterFilesOnly
	FilterDirsOnly
	FilterSkipAll
)

// hides reports whether this filter suppresses Entry emission for an
// entry of the given directoryness.
func (f ContentFilter) hides(isDir bool) bool {
	switch f {
	case FilterDirsOnly:
		return !isDir
	case FilterFilesOnly:
		return isDir
	case FilterSkipAll:
		return true
	default:
		return false
	}
}

// ContentOrder selects the two-pass ordering applied within each
// directory: directories-before-files, files-before-directories, or
// filesystem order.
type ContentOrder int

const (
	OrderNone ContentOrder = iota
	OrderFilesFirst
	OrderDirsFirst
)

// PositionKind tags which field of Position is meaningful.
type PositionKind int

const (
	KindOpenDir PositionKind = iota
	KindOpenDirWithContent
	KindEntry
	KindError
	KindCloseDir
)

// Position is one event of the traversal's output stream. Kind selects
// which fields besides Depth are meaningful: Parent (plus Content for
// KindOpenDirWithContent), Item, or Err; KindCloseDir carries none.
type Position[Item any] struct {
	Kind  PositionKind
	Depth int

	// Parent holds the directory's own item for KindOpenDir and
	// KindOpenDirWithContent.
	Parent Item

	// Content holds the directory's (filtered) materialized children
	// for KindOpenDirWithContent only.
	Content []Item

	// Item holds the yielded entry for KindEntry.
	Item Item

	// Err holds the failure for KindError.
	Err *Error
}

func openDir[Item any](parent Item, depth int) Position[Item] {
	return Position[Item]{Kind: KindOpenDir, Depth: depth, Parent: parent}
}

func openDirWithContent[Item any](parent Item, content []Item, depth int) Position[Item] {
	return Position[Item]{Kind: KindOpenDirWithContent, Depth: depth, Parent: parent, Content: content}
}

func entryPos[Item any](item Item, depth int) Position[Item] {
	return Position[Item]{Kind: KindEntry, Depth: depth, Item: item}
}

func errorPos[Item any](err *Error) Position[Item] {
	depth := 0
	if err != nil {
		depth = err.Depth
	}
	return Position[Item]{Kind: KindError, Depth: depth, Err: err}
}

func closeDirPos[Item any](depth int) Position[Item] {
	return Position[Item]{Kind: KindCloseDir, Depth: depth}
}
