// options.go - immutable option record and its chained-setter builder
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
	"math"

	fio "github.com/nvksv/walkdir2"
)

const unboundedDepth = math.MaxInt

// WalkDirOptions is the traversal's option record. Once a builder calls
// Build, the record is never mutated again - the engine only reads it.
type WalkDirOptions[Item any] struct {
	sameFilesystem bool
	followLinks    bool
	yieldLoopLinks bool
	maxOpen        int // 0 means unlimited
	minDepth       int
	maxDepth       int
	contentsFirst  bool

	contentFilter ContentFilter
	contentOrder  ContentOrder

	yieldOpenDirWithContent  bool
	openDirWithContentFilter ContentFilter

	sorter SortFunc

	// trackRoots supplements the ancestor-stack loop detection spec.md
	// §3/§4.4 requires with a check of followed symlinks against the
	// walk root's own fingerprint; no new roots are ever added. Off by
	// default, so default behavior matches spec.md exactly.
	trackRoots bool

	cp ContentProcessor[Item]
}

func defaultOptions[Item any](cp ContentProcessor[Item]) *WalkDirOptions[Item] {
	return &WalkDirOptions[Item]{
		maxOpen:  10,
		maxDepth: unboundedDepth,
		cp:       cp,
	}
}

// WalkDirBuilder configures a traversal before turning it into an
// iterator. Every setter mutates the embedded option record and returns
// the builder itself, the same functional-options-by-chaining
// convention the teacher uses for clone.Option, generalized to match
// original_source's opts.rs method-chaining builder.
type WalkDirBuilder[Item any] struct {
	root string
	opts *WalkDirOptions[Item]
}

// NewWalkDirBuilder starts a traversal of root using a custom content
// processor.
func NewWalkDirBuilder[Item any](root string, cp ContentProcessor[Item]) *WalkDirBuilder[Item] {
	return &WalkDirBuilder[Item]{root: root, opts: defaultOptions[Item](cp)}
}

// NewWalkDir is the ready-to-use instantiation over the default content
// processor (*fio.Info items) - the Go analogue of original_source's
// `pub type WalkDir = WalkDirBuilder<fs::DefaultDirEntry,
// cp::DirEntryContentProcessor>`.
func NewWalkDir(root string) *WalkDirBuilder[*fio.Info] {
	return NewWalkDirBuilder[*fio.Info](root, DirEntryContentProcessor{})
}

func (b *WalkDirBuilder[Item]) SameFilesystem(v bool) *WalkDirBuilder[Item] {
	b.opts.sameFilesystem = v
	return b
}

func (b *WalkDirBuilder[Item]) FollowLinks(v bool) *WalkDirBuilder[Item] {
	b.opts.followLinks = v
	return b
}

func (b *WalkDirBuilder[Item]) YieldLoopLinks(v bool) *WalkDirBuilder[Item] {
	b.opts.yieldLoopLinks = v
	return b
}

// MaxOpen caps the number of concurrently open directory handles; 0
// means unlimited.
func (b *WalkDirBuilder[Item]) MaxOpen(n int) *WalkDirBuilder[Item] {
	b.opts.maxOpen = n
	return b
}

func (b *WalkDirBuilder[Item]) MinDepth(d int) *WalkDirBuilder[Item] {
	b.opts.minDepth = d
	return b
}

func (b *WalkDirBuilder[Item]) MaxDepth(d int) *WalkDirBuilder[Item] {
	b.opts.maxDepth = d
	return b
}

func (b *WalkDirBuilder[Item]) ContentsFirst(v bool) *WalkDirBuilder[Item] {
	b.opts.contentsFirst = v
	return b
}

func (b *WalkDirBuilder[Item]) ContentFilter(f ContentFilter) *WalkDirBuilder[Item] {
	b.opts.contentFilter = f
	return b
}

func (b *WalkDirBuilder[Item]) ContentOrder(o ContentOrder) *WalkDirBuilder[Item] {
	b.opts.contentOrder = o
	return b
}

func (b *WalkDirBuilder[Item]) YieldOpenDirWithContent(v bool) *WalkDirBuilder[Item] {
	b.opts.yieldOpenDirWithContent = v
	return b
}

func (b *WalkDirBuilder[Item]) OpenDirWithContentFilter(f ContentFilter) *WalkDirBuilder[Item] {
	b.opts.openDirWithContentFilter = f
	return b
}

// SortBy installs a comparator over (adapter-child, file-type) pairs.
// Installing one forces full materialization of each directory before
// its first advance.
func (b *WalkDirBuilder[Item]) SortBy(fn SortFunc) *WalkDirBuilder[Item] {
	b.opts.sorter = fn
	return b
}

// TrackRoots records the walk root's fingerprint and, when links are
// followed, also reports a followed symlink that resolves to the walk
// root as a loop. It does not establish new roots for symlinks that
// escape the tree, and the record is per iterator: WalkRoots' separate
// traversals do not share it.
func (b *WalkDirBuilder[Item]) TrackRoots(v bool) *WalkDirBuilder[Item] {
	b.opts.trackRoots = v
	return b
}

// Build produces the traversal iterator. The builder may be reused
// afterward to start an independent traversal with the same options.
func (b *WalkDirBuilder[Item]) Build() *WalkDirIterator[Item] {
	opts := *b.opts
	return newWalkDirIterator(b.root, &opts)
}
