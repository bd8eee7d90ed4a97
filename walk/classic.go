// classic.go - a filepath.WalkDir-shaped adapter over the position stream
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

// ClassicEntry is one yielded item from a ClassicIter: either a
// successfully converted entry, or a deferred error - never both.
type ClassicEntry[Item any] struct {
	Item  Item
	Depth int
	IsDir bool
	Err   *Error
}

// ClassicIter re-shapes the position stream into the flat "one entry or
// error at a time" sequence callers migrating off filepath.WalkDir or the
// teacher's channel-based Walk expect: OpenDir/OpenDirWithContent/CloseDir
// are consumed internally and never surface here.
type ClassicIter[Item any] struct {
	it *WalkDirIterator[Item]
}

// BuildClassic is the Build() analogue for callers who want the flat
// view instead of the raw position stream.
func (b *WalkDirBuilder[Item]) BuildClassic() *ClassicIter[Item] {
	return &ClassicIter[Item]{it: b.Build()}
}

// Next returns the next entry or error. ok is false exactly once, at
// exhaustion.
func (c *ClassicIter[Item]) Next() (ClassicEntry[Item], bool) {
	for {
		pos, ok := c.it.Next()
		if !ok {
			return ClassicEntry[Item]{}, false
		}
		switch pos.Kind {
		case KindEntry:
			return ClassicEntry[Item]{Item: pos.Item, Depth: pos.Depth}, true
		case KindError:
			return ClassicEntry[Item]{Depth: pos.Depth, Err: pos.Err}, true
		case KindOpenDir:
			return ClassicEntry[Item]{Item: pos.Parent, Depth: pos.Depth, IsDir: true}, true
		case KindOpenDirWithContent:
			return ClassicEntry[Item]{Item: pos.Parent, Depth: pos.Depth, IsDir: true}, true
		default: // KindCloseDir carries nothing a flat walk cares about
			continue
		}
	}
}

// SkipCurrentDir forwards to the underlying iterator: the directory
// whose OpenDir was most recently returned (or whose Entry most
// recently triggered a descent) is abandoned.
func (c *ClassicIter[Item]) SkipCurrentDir() {
	c.it.SkipCurrentDir()
}

// Close releases every still-open directory handle.
func (c *ClassicIter[Item]) Close() {
	c.it.Close()
}

// WalkFunc is the callback shape FilterEntry/Walk drive: err is non-nil
// for a ClassicEntry that carries a deferred error instead of an item.
type WalkFunc[Item any] func(entry ClassicEntry[Item]) error

// Walk drives a ClassicIter to completion, calling fn for every entry
// and error. Returning SkipDir from fn when entry.IsDir skips that
// subtree; any other non-nil error stops the walk and is returned.
func Walk[Item any](c *ClassicIter[Item], fn WalkFunc[Item]) error {
	defer c.Close()
	for {
		entry, ok := c.Next()
		if !ok {
			return nil
		}
		err := fn(entry)
		switch {
		case err == nil:
		case err == SkipDir && entry.IsDir:
			c.SkipCurrentDir()
		case err == SkipDir:
			// SkipDir on a non-directory entry is a no-op, matching
			// filepath.WalkDir's own documented behavior.
		default:
			return err
		}
	}
}

// FilterEntry wraps fn so that returning false for a directory entry
// automatically calls SkipCurrentDir before the iterator advances -
// the predicate-driven pruning shape walkdir2's Rust original exposes
// as WalkDir::filter_entry.
func FilterEntry[Item any](c *ClassicIter[Item], keep func(entry ClassicEntry[Item]) bool, fn WalkFunc[Item]) error {
	defer c.Close()
	for {
		entry, ok := c.Next()
		if !ok {
			return nil
		}
		if entry.Err == nil && !keep(entry) {
			if entry.IsDir {
				c.SkipCurrentDir()
			}
			continue
		}
		if err := fn(entry); err != nil {
			if err == SkipDir && entry.IsDir {
				c.SkipCurrentDir()
				continue
			}
			if err == SkipDir {
				continue
			}
			return err
		}
	}
}

// sentinelError lets SkipDir be compared with == without pulling in a
// dedicated error type.
type sentinelError string

func (e sentinelError) Error() string { return string(e) }

// SkipDir is returned by a WalkFunc to abandon the current directory's
// remaining contents without stopping the walk.
const SkipDir = sentinelError("walk: skip this directory")
