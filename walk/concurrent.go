// concurrent.go - concurrent multi-root convenience wrapper over WalkDir
//
// (c) 2022- Sudhi Herle <sudhi@herle.net>
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
	"errors"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	fio "github.com/nvksv/walkdir2"
)

// Type is an output filter that can be bitwise OR'd. It denotes the
// types of file system entries that will be *returned* to the caller.
type Type uint

const (
	FILE    Type = 1 << iota // regular file
	DIR                      // directory
	SYMLINK                  // symbolic link
	DEVICE                   // device special file (blk and char)
	SPECIAL                  // other special files

	// ALL is shorthand for "give me everything".
	ALL = FILE | DIR | SYMLINK | DEVICE | SPECIAL
)

var typeNames = map[Type]string{
	FILE:    "File",
	DIR:     "Dir",
	SYMLINK: "Symlink",
	DEVICE:  "Device",
	SPECIAL: "Special",
}

func (t Type) String() string {
	var z []string
	for k, v := range typeNames {
		if (k & t) > 0 {
			z = append(z, v)
		}
	}
	return strings.Join(z, "|")
}

// RootOptions control a multi-root concurrent walk built on WalkDir - one
// goroutine per root, each root's own descent internally sequential. This
// is the teacher's channel-based Walk/WalkFunc convenience API, adapted
// to drive the new engine instead of a bespoke worker pool per directory.
type RootOptions struct {
	// Concurrency is the number of root paths walked in parallel; if 0
	// or less, WalkRoots/WalkRootsFunc use runtime.NumCPU().
	Concurrency int

	// FollowSymlinks, when set, follows symlinks during descent.
	FollowSymlinks bool

	// OneFS restricts each root's traversal to its own starting
	// filesystem.
	OneFS bool

	// Type is the mask of entry types to return.
	Type Type

	// Excludes is a list of shell-glob patterns matched against an
	// entry's basename; a directory matching one is not descended.
	Excludes []string

	// Filter is an optional caller-supplied predicate; returning true
	// drops the entry (and, for a directory, its subtree) from the walk.
	Filter func(fi *fio.Info) bool
}

func (o *RootOptions) matchesType(fi *fio.Info) bool {
	if o.Type == 0 {
		return true
	}
	m := fi.Mode()
	switch {
	case m.IsDir():
		return o.Type&DIR != 0
	case m&os.ModeSymlink != 0:
		return o.Type&SYMLINK != 0
	case m&(os.ModeDevice|os.ModeCharDevice) != 0:
		return o.Type&DEVICE != 0
	case m&(os.ModeNamedPipe|os.ModeSocket) != 0:
		return o.Type&SPECIAL != 0
	default:
		return o.Type&FILE != 0
	}
}

func (o *RootOptions) excluded(fi *fio.Info) bool {
	if len(o.Excludes) == 0 {
		return false
	}
	bn := fi.Name()
	for _, pat := range o.Excludes {
		if ok, _ := path.Match(pat, bn); ok {
			return true
		}
	}
	return false
}

// WalkRoots traverses every root in names concurrently and returns
// results on a channel of *fio.Info; the caller must drain it. Errors
// are delivered on the accompanying error channel.
func WalkRoots(names []string, opt *RootOptions) (chan *fio.Info, chan error) {
	if opt == nil {
		opt = &RootOptions{}
	}
	conc := opt.Concurrency
	if conc <= 0 {
		conc = runtime.NumCPU()
	}

	out := make(chan *fio.Info, conc)
	errch := make(chan error, conc)

	var wg sync.WaitGroup
	wg.Add(len(names))
	sem := make(chan struct{}, conc)
	for _, nm := range names {
		nm := nm
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			walkOneRoot(nm, opt, func(fi *fio.Info) { out <- fi }, errch)
		}()
	}

	go func() {
		wg.Wait()
		close(out)
		close(errch)
	}()

	return out, errch
}

// WalkRootsFunc traverses every root in names concurrently, calling apply
// for each matching entry. apply must be concurrency-safe: it may be
// called from multiple goroutines, one per root. Errors returned by
// apply, or encountered during the walk, are joined and returned.
func WalkRootsFunc(names []string, opt *RootOptions, apply func(fi *fio.Info) error) error {
	if opt == nil {
		opt = &RootOptions{}
	}
	conc := opt.Concurrency
	if conc <= 0 {
		conc = runtime.NumCPU()
	}

	errch := make(chan error, conc)
	var wg sync.WaitGroup
	wg.Add(len(names))
	sem := make(chan struct{}, conc)
	for _, nm := range names {
		nm := nm
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			walkOneRoot(nm, opt, func(fi *fio.Info) {
				if err := apply(fi); err != nil {
					errch <- err
				}
			}, errch)
		}()
	}

	var errWg sync.WaitGroup
	var errs []error
	var errsMu sync.Mutex
	errWg.Add(1)
	go func() {
		defer errWg.Done()
		for e := range errch {
			errsMu.Lock()
			errs = append(errs, e)
			errsMu.Unlock()
		}
	}()

	wg.Wait()
	close(errch)
	errWg.Wait()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// walkOneRoot drives a single root's traversal on the caller's goroutine,
// forwarding every matching entry to apply and every failure to errch.
func walkOneRoot(root string, opt *RootOptions, apply func(fi *fio.Info), errch chan<- error) {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		root = "/"
	}

	iter := NewWalkDir(root).
		FollowLinks(opt.FollowSymlinks).
		SameFilesystem(opt.OneFS).
		BuildClassic()

	keep := func(entry ClassicEntry[*fio.Info]) bool {
		if entry.Err != nil {
			return true
		}
		fi := entry.Item
		if fi == nil {
			return true
		}
		if opt.excluded(fi) {
			return false
		}
		if opt.Filter != nil && opt.Filter(fi) {
			return false
		}
		return true
	}

	_ = FilterEntry(iter, keep, func(entry ClassicEntry[*fio.Info]) error {
		if entry.Err != nil {
			if ioErr, ok := entry.Err.IOErr(); ok {
				errch <- ioErr
			} else {
				errch <- entry.Err
			}
			return nil
		}
		fi := entry.Item
		if fi == nil {
			return nil
		}
		if !opt.matchesType(fi) {
			return nil
		}
		apply(fi)
		return nil
	})
}
