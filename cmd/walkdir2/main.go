// main.go - walkdir2: a command-line directory walker built on the
// walkdir2/walk traversal engine.
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

package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/opencoff/go-logger"
	"github.com/opencoff/go-utils"
	flag "github.com/opencoff/pflag"

	fio "github.com/nvksv/walkdir2"
	"github.com/nvksv/walkdir2/walk"
)

var Z = path.Base(os.Args[0])

func main() {
	var help, followLinks, oneFS, contentsFirst, longForm bool
	var maxOpen, maxDepth, minDepth int
	var typStr, excludeStr, logfile string

	fs := flag.NewFlagSet(Z, flag.ExitOnError)

	fs.BoolVarP(&help, "help", "h", false, "Show help and exit [False]")
	fs.BoolVarP(&followLinks, "follow", "L", false, "Follow symbolic links [False]")
	fs.BoolVarP(&oneFS, "one-file-system", "x", false, "Don't descend into other filesystems [False]")
	fs.BoolVarP(&contentsFirst, "contents-first", "", false, "Yield a directory's contents before the directory itself [False]")
	fs.BoolVarP(&longForm, "long", "l", false, "Show size and mode for every entry [False]")
	fs.IntVarP(&maxOpen, "max-open", "", 10, "Keep at most `N` directory handles open at once, 0 for unlimited [10]")
	fs.IntVarP(&maxDepth, "max-depth", "", 0, "Descend at most `N` levels, 0 for unlimited [0]")
	fs.IntVarP(&minDepth, "min-depth", "", 0, "Suppress output for the first `N` levels [0]")
	fs.StringVarP(&typStr, "type", "t", "all", "Only show entries of `T` (comma separated: file,dir,symlink,device,special,all) [all]")
	fs.StringVarP(&excludeStr, "exclude", "e", "", "Comma separated shell-glob `PATTERNS` to exclude by basename")
	fs.StringVarP(&logfile, "log", "", "STDOUT", "Write diagnostics to `FILE` [STDOUT]")

	fs.SetOutput(os.Stdout)

	if err := fs.Parse(os.Args[1:]); err != nil {
		Die("%s", err)
	}

	if help {
		usage(fs)
	}

	args := fs.Args()
	if len(args) == 0 {
		args = []string{"."}
	}

	log, err := logger.NewLogger(logfile, logger.LOG_INFO, Z, logger.Ldate|logger.Ltime)
	if err != nil {
		Die("logger: %s", err)
	}

	typ, err := parseType(typStr)
	if err != nil {
		Die("%s", err)
	}

	var excludes []string
	if len(excludeStr) > 0 {
		excludes = strings.Split(excludeStr, ",")
	}

	var total int64
	var nfail int
	emit := func(fi *fio.Info) {
		total += fi.Size()
		printEntry(fi, longForm)
	}
	fail := func(err error) {
		log.Warn("%s", err)
		nfail++
	}

	if len(args) == 1 {
		// A single root can be driven straight off the engine, so every
		// flag (depth bounds, open-handle budget, contents-first) applies
		// exactly as given.
		walkSingle(args[0], followLinks, oneFS, contentsFirst, maxOpen, maxDepth, minDepth, typ, excludes, emit, fail)
	} else {
		// Multiple roots: fan out concurrently via the RootOptions
		// convenience wrapper. contents-first/max-open/min-depth/max-depth are
		// per-iterator knobs the wrapper doesn't expose, since it starts
		// one independent WalkDir per root rather than sharing a single
		// builder across them.
		opt := &walk.RootOptions{
			Concurrency:    len(args),
			FollowSymlinks: followLinks,
			OneFS:          oneFS,
			Type:           typ,
			Excludes:       excludes,
		}
		och, ech := walk.WalkRoots(args, opt)
		done := make(chan bool)
		go func() {
			for e := range ech {
				fail(e)
			}
			done <- true
		}()
		for fi := range och {
			emit(fi)
		}
		<-done
	}

	log.Info("%d bytes, %d error(s)", total, nfail)
	if nfail > 0 {
		os.Exit(1)
	}
}

func walkSingle(root string, followLinks, oneFS, contentsFirst bool, maxOpen, maxDepth, minDepth int, typ walk.Type, excludes []string, emit func(*fio.Info), fail func(error)) {
	b := walk.NewWalkDir(root).
		FollowLinks(followLinks).
		SameFilesystem(oneFS).
		ContentsFirst(contentsFirst).
		MaxOpen(maxOpen)

	if maxDepth > 0 {
		b = b.MaxDepth(maxDepth)
	}
	if minDepth > 0 {
		b = b.MinDepth(minDepth)
	}

	iter := b.BuildClassic()
	keep := func(entry walk.ClassicEntry[*fio.Info]) bool {
		if entry.Err != nil || entry.Item == nil {
			return true
		}
		return !excluded(entry.Item, excludes) && matchesType(entry.Item, typ)
	}

	err := walk.FilterEntry(iter, keep, func(entry walk.ClassicEntry[*fio.Info]) error {
		if entry.Err != nil {
			if ioErr, ok := entry.Err.IOErr(); ok {
				fail(ioErr)
			} else {
				fail(entry.Err)
			}
			return nil
		}
		if entry.Item != nil {
			emit(entry.Item)
		}
		return nil
	})
	if err != nil {
		fail(err)
	}
}

func excluded(fi *fio.Info, patterns []string) bool {
	bn := fi.Name()
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, bn); ok {
			return true
		}
	}
	return false
}

func matchesType(fi *fio.Info, t walk.Type) bool {
	if t == 0 {
		return true
	}
	m := fi.Mode()
	switch {
	case m.IsDir():
		return t&walk.DIR != 0
	case m&os.ModeSymlink != 0:
		return t&walk.SYMLINK != 0
	case m&(os.ModeDevice|os.ModeCharDevice) != 0:
		return t&walk.DEVICE != 0
	case m&(os.ModeNamedPipe|os.ModeSocket) != 0:
		return t&walk.SPECIAL != 0
	default:
		return t&walk.FILE != 0
	}
}

func printEntry(fi *fio.Info, longForm bool) {
	if longForm {
		fmt.Printf("%s %10s %s\n", fi.Mode(), utils.HumanizeSize(uint64(fi.Size())), fi.Path())
	} else {
		fmt.Println(fi.Path())
	}
}

func parseType(s string) (walk.Type, error) {
	var t walk.Type
	for _, w := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(w)) {
		case "file":
			t |= walk.FILE
		case "dir":
			t |= walk.DIR
		case "symlink":
			t |= walk.SYMLINK
		case "device":
			t |= walk.DEVICE
		case "special":
			t |= walk.SPECIAL
		case "all", "":
			t |= walk.ALL
		default:
			return 0, fmt.Errorf("unknown type %q", w)
		}
	}
	return t, nil
}

func usage(fs *flag.FlagSet) {
	fmt.Printf(usageStr, Z)
	fs.PrintDefaults()
	os.Exit(0)
}

func Die(f string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", Z, fmt.Sprintf(f, v...))
	os.Exit(1)
}

var usageStr = `%s - recursively list directory trees

Usage: %[1]s [options] dir [dir...]

Options:
`
