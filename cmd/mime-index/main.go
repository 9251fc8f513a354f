// Command mime-index builds a persistent MIME type index from definition
// files and answers lookups against it.
//
//	mime-index build  [-dir path] [-backend file|sqlite] [-codec name] [-compress name] [definitions...]
//	mime-index lookup [-dir path] [-complete] [-platform id] <type-or-pattern>
//	mime-index file   [-dir path] <filename>
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/hupe1980/mimetypes"
	"github.com/hupe1980/mimetypes/codec"
	"github.com/hupe1980/mimetypes/index"
	"github.com/hupe1980/mimetypes/loader"
	"github.com/hupe1980/mimetypes/store"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(logger, os.Args[2:])
	case "lookup":
		err = runLookup(logger, os.Args[2:])
	case "file":
		err = runFile(logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mime-index <build|lookup|file> [flags] [args]")
}

func runBuild(logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	dir := fs.String("dir", "mime-index", "index directory")
	backendName := fs.String("backend", "file", "backing store: file or sqlite")
	codecName := fs.String("codec", codec.Default.Name(), "bucket codec: json or go-json")
	compressName := fs.String("compress", codec.DefaultCompressor.Name(), "bucket compressor: none, zstd or lz4")
	fs.Parse(args)

	reg, err := buildRegistry(fs.Args())
	if err != nil {
		return err
	}

	backend, err := backendByName(*backendName)
	if err != nil {
		return err
	}
	c, ok := codec.ByName(*codecName)
	if !ok {
		return fmt.Errorf("unknown codec %q", *codecName)
	}
	comp, ok := codec.CompressorByName(*compressName)
	if !ok {
		return fmt.Errorf("unknown compressor %q", *compressName)
	}

	idx, err := index.Build(*dir, reg,
		index.WithBackend(backend),
		index.WithCodec(c),
		index.WithCompressor(comp),
	)
	if err != nil {
		return err
	}
	defer idx.Close()

	logger.Info("index built", "dir", *dir, "types", idx.Count())
	return nil
}

// buildRegistry loads the named definition files, or the bundled defaults
// when none are given.
func buildRegistry(paths []string) (*mimetypes.Registry, error) {
	if len(paths) == 0 {
		return loader.DefaultRegistry()
	}
	reg := mimetypes.NewRegistry()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		err = loader.Load(f, reg)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return reg, nil
}

func backendByName(name string) (store.Backend, error) {
	switch name {
	case "file":
		return store.NewFileBackend(), nil
	case "sqlite":
		return store.NewSQLiteBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

func runLookup(logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	dir := fs.String("dir", "mime-index", "index directory")
	backendName := fs.String("backend", "file", "backing store: file or sqlite")
	complete := fs.Bool("complete", false, "only types with extensions")
	platform := fs.String("platform", "", "only types restricted to this platform (e.g. linux-amd64)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("lookup takes exactly one type or pattern")
	}

	backend, err := backendByName(*backendName)
	if err != nil {
		return err
	}
	idx, err := index.Open(*dir, index.WithBackend(backend))
	if err != nil {
		return err
	}
	defer idx.Close()

	types, err := idx.Lookup(fs.Arg(0))
	if err != nil {
		return err
	}
	printed := 0
	for _, t := range types {
		if *complete && !t.Complete() {
			continue
		}
		if *platform != "" && !t.Platform(*platform) {
			continue
		}
		printType(t)
		printed++
	}
	logger.Info("lookup completed", "query", fs.Arg(0), "results", printed)
	return nil
}

func runFile(logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("file", flag.ExitOnError)
	dir := fs.String("dir", "mime-index", "index directory")
	backendName := fs.String("backend", "file", "backing store: file or sqlite")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("file takes exactly one filename")
	}

	backend, err := backendByName(*backendName)
	if err != nil {
		return err
	}
	idx, err := index.Open(*dir, index.WithBackend(backend))
	if err != nil {
		return err
	}
	defer idx.Close()

	types, err := idx.TypeFor(fs.Arg(0))
	if err != nil {
		return err
	}
	for _, t := range types {
		printType(t)
	}
	logger.Info("lookup completed", "filename", fs.Arg(0), "results", len(types))
	return nil
}

func printType(t *mimetypes.Type) {
	line := t.ContentType()
	if exts := t.Extensions(); len(exts) > 0 {
		line += " @" + strings.Join(exts, ",")
	}
	line += " :" + t.Encoding()
	if t.Obsolete() {
		line += " (obsolete)"
	}
	fmt.Println(line)
}
