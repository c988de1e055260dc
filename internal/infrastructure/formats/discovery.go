// Package formats locates input files and loads them into chain records.
package formats

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/infrastructure/formats/fasta"
	"github.com/turtacn/mcbuilder/internal/infrastructure/formats/pdb"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// Kind classifies an input file.
type Kind int

const (
	KindUnknown Kind = iota
	KindFASTA
	KindPDB
)

// KindOf classifies path by extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fa", ".fasta":
		return KindFASTA
	case ".pdb":
		return KindPDB
	}
	return KindUnknown
}

// Inputs are the files of one run, in discovery order.
type Inputs struct {
	FASTA []string
	PDB   []string

	// sources maps a file path to its source id.
	sources map[string]string
}

// SourceID returns the source id of path: its base name, or its cleaned path
// when another input file shares that base name.
func (in *Inputs) SourceID(path string) string {
	if id, ok := in.sources[path]; ok {
		return id
	}
	return filepath.Base(path)
}

func (in *Inputs) assignSources() {
	files := append(append([]string(nil), in.FASTA...), in.PDB...)
	byBase := make(map[string]int, len(files))
	for _, f := range files {
		byBase[filepath.Base(f)]++
	}
	in.sources = make(map[string]string, len(files))
	for _, f := range files {
		if byBase[filepath.Base(f)] > 1 {
			in.sources[f] = filepath.ToSlash(filepath.Clean(f))
		} else {
			in.sources[f] = filepath.Base(f)
		}
	}
}

// Discover expands paths into input files.  A directory contributes its
// FASTA and PDB entries sorted by name (not recursively); a file is taken
// as given.  An empty paths list scans the working directory.  Every file
// gets a distinct source id (see SourceID).
func Discover(paths []string, logger logging.Logger) (*Inputs, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	in := &Inputs{}
	seen := make(map[string]bool)
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err == nil && seen[abs] {
			return
		}
		seen[abs] = true
		switch KindOf(p) {
		case KindFASTA:
			in.FASTA = append(in.FASTA, p)
		case KindPDB:
			in.PDB = append(in.PDB, p)
		default:
			logger.Warn("ignoring input with unknown extension", logging.String("path", p))
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeNoInputFiles, "cannot access input").WithDetail(p)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeNoInputFiles, "cannot list directory").WithDetail(p)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() && KindOf(e.Name()) != KindUnknown {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			add(filepath.Join(p, n))
		}
	}

	switch {
	case len(in.FASTA) == 0 && len(in.PDB) == 0:
		return nil, errors.New(errors.ErrCodeNoInputFiles, "no fasta or pdb files were found").
			WithDetail(strings.Join(paths, ","))
	case len(in.FASTA) == 0:
		return nil, errors.New(errors.ErrCodeMissingInputKind, "no fasta file was found")
	case len(in.PDB) == 0:
		return nil, errors.New(errors.ErrCodeMissingInputKind, "no pdb file was found")
	}
	in.assignSources()
	logger.Info("inputs discovered",
		logging.Int("fasta", len(in.FASTA)),
		logging.Int("pdb", len(in.PDB)))
	return in, nil
}

// Load parses every input file with up to workers goroutines.  Records are
// returned FASTA files first, each group in discovery order.
func Load(ctx context.Context, in *Inputs, workers int, logger logging.Logger) ([]*chain.Record, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if workers < 1 {
		workers = 1
	}
	files := append(append([]string(nil), in.FASTA...), in.PDB...)
	parsed := make([][]*chain.Record, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var (
				recs []*chain.Record
				err  error
			)
			if KindOf(path) == KindFASTA {
				recs, err = fasta.ReadFileAs(path, in.SourceID(path))
			} else {
				recs, err = pdb.ReadFileAs(path, in.SourceID(path))
			}
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				logger.Warn("no protein chain in structure", logging.String("path", path))
			}
			parsed[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*chain.Record
	for _, recs := range parsed {
		out = append(out, recs...)
	}
	logger.Info("inputs loaded", logging.Int("files", len(files)), logging.Int("chains", len(out)))
	return out, nil
}
