// Package pdb reads protein chains from PDB coordinate files and writes
// assembled models back in the same format.
package pdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// BlankChainID replaces an empty chain identifier column.
const BlankChainID = "_"

type residueKey struct {
	chain byte
	seq   int
	icode byte
}

type chainBuilder struct {
	id       string
	residues []chain.Residue
	last     residueKey
	open     bool
}

// ReadFile reads the chains of the structure at path, using the file base
// name as source id.
func ReadFile(path string) ([]*chain.Record, error) {
	return ReadFileAs(path, filepath.Base(path))
}

// ReadFileAs is ReadFile with an explicit source id.
func ReadFileAs(path, sourceID string) ([]*chain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureParse, "cannot open structure").WithDetail(path)
	}
	defer f.Close()
	return Read(f, sourceID)
}

// Read parses ATOM records of the first model, plus HETATM records of
// modified amino acids such as MSE.  Alternate locations other than blank or
// 'A' are dropped, and residues without an alpha carbon (water, nucleotides)
// are skipped.  Chains are returned in order of appearance.
func Read(r io.Reader, sourceID string) ([]*chain.Record, error) {
	var (
		order  []*chainBuilder
		chains = make(map[byte]*chainBuilder)
		lineNo int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

scan:
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "ENDMDL"), strings.HasPrefix(line, "END"):
			if len(order) > 0 {
				break scan
			}
			continue
		case strings.HasPrefix(line, "ATOM  "):
		case strings.HasPrefix(line, "HETATM"):
			if len(line) < 20 || !chain.IsAminoAcid(line[17:20]) {
				continue
			}
		default:
			continue
		}

		if len(line) < 54 {
			return nil, parseError(sourceID, lineNo, "coordinate record shorter than 54 columns")
		}
		alt := line[16]
		if alt != ' ' && alt != 'A' {
			continue
		}
		seqNum, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
		if err != nil {
			return nil, parseError(sourceID, lineNo, "bad residue number")
		}
		coord, err := parseCoord(line)
		if err != nil {
			return nil, parseError(sourceID, lineNo, err.Error())
		}

		key := residueKey{chain: line[21], seq: seqNum, icode: line[26]}
		cb, ok := chains[key.chain]
		if !ok {
			id := strings.TrimSpace(string(key.chain))
			if id == "" {
				id = BlankChainID
			}
			cb = &chainBuilder{id: id}
			chains[key.chain] = cb
			order = append(order, cb)
		}
		if !cb.open || cb.last != key {
			icode := key.icode
			if icode == ' ' {
				icode = 0
			}
			cb.residues = append(cb.residues, chain.Residue{
				Index:         seqNum,
				InsertionCode: icode,
				Name:          strings.TrimSpace(line[17:20]),
			})
			cb.last, cb.open = key, true
		}
		res := &cb.residues[len(cb.residues)-1]
		name := strings.TrimSpace(line[12:16])
		res.Atoms = append(res.Atoms, chain.Atom{
			Name:    name,
			Element: element(line, name),
			Coord:   coord,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureParse, "read failed").WithDetail(sourceID)
	}

	var out []*chain.Record
	for _, cb := range order {
		kept := cb.residues[:0]
		for _, res := range cb.residues {
			if _, ok := res.CA(); ok {
				kept = append(kept, res)
			}
		}
		if len(kept) > 0 {
			out = append(out, chain.NewStructureRecord(sourceID, cb.id, kept))
		}
	}
	return out, nil
}

func parseCoord(line string) (r3.Vec, error) {
	var v [3]float64
	for i := range v {
		s := strings.TrimSpace(line[30+8*i : 38+8*i])
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("bad coordinate %q", s)
		}
		v[i] = f
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// element reads columns 77-78, falling back to the first letter of the atom
// name.
func element(line, name string) string {
	if len(line) >= 78 {
		if e := strings.TrimSpace(line[76:78]); e != "" {
			return e
		}
	}
	for i := 0; i < len(name); i++ {
		if c := name[i]; c >= 'A' && c <= 'Z' {
			return string(c)
		}
	}
	return ""
}

func parseError(source string, line int, msg string) error {
	return errors.New(errors.ErrCodeStructureParse, msg).
		WithDetail(fmt.Sprintf("%s:%d", source, line))
}
