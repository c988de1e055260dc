// Package fasta reads protein sequence records from FASTA files.
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// ReadFile reads the every record of the FASTA file at path, using the file base
// name as source id.
func ReadFile(path string) ([]*chain.Record, error) {
	return ReadFileAs(path, filepath.Base(path))
}

// ReadFileAs is ReadFile with an explicit source id.
func ReadFileAs(path, sourceID string) ([]*chain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSequenceParse, "cannot open sequence file").WithDetail(path)
	}
	defer f.Close()
	return Read(f, sourceID)
}

// Read parses FASTA text.  The record id is the first word of the header.
// Whitespace and a trailing '*' are removed from sequences; any other
// character outside A-Z is an error.
func Read(r io.Reader, sourceID string) ([]*chain.Record, error) {
	var (
		out    []*chain.Record
		id     string
		seq    strings.Builder
		inRec  bool
		lineNo int
	)
	flush := func() error {
		if !inRec {
			return nil
		}
		if seq.Len() == 0 {
			return errors.New(errors.ErrCodeSequenceParse, "record has no sequence").
				WithDetail(fmt.Sprintf("%s:%s", sourceID, id))
		}
		out = append(out, chain.NewSequenceRecord(sourceID, id, seq.String()))
		seq.Reset()
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "", strings.HasPrefix(line, ";"):
			continue
		case strings.HasPrefix(line, ">"):
			if err := flush(); err != nil {
				return nil, err
			}
			fields := strings.Fields(line[1:])
			if len(fields) == 0 {
				return nil, errors.New(errors.ErrCodeSequenceParse, "header without id").
					WithDetail(fmt.Sprintf("%s:%d", sourceID, lineNo))
			}
			id, inRec = fields[0], true
		default:
			if !inRec {
				return nil, errors.New(errors.ErrCodeSequenceParse, "sequence before first header").
					WithDetail(fmt.Sprintf("%s:%d", sourceID, lineNo))
			}
			for i := 0; i < len(line); i++ {
				c := line[i]
				switch {
				case c >= 'a' && c <= 'z':
					seq.WriteByte(c - 'a' + 'A')
				case c >= 'A' && c <= 'Z':
					seq.WriteByte(c)
				case c == ' ' || c == '\t':
				case c == '*' && i == len(line)-1:
				default:
					return nil, errors.Newf(errors.ErrCodeSequenceParse, "invalid residue %q", c).
						WithDetail(fmt.Sprintf("%s:%d", sourceID, lineNo))
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSequenceParse, "read failed").WithDetail(sourceID)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeSequenceParse, "no FASTA records").WithDetail(sourceID)
	}
	return out, nil
}
