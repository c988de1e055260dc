package pdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/turtacn/mcbuilder/internal/domain/assembly"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// ChainIDs lists the identifiers assigned to placed chains, in order.
const ChainIDs = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MaxChains is the largest model the writer can represent.
const MaxChains = len(ChainIDs)

// Write renders m as PDB ATOM records, one chain identifier per placed chain
// and a TER record after each chain.
func Write(w io.Writer, m *assembly.Model) error {
	if m.Len() > MaxChains {
		return errors.Newf(errors.ErrCodeTooManyChains, "%d chains, at most %d can be written", m.Len(), MaxChains)
	}
	bw := bufio.NewWriter(w)
	for i, c := range m.Chains() {
		fmt.Fprintf(bw, "REMARK 350 CHAIN %c CLUSTER %-4s SOURCE %s TEMPLATE %s\n",
			ChainIDs[i], c.Label, c.SourceKey, c.TemplateID)
	}

	serial := 0
	for i, c := range m.Chains() {
		id := ChainIDs[i]
		var lastName string
		var lastSeq int
		var lastICode byte = ' '
		for _, res := range c.Residues {
			icode := res.InsertionCode
			if icode == 0 {
				icode = ' '
			}
			for _, a := range res.Atoms {
				serial++
				fmt.Fprintf(bw, "ATOM  %5d %s %3s %c%4d%c   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
					serial%100000, atomName(a.Name, a.Element), res.Name, id, res.Index%10000, icode,
					a.Coord.X, a.Coord.Y, a.Coord.Z, 1.0, 0.0, a.Element)
			}
			lastName, lastSeq, lastICode = res.Name, res.Index, icode
		}
		serial++
		fmt.Fprintf(bw, "TER   %5d      %3s %c%4d%c\n", serial%100000, lastName, id, lastSeq%10000, lastICode)
	}
	fmt.Fprintln(bw, "END")
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "flush failed")
	}
	return nil
}

// WriteFile writes m to path, creating parent directories.
func WriteFile(path string, m *assembly.Model) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "cannot create directory").WithDetail(dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "cannot create output").WithDetail(path)
	}
	if err := Write(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "close failed").WithDetail(path)
	}
	return nil
}

// atomName pads an atom name to the four-column field.  Names of
// one-letter elements shorter than four characters start in column 14.
func atomName(name, elem string) string {
	if len(name) < 4 && len(elem) < 2 {
		return fmt.Sprintf(" %-3s", name)
	}
	return fmt.Sprintf("%-4s", name)
}
