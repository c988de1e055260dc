// Package fixtures writes small input sets to disk for tests that exercise
// the file-based pipeline.
package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/mcbuilder/internal/domain/assembly"
	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/infrastructure/formats/pdb"
	"github.com/turtacn/mcbuilder/internal/testutil"
)

// WriteFASTA writes the given id/sequence pairs to dir/name.
func WriteFASTA(t testing.TB, dir, name string, entries ...string) {
	t.Helper()
	var b []byte
	for i := 0; i+1 < len(entries); i += 2 {
		b = append(b, '>')
		b = append(b, entries[i]...)
		b = append(b, '\n')
		b = append(b, entries[i+1]...)
		b = append(b, '\n')
	}
	if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// WriteStructure writes recs as one PDB file, chains in order.
func WriteStructure(t testing.TB, path string, recs ...*chain.Record) {
	t.Helper()
	chains := make([]assembly.PlacedChain, len(recs))
	for i, r := range recs {
		chains[i] = assembly.PlacedChain{Label: r.ID, SourceKey: r.Key(), Sequence: r.Sequence, Residues: r.Residues}
	}
	if err := pdb.WriteFile(path, assembly.NewModel(chains)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// XYZ returns a temporary directory holding seqs.fa (X, Y, Z), 1xy.pdb with
// an X-Y contact and 2yz.pdb with a Y-Z contact deposited in a rotated frame.
// Assembled greedily they give the linear complex X-Y-Z.
func XYZ(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	WriteFASTA(t, dir, "seqs.fa", "X", testutil.SeqX, "Y", testutil.SeqY, "Z", testutil.SeqZ)
	zAxis := r3.Vec{Z: 1}
	WriteStructure(t, filepath.Join(dir, "1xy.pdb"),
		testutil.Helix("1xy", "A", testutil.SeqX, testutil.Shift(0, 0, 0)),
		testutil.Helix("1xy", "B", testutil.SeqY, testutil.Shift(10, 0, 0)))
	WriteStructure(t, filepath.Join(dir, "2yz.pdb"),
		testutil.Helix("2yz", "A", testutil.SeqY, testutil.Frame(zAxis, 90, 0, 0, 0)),
		testutil.Helix("2yz", "B", testutil.SeqZ, testutil.Frame(zAxis, 90, 0, 10, 0)))
	return dir
}
