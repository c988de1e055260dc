package formats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mcbuilder/internal/testutil"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func caLine(serial int, chainID byte, seq int, x float64) string {
	return fmt.Sprintf("ATOM  %5d  CA  ALA %c%4d    %8.3f%8.3f%8.3f  1.00  0.00           C",
		serial, chainID, seq, x, 0.0, 0.0)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindFASTA, KindOf("a/b.fa"))
	assert.Equal(t, KindFASTA, KindOf("b.FASTA"))
	assert.Equal(t, KindPDB, KindOf("1abc.pdb"))
	assert.Equal(t, KindUnknown, KindOf("notes.txt"))
	assert.Equal(t, KindUnknown, KindOf("pdb"))
}

func TestDiscover_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.pdb", "")
	writeFile(t, dir, "a.pdb", "")
	writeFile(t, dir, "seqs.fa", "")
	writeFile(t, dir, "README.md", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdb"), 0o755))

	in, err := Discover([]string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "seqs.fa")}, in.FASTA)
	assert.Equal(t, []string{filepath.Join(dir, "a.pdb"), filepath.Join(dir, "b.pdb")}, in.PDB)
}

func TestDiscover_FilesAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	fa := writeFile(t, dir, "x.fasta", "")
	pdb := writeFile(t, dir, "1x.pdb", "")
	txt := writeFile(t, dir, "x.txt", "")

	logger := testutil.NewMockLogger()
	in, err := Discover([]string{pdb, fa, dir, txt}, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{fa}, in.FASTA)
	assert.Equal(t, []string{pdb}, in.PDB)
	assert.True(t, logger.HasMessage("warn", "ignoring input with unknown extension"))
}

func TestDiscover_Errors(t *testing.T) {
	empty := t.TempDir()
	_, err := Discover([]string{empty}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoInputFiles))

	onlyFasta := t.TempDir()
	writeFile(t, onlyFasta, "a.fa", "")
	_, err = Discover([]string{onlyFasta}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingInputKind))

	onlyPDB := t.TempDir()
	writeFile(t, onlyPDB, "a.pdb", "")
	_, err = Discover([]string{onlyPDB}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingInputKind))

	_, err = Discover([]string{filepath.Join(empty, "missing")}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoInputFiles))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seqs.fa", ">x\nAAA\n>y\nAAAA\n")
	writeFile(t, dir, "1xy.pdb", strings.Join([]string{
		caLine(1, 'A', 1, 0), caLine(2, 'A', 2, 3.8), caLine(3, 'A', 3, 7.6),
		caLine(4, 'B', 1, 0), caLine(5, 'B', 2, 3.8), caLine(6, 'B', 3, 7.6), caLine(7, 'B', 4, 11.4),
	}, "\n"))
	writeFile(t, dir, "2w.pdb", "HEADER EMPTY\n")

	in, err := Discover([]string{dir}, nil)
	require.NoError(t, err)
	logger := testutil.NewMockLogger()
	recs, err := Load(context.Background(), in, 4, logger)
	require.NoError(t, err)

	keys := make([]string, len(recs))
	for i, r := range recs {
		keys[i] = r.Key()
	}
	assert.Equal(t, []string{"seqs.fa:x", "seqs.fa:y", "1xy.pdb:A", "1xy.pdb:B"}, keys)
	assert.Equal(t, "AAAA", recs[3].Sequence)
	assert.True(t, logger.HasMessage("warn", "no protein chain in structure"))
}

func TestLoad_ParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seqs.fa", "AAA\n")
	writeFile(t, dir, "1x.pdb", caLine(1, 'A', 1, 0))
	in, err := Discover([]string{dir}, nil)
	require.NoError(t, err)
	_, err = Load(context.Background(), in, 2, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSequenceParse))
}

func TestLoad_SameNameInDifferentDirectories(t *testing.T) {
	root := t.TempDir()
	d1, d2 := filepath.Join(root, "d1"), filepath.Join(root, "d2")
	require.NoError(t, os.Mkdir(d1, 0o755))
	require.NoError(t, os.Mkdir(d2, 0o755))
	writeFile(t, d1, "seqs.fa", ">x\nAAA\n")
	p1 := writeFile(t, d1, "pair.pdb", strings.Join([]string{caLine(1, 'A', 1, 0), caLine(2, 'B', 1, 5)}, "\n"))
	p2 := writeFile(t, d2, "pair.pdb", strings.Join([]string{caLine(1, 'A', 1, 0), caLine(2, 'B', 1, 5)}, "\n"))

	in, err := Discover([]string{d1, d2}, nil)
	require.NoError(t, err)
	assert.Equal(t, "seqs.fa", in.SourceID(filepath.Join(d1, "seqs.fa")))
	assert.Equal(t, filepath.ToSlash(p1), in.SourceID(p1))
	assert.Equal(t, filepath.ToSlash(p2), in.SourceID(p2))

	recs, err := Load(context.Background(), in, 2, nil)
	require.NoError(t, err)
	keys := make(map[string]bool)
	for _, r := range recs {
		keys[r.Key()] = true
	}
	assert.Len(t, keys, 5)
	assert.True(t, keys[filepath.ToSlash(p1)+":A"])
	assert.True(t, keys[filepath.ToSlash(p2)+":B"])
}
