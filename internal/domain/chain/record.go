// Package chain defines the immutable chain records consumed by the
// assembly engine: a protein sequence, optionally its residues with atom
// coordinates, and the input group (source) it was read from.
package chain

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// CAName is the PDB atom name of the alpha carbon.
const CAName = "CA"

// Atom is a single atom position.
type Atom struct {
	Name    string
	Element string
	Coord   r3.Vec
}

// Residue is one residue of a structural chain.
type Residue struct {
	// Index is the residue sequence number as read from the structure.
	Index         int
	InsertionCode byte
	// Name is the three-letter residue name.
	Name  string
	Atoms []Atom
}

// CA returns the alpha-carbon position of the residue.
func (r Residue) CA() (r3.Vec, bool) {
	for _, a := range r.Atoms {
		if a.Name == CAName {
			return a.Coord, true
		}
	}
	return r3.Vec{}, false
}

// Record is a chain read from one input group.  Records are created by the
// input readers and are never mutated afterwards; every component treats them
// as read-only and shares them by pointer.
type Record struct {
	// ID is the chain identifier within its source (PDB chain id or FASTA id).
	ID string
	// SourceID identifies the input group (structure file or FASTA file).
	SourceID string
	// Sequence is the one-letter amino-acid sequence.
	Sequence string
	// Residues is empty for sequence-only records.  When present,
	// Residues[i] corresponds to Sequence[i].
	Residues []Residue
}

// NewSequenceRecord builds a sequence-only record.
func NewSequenceRecord(sourceID, id, sequence string) *Record {
	return &Record{
		ID:       id,
		SourceID: sourceID,
		Sequence: strings.ToUpper(sequence),
	}
}

// NewStructureRecord builds a structural record whose sequence is derived
// from the residue names.
func NewStructureRecord(sourceID, id string, residues []Residue) *Record {
	var sb strings.Builder
	sb.Grow(len(residues))
	for _, r := range residues {
		sb.WriteByte(OneLetter(r.Name))
	}
	return &Record{
		ID:       id,
		SourceID: sourceID,
		Sequence: sb.String(),
		Residues: residues,
	}
}

// Key is a stable identifier of the record across the whole run.
func (r *Record) Key() string {
	return r.SourceID + ":" + r.ID
}

// HasStructure reports whether the record carries coordinates.
func (r *Record) HasStructure() bool {
	return len(r.Residues) > 0
}

// Coords returns every atom position of the record in residue order.
func (r *Record) Coords() []r3.Vec {
	n := 0
	for _, res := range r.Residues {
		n += len(res.Atoms)
	}
	out := make([]r3.Vec, 0, n)
	for _, res := range r.Residues {
		for _, a := range res.Atoms {
			out = append(out, a.Coord)
		}
	}
	return out
}

// AtomCount returns the number of atoms in the record.
func (r *Record) AtomCount() int {
	n := 0
	for _, res := range r.Residues {
		n += len(res.Atoms)
	}
	return n
}
