package chain

import "strings"

var threeToOne = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
	"SEC": 'U', "PYL": 'O', "ASX": 'B', "GLX": 'Z',
	// modified residues deposited as HETATM
	"MSE": 'M', "SEP": 'S', "TPO": 'T', "PTR": 'Y', "HYP": 'P',
	"MLY": 'K', "CSO": 'C', "KCX": 'K',
}

var oneToThree = map[byte]string{
	'A': "ALA", 'R': "ARG", 'N': "ASN", 'D': "ASP", 'C': "CYS",
	'Q': "GLN", 'E': "GLU", 'G': "GLY", 'H': "HIS", 'I': "ILE",
	'L': "LEU", 'K': "LYS", 'M': "MET", 'F': "PHE", 'P': "PRO",
	'S': "SER", 'T': "THR", 'W': "TRP", 'Y': "TYR", 'V': "VAL",
	'U': "SEC", 'O': "PYL", 'B': "ASX", 'Z': "GLX",
}

// OneLetter maps a three-letter residue name to its one-letter code.
// Unknown names map to 'X'.
func OneLetter(name string) byte {
	if c, ok := threeToOne[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return c
	}
	return 'X'
}

// ThreeLetter maps a one-letter code to its three-letter residue name.
// Unknown codes map to "UNK".
func ThreeLetter(code byte) string {
	if n, ok := oneToThree[code]; ok {
		return n
	}
	return "UNK"
}

// IsAminoAcid reports whether name is a recognised amino-acid residue name.
func IsAminoAcid(name string) bool {
	_, ok := threeToOne[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}
