// Package gene represents a wildtype protein-coding reference gene
// and substitutions of it at the nucleotide, codon and amino-acid
// level.
package gene

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"dmsvar/bio"
)

// Errors returned when validating reference genes and mutation sets.
var (
	ErrInvalidReference  = errors.New("invalid reference gene")
	ErrInvalidMutation   = errors.New("invalid mutation")
	ErrDuplicateMutation = errors.New("duplicate mutation")
)

var validSeq = regexp.MustCompile(`^[ATGC]+$`)

// Gene is an immutable wildtype protein-coding sequence split into
// codon sites in 1, 2, ... numbering.
type Gene struct {
	seq    string
	codons []string
	aas    []byte
}

// New validates a gene sequence and returns a Gene. The sequence is
// uppercased; it must be non-empty, of length divisible by three and
// contain only A, T, G and C.
func New(seq string) (*Gene, error) {
	seq = strings.ToUpper(seq)
	if len(seq) == 0 || len(seq)%3 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a positive multiple of 3",
			ErrInvalidReference, len(seq))
	}
	if !validSeq.MatchString(seq) {
		return nil, fmt.Errorf("%w: invalid nucleotides in sequence",
			ErrInvalidReference)
	}
	g := &Gene{
		seq:    seq,
		codons: make([]string, len(seq)/3),
		aas:    make([]byte, len(seq)/3),
	}
	for i := range g.codons {
		codon := seq[3*i : 3*i+3]
		g.codons[i] = codon
		g.aas[i] = bio.GeneticCode[codon]
	}
	return g, nil
}

// Sequence returns the wildtype nucleotide sequence.
func (g *Gene) Sequence() string { return g.seq }

// NSites returns the number of codon sites.
func (g *Gene) NSites() int { return len(g.codons) }

// Sites returns all codon sites in 1, 2, ... numbering.
func (g *Gene) Sites() []int {
	sites := make([]int, len(g.codons))
	for i := range sites {
		sites[i] = i + 1
	}
	return sites
}

// Codon returns the wildtype codon at site r (1-based).
func (g *Gene) Codon(r int) string { return g.codons[r-1] }

// AA returns the wildtype amino acid at site r (1-based).
func (g *Gene) AA(r int) byte { return g.aas[r-1] }
