// Package bio provides the genetic code and helpers for nucleotide
// sequences.
package bio

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"sort"
	"strings"
)

// Nucleotides is the DNA alphabet in the order used to enumerate
// codons.
const Nucleotides = "ACGT"

// StopAA is the amino-acid symbol for a stop codon.
const StopAA = byte('*')

var (
	// GeneticCode is a map, codon string (capital letters) is the key,
	// amino acids (capital letter, '*' for stop) are values.
	GeneticCode = map[string]byte{
		"ATA": 'I', "ATC": 'I', "ATT": 'I', "ATG": 'M',
		"ACA": 'T', "ACC": 'T', "ACG": 'T', "ACT": 'T',
		"AAC": 'N', "AAT": 'N', "AAA": 'K', "AAG": 'K',
		"AGC": 'S', "AGT": 'S', "AGA": 'R', "AGG": 'R',
		"CTA": 'L', "CTC": 'L', "CTG": 'L', "CTT": 'L',
		"CCA": 'P', "CCC": 'P', "CCG": 'P', "CCT": 'P',
		"CAC": 'H', "CAT": 'H', "CAA": 'Q', "CAG": 'Q',
		"CGA": 'R', "CGC": 'R', "CGG": 'R', "CGT": 'R',
		"GTA": 'V', "GTC": 'V', "GTG": 'V', "GTT": 'V',
		"GCA": 'A', "GCC": 'A', "GCG": 'A', "GCT": 'A',
		"GAC": 'D', "GAT": 'D', "GAA": 'E', "GAG": 'E',
		"GGA": 'G', "GGC": 'G', "GGG": 'G', "GGT": 'G',
		"TCA": 'S', "TCC": 'S', "TCG": 'S', "TCT": 'S',
		"TTC": 'F', "TTT": 'F', "TTA": 'L', "TTG": 'L',
		"TAC": 'Y', "TAT": 'Y', "TAA": '*', "TAG": '*',
		"TGC": 'C', "TGT": 'C', "TGA": '*', "TGG": 'W'}
	// RGeneticCode is mapping amino acids to their codons, sorted.
	RGeneticCode map[byte][]string
	// Codons lists all 64 codons in lexicographic order.
	Codons []string
	// AminoAcids lists the 20 amino acids alphabetically, with the
	// stop symbol last.
	AminoAcids []byte
)

func init() {
	Codons = make([]string, 0, 64)
	for _, n1 := range Nucleotides {
		for _, n2 := range Nucleotides {
			for _, n3 := range Nucleotides {
				Codons = append(Codons, string([]rune{n1, n2, n3}))
			}
		}
	}

	RGeneticCode = make(map[byte][]string, 21)
	for _, codon := range Codons {
		aa := GeneticCode[codon]
		RGeneticCode[aa] = append(RGeneticCode[aa], codon)
	}

	AminoAcids = make([]byte, 0, 21)
	for aa := range RGeneticCode {
		if aa != StopAA {
			AminoAcids = append(AminoAcids, aa)
		}
	}
	sort.Slice(AminoAcids, func(i, j int) bool {
		return AminoAcids[i] < AminoAcids[j]
	})
	AminoAcids = append(AminoAcids, StopAA)
}

// Translate translates a nucleotide sequence string into the protein
// string, stop codons rendered as '*'. Error is returned if sequence
// length is not divisible by three or a wrong codon is encountered.
func Translate(nseq string) (string, error) {
	var buffer bytes.Buffer

	if len(nseq)%3 != 0 {
		return "", errors.New("sequence length doesn't divide by 3")
	}

	// Convert all the letters to uppercase and U->T.
	nseq = strings.Replace(strings.ToUpper(nseq), "U", "T", -1)

	for i := 0; i < len(nseq); i += 3 {
		aa, ok := GeneticCode[nseq[i:i+3]]
		if !ok {
			return buffer.String(), errors.New("unknown codon")
		}
		buffer.WriteByte(aa)
	}
	return buffer.String(), nil
}

// IsStopCodon tests if the string is a stop-codon (DNA alphabet,
// capital letters).
func IsStopCodon(codon string) bool {
	return GeneticCode[codon] == StopAA
}

// Sequence is a type which is intended for storing nucleotide or
// protein sequence with it's name.
type Sequence struct {
	Name     string
	Sequence string
}

// Sequences stores multiple sequences.
type Sequences []Sequence

// ParseFasta parses FASTA sequences from a reader.
func ParseFasta(rd io.Reader) (seqs Sequences, err error) {
	seqs = make(Sequences, 0, 10)
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			seq := Sequence{Name: line[1:]}
			seqs = append(seqs, seq)
		} else {
			if len(seqs) == 0 {
				return nil, errors.New("sequence w/o prefix")
			}
			line = strings.ToUpper(strings.Replace(line, " ", "", -1))
			seqs[len(seqs)-1].Sequence += line
		}
	}
	return
}
