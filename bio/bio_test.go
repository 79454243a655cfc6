package bio

import (
	"strings"
	"testing"
)

func TestTranslate(tst *testing.T) {
	prot, err := Translate("ATGGGATGA")
	if err != nil {
		tst.Error("Error: ", err)
	}
	if prot != "MG*" {
		tst.Error("Expected MG*, got", prot)
	}

	prot, err = Translate("auggga")
	if err != nil {
		tst.Error("Error: ", err)
	}
	if prot != "MG" {
		tst.Error("Expected MG, got", prot)
	}

	_, err = Translate("ATGG")
	if err == nil {
		tst.Error("Expected error for length not divisible by 3")
	}

	_, err = Translate("ATGNNN")
	if err == nil {
		tst.Error("Expected error for unknown codon")
	}
}

func TestCodons(tst *testing.T) {
	if len(Codons) != 64 {
		tst.Error("Expected 64 codons, got", len(Codons))
	}
	if Codons[0] != "AAA" || Codons[63] != "TTT" {
		tst.Error("Codons not in lexicographic order:", Codons[0], Codons[63])
	}
	for i := 1; i < len(Codons); i++ {
		if Codons[i-1] >= Codons[i] {
			tst.Error("Codons out of order at", i)
		}
	}
}

func TestGeneticCode(tst *testing.T) {
	if len(GeneticCode) != 64 {
		tst.Error("Expected 64 entries in the genetic code")
	}
	nstop := 0
	for _, codon := range Codons {
		if IsStopCodon(codon) {
			nstop++
		}
	}
	if nstop != 3 {
		tst.Error("Expected 3 stop codons, got", nstop)
	}
}

func TestRGeneticCode(tst *testing.T) {
	total := 0
	for aa, codons := range RGeneticCode {
		for _, codon := range codons {
			if GeneticCode[codon] != aa {
				tst.Errorf("Codon %s maps to %c, not %c", codon, GeneticCode[codon], aa)
			}
		}
		total += len(codons)
	}
	if total != 64 {
		tst.Error("Expected 64 codons in the reverse code, got", total)
	}
	if len(RGeneticCode[StopAA]) != 3 {
		tst.Error("Expected 3 stop codons in the reverse code")
	}
}

func TestAminoAcids(tst *testing.T) {
	if len(AminoAcids) != 21 {
		tst.Error("Expected 21 amino acids with stop, got", len(AminoAcids))
	}
	if AminoAcids[len(AminoAcids)-1] != StopAA {
		tst.Error("Expected stop symbol last")
	}
	for i := 1; i < len(AminoAcids)-1; i++ {
		if AminoAcids[i-1] >= AminoAcids[i] {
			tst.Error("Amino acids out of order at", i)
		}
	}
}

func TestParseFasta(tst *testing.T) {
	in := ">gene\nATG GGA\ntga\n"
	seqs, err := ParseFasta(strings.NewReader(in))
	if err != nil {
		tst.Error("Error: ", err)
	}
	if len(seqs) != 1 {
		tst.Fatal("Expected one sequence, got", len(seqs))
	}
	if seqs[0].Name != "gene" || seqs[0].Sequence != "ATGGGATGA" {
		tst.Errorf("Unexpected sequence %v", seqs[0])
	}
}
