package variant

import (
	"testing"
)

func findMutCount(counts []MutCount, library, sample, mutation string) (MutCount, bool) {
	for _, c := range counts {
		if c.Library == library && c.Sample == sample && c.Mutation == mutation {
			return c, true
		}
	}
	return MutCount{}, false
}

func TestMutCountsCodon(tst *testing.T) {
	t := testTable(tst)
	addTestCounts(tst, t)

	counts, err := t.MutCounts(AllMutants, ByCodon, Selection{})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	// 3 sites x 63 mutant codons, for 2 libraries x 2 samples.
	if len(counts) != 3*63*4 {
		tst.Fatal("Expected", 3*63*4, "rows, got", len(counts))
	}

	expected := []struct {
		library, sample, mutation string
		count                     int
		typ                       MutationType
	}{
		{"lib_1", "input", "GGA2CGC", 1101, Nonsynonymous},
		{"lib_1", "selected", "GGA2CGC", 401, Nonsynonymous},
		{"lib_2", "input", "ATG1AAG", 1253, Nonsynonymous},
		{"lib_2", "input", "GGA2TGA", 1253, Stop},
		{"lib_2", "input", "GGA2GGC", 923, Synonymous},
		{"lib_2", "selected", "ATG1AAG", 113, Nonsynonymous},
		{"lib_2", "selected", "GGA2TGA", 113, Stop},
		{"lib_2", "selected", "GGA2GGC", 1200, Synonymous},
		// Unobserved mutations report zero.
		{"lib_1", "input", "ATG1AAA", 0, Nonsynonymous},
		{"lib_1", "input", "ATG1ATA", 0, Nonsynonymous},
		// Stop to stop translates identically, so it is synonymous.
		{"lib_1", "input", "TGA3TAA", 0, Synonymous},
		{"lib_1", "input", "TGA3TAG", 0, Synonymous},
		{"lib_1", "input", "TGA3TGG", 0, Nonsynonymous},
		{"lib_1", "input", "ATG1TGA", 0, Stop},
	}
	for _, e := range expected {
		c, ok := findMutCount(counts, e.library, e.sample, e.mutation)
		if !ok {
			tst.Error("Missing mutation", e.mutation, "for", e.library, e.sample)
			continue
		}
		if c.Count != e.count {
			tst.Error("Expected count", e.count, "for", e.mutation, ", got", c.Count)
		}
		if c.Type != e.typ {
			tst.Error("Expected type", e.typ, "for", e.mutation, ", got", c.Type)
		}
	}

	// Counts descend within each (library, sample) block.
	if counts[0].Library != "lib_1" || counts[0].Sample != "input" ||
		counts[0].Mutation != "GGA2CGC" {
		tst.Error("Wrong leading row:", counts[0])
	}
}

func TestMutCountsSingle(tst *testing.T) {
	t := testTable(tst)
	addTestCounts(tst, t)

	counts, err := t.MutCounts(SingleMutants, ByCodon,
		Selection{Libraries: []string{"lib_2"}, Samples: []string{"input"}})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if len(counts) != 3*63 {
		tst.Fatal("Expected", 3*63, "rows, got", len(counts))
	}
	// The double mutant is excluded; only the single mutant counts.
	for _, c := range counts {
		switch {
		case c.Mutation == "GGA2GGC":
			if c.Count != 923 {
				tst.Error("Expected 923 for GGA2GGC, got", c.Count)
			}
		case c.Count != 0:
			tst.Error("Unexpected nonzero count for", c.Mutation, ":", c.Count)
		}
	}
}

func TestMutCountsNoSample(tst *testing.T) {
	t := testTable(tst)

	// The variant listing works without any sample counts: every
	// barcoded variant counts once and the zero-count universe is
	// still enumerated in full.
	counts, err := t.MutCounts(AllMutants, ByCodon,
		Selection{Samples: []string{NoSample}})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if len(counts) != 3*63*2 {
		tst.Fatal("Expected", 3*63*2, "rows, got", len(counts))
	}
	nonzero := map[string]map[string]int{
		"lib_1": {"GGA2CGC": 1},
		"lib_2": {"ATG1AAG": 1, "GGA2TGA": 1, "GGA2GGC": 1},
	}
	for _, c := range counts {
		if c.Sample != NoSample {
			tst.Fatal("Expected variant-only sample, got", c.Sample)
		}
		if c.Count != nonzero[c.Library][c.Mutation] {
			tst.Error("Wrong count for", c.Library, c.Mutation, ":", c.Count)
		}
	}

	counts, err = t.MutCounts(AllMutants, ByAminoAcid,
		Selection{Samples: []string{NoSample}})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if len(counts) != 3*20*2 {
		tst.Fatal("Expected", 3*20*2, "rows, got", len(counts))
	}
	nonzero = map[string]map[string]int{
		"lib_1": {"G2R": 1},
		"lib_2": {"M1K": 1, "G2*": 1},
	}
	for _, c := range counts {
		if c.Count != nonzero[c.Library][c.Mutation] {
			tst.Error("Wrong count for", c.Library, c.Mutation, ":", c.Count)
		}
	}
}

func TestMutCountsAA(tst *testing.T) {
	t := testTable(tst)
	addTestCounts(tst, t)

	counts, err := t.MutCounts(AllMutants, ByAminoAcid, Selection{})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	// 3 sites x 20 mutant amino acids, for 2 libraries x 2 samples.
	if len(counts) != 3*20*4 {
		tst.Fatal("Expected", 3*20*4, "rows, got", len(counts))
	}

	for _, e := range []struct {
		mutation string
		count    int
	}{
		{"M1K", 1253},
		{"G2*", 1253},
		{"G2R", 0},
	} {
		c, ok := findMutCount(counts, "lib_2", "input", e.mutation)
		if !ok {
			tst.Error("Missing mutation", e.mutation)
			continue
		}
		if c.Count != e.count {
			tst.Error("Expected count", e.count, "for", e.mutation, ", got", c.Count)
		}
	}

	// Single amino-acid mutants: the synonymous single codon mutant
	// has no amino-acid mutation and the double mutant has two, so
	// only lib_1's GAT contributes.
	counts, err = t.MutCounts(SingleMutants, ByAminoAcid, Selection{})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	for _, c := range counts {
		switch {
		case c.Library == "lib_1" && c.Mutation == "G2R" && c.Sample == "input":
			if c.Count != 1101 {
				tst.Error("Expected 1101 for G2R, got", c.Count)
			}
		case c.Library == "lib_1" && c.Mutation == "G2R" && c.Sample == "selected":
			if c.Count != 401 {
				tst.Error("Expected 401 for G2R, got", c.Count)
			}
		case c.Count != 0:
			tst.Error("Unexpected nonzero count for", c.Library, c.Sample, c.Mutation)
		}
	}
}
