package variant

import (
	"errors"
	"reflect"
	"testing"

	"dmsvar/bio"
)

// stopFree is one when the variant carries no stop codon and zero
// otherwise.
func stopFree(v *Variant) float64 {
	for _, m := range v.CodonSubs {
		if bio.GeneticCode[m.Mut] == bio.StopAA {
			return 0
		}
	}
	return 1
}

func TestSimulateSampleCounts(tst *testing.T) {
	t := testTable(tst)
	pre := PreSample{Name: "pre", Depth: 2000, Uniformity: 2}
	posts := []PostSample{
		{Name: "sel", Depth: 2000, Bottleneck: 500},
		{Name: "sel_noisy", Depth: 2000, Bottleneck: 500, Noise: 0.2},
	}
	if err := t.SimulateSampleCounts(stopFree, pre, posts, 42); err != nil {
		tst.Fatal("Error simulating counts:", err)
	}

	for _, lib := range t.Libraries() {
		samples, err := t.Samples(lib)
		if err != nil {
			tst.Fatal("Error:", err)
		}
		want := []string{"pre", "sel", "sel_noisy"}
		if !reflect.DeepEqual(samples, want) {
			tst.Error("Wrong samples for", lib, ":", samples)
		}
	}

	// Every sample's counts sum to its depth.
	sums := make(map[string]map[string]int)
	for _, row := range t.CountRows() {
		if sums[row.Library] == nil {
			sums[row.Library] = make(map[string]int)
		}
		sums[row.Library][row.Sample] += row.Count

		// The lib_2 AAC variant carries the GGA2TGA stop and cannot
		// survive selection.
		if row.Library == "lib_2" && row.Barcode == "AAC" &&
			row.Sample != "pre" && row.Count != 0 {
			tst.Error("Stop variant counted in", row.Sample, ":", row.Count)
		}
	}
	for lib, bys := range sums {
		for sample, sum := range bys {
			if sum != 2000 {
				tst.Error("Counts for", lib, sample, "sum to", sum)
			}
		}
	}

	// The same seed reproduces the same counts.
	t2 := testTable(tst)
	if err := t2.SimulateSampleCounts(stopFree, pre, posts, 42); err != nil {
		tst.Fatal("Error simulating counts:", err)
	}
	if !reflect.DeepEqual(t.CountRows(), t2.CountRows()) {
		tst.Error("Same seed produced different counts")
	}
}

func TestSimulateSampleCountsErrors(tst *testing.T) {
	t := testTable(tst)
	pre := PreSample{Name: "pre", Depth: 100, Uniformity: 1}
	post := PostSample{Name: "sel", Depth: 100, Bottleneck: 10}

	err := t.SimulateSampleCounts(nil, pre, nil, 1)
	if !errors.Is(err, ErrSchema) {
		tst.Error("Expected ErrSchema for nil phenotype, got", err)
	}

	err = t.SimulateSampleCounts(stopFree,
		PreSample{Name: "pre", Depth: 0, Uniformity: 1}, nil, 1)
	if !errors.Is(err, ErrSchema) {
		tst.Error("Expected ErrSchema for zero depth, got", err)
	}

	err = t.SimulateSampleCounts(stopFree, pre,
		[]PostSample{post, post}, 1)
	if !errors.Is(err, ErrDuplicateSample) {
		tst.Error("Expected ErrDuplicateSample for repeated name, got", err)
	}

	negative := func(v *Variant) float64 { return -1 }
	err = t.SimulateSampleCounts(negative, pre, nil, 1)
	if !errors.Is(err, ErrSchema) {
		tst.Error("Expected ErrSchema for negative phenotype, got", err)
	}
	if len(t.CountRows()) != 0 {
		tst.Error("Failed simulation modified the count table")
	}

	addTestCounts(tst, t)
	err = t.SimulateSampleCounts(stopFree,
		PreSample{Name: "input", Depth: 100, Uniformity: 1}, nil, 1)
	if !errors.Is(err, ErrDuplicateSample) {
		tst.Error("Expected ErrDuplicateSample for existing sample, got", err)
	}
}
