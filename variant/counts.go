package variant

import (
	"fmt"
	"sort"
)

// BarcodeCount is one barcode's read count in a sample.
type BarcodeCount struct {
	Barcode string
	Count   int
}

// AddSampleCounts adds the counts of one sample to one library. The
// barcode set must exactly match the library's valid barcodes, every
// count must be non-negative, and the sample must not already exist
// for the library. The operation is atomic: validation failures leave
// the table unchanged.
func (t *Table) AddSampleCounts(library, sample string, counts []BarcodeCount) error {
	lib, ok := t.byKey[library]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLibrary, library)
	}
	if sample == "" {
		return fmt.Errorf("%w: empty sample name", ErrSchema)
	}
	for _, s := range t.samples[library] {
		if s == sample {
			return fmt.Errorf("%w: %q already in library %q",
				ErrDuplicateSample, sample, library)
		}
	}

	seen := make(map[string]bool, len(counts))
	for _, c := range counts {
		if c.Count < 0 {
			return fmt.Errorf("%w: negative count %d for barcode %q",
				ErrSchema, c.Count, c.Barcode)
		}
		if seen[c.Barcode] {
			return fmt.Errorf("%w: %q in counts for sample %q",
				ErrDuplicateBarcode, c.Barcode, sample)
		}
		seen[c.Barcode] = true
		if lib[c.Barcode] == nil {
			return fmt.Errorf("%w: barcode %q not in library %q",
				ErrBarcodeMismatch, c.Barcode, library)
		}
	}
	if len(seen) != len(lib) {
		return fmt.Errorf("%w: %d barcodes counted, library %q has %d",
			ErrBarcodeMismatch, len(seen), library, len(lib))
	}

	rows := make([]CountRow, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, CountRow{
			Variant: *lib[c.Barcode],
			Sample:  sample,
			Count:   c.Count,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})

	t.samples[library] = append(t.samples[library], sample)
	t.counts = append(t.counts, rows...)
	t.sortCounts()

	log.Infof("added %d counts for sample %q to library %q",
		len(counts), sample, library)
	return nil
}

// sortCounts restores the canonical ordering of the count table:
// libraries in sorted order, samples in first-seen order, counts
// descending within each (library, sample). The sort is stable so
// equal counts keep their relative order.
func (t *Table) sortCounts() {
	libIdx := indexOf(t.libraries)
	smpIdx := indexOf(t.sampleOrder())
	sort.SliceStable(t.counts, func(i, j int) bool {
		a, b := &t.counts[i], &t.counts[j]
		if libIdx[a.Library] != libIdx[b.Library] {
			return libIdx[a.Library] < libIdx[b.Library]
		}
		if smpIdx[a.Sample] != smpIdx[b.Sample] {
			return smpIdx[a.Sample] < smpIdx[b.Sample]
		}
		return a.Count > b.Count
	})
}

// MergedRows returns the count rows with an additional copy of every
// row under the MergedLibrary name. Merged rows get the barcode
// rewritten to "<library>-<barcode>" so barcodes stay unique within
// the merged library.
func MergedRows(rows []CountRow) ([]CountRow, error) {
	merged := make([]CountRow, 0, 2*len(rows))
	seen := make(map[string]map[string]bool)
	for _, row := range rows {
		if row.Library == MergedLibrary {
			return nil, fmt.Errorf("%w: library named %q",
				ErrSchema, MergedLibrary)
		}
		merged = append(merged, row)
	}
	for _, row := range rows {
		m := row
		m.Library = MergedLibrary
		m.Barcode = row.Library + "-" + row.Barcode
		bySample := seen[m.Sample]
		if bySample == nil {
			bySample = make(map[string]bool)
			seen[m.Sample] = bySample
		}
		if bySample[m.Barcode] {
			return nil, fmt.Errorf("%w: merged barcode %q in sample %q",
				ErrDuplicateBarcode, m.Barcode, m.Sample)
		}
		bySample[m.Barcode] = true
		merged = append(merged, m)
	}
	return merged, nil
}

// Selection restricts which count rows an aggregation operates on.
type Selection struct {
	// Libraries restricts to these libraries; nil means all. The
	// MergedLibrary name selects the merged copies of all rows.
	Libraries []string
	// Samples restricts to these samples; nil means all. The NoSample
	// name selects the barcoded variants themselves, each with a
	// count of 1.
	Samples []string
	// MinSupport drops rows whose variant call support is below this
	// value.
	MinSupport int
}

// selectRows returns the rows matching the selection along with the
// library and sample orderings the selection spans. The orderings
// drive zero-count enumeration: every selected (library, sample) pair
// appears in aggregated output even when no row survives for it.
func (t *Table) selectRows(sel Selection) ([]CountRow, []string, []string, error) {
	libs := sel.Libraries
	if libs == nil {
		libs = t.libraries
	}
	wantMerged := false
	libSeen := make(map[string]bool, len(libs))
	for _, lib := range libs {
		if libSeen[lib] {
			return nil, nil, nil, fmt.Errorf("%w: library %q selected twice",
				ErrSchema, lib)
		}
		libSeen[lib] = true
		if lib == MergedLibrary {
			wantMerged = true
		} else if _, ok := t.byKey[lib]; !ok {
			return nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownLibrary, lib)
		}
	}

	samples := sel.Samples
	variantsOnly := false
	if samples == nil {
		samples = t.sampleOrder()
		if len(samples) == 0 {
			return nil, nil, nil, ErrNoCounts
		}
	} else {
		known := make(map[string]bool)
		for _, s := range t.sampleOrder() {
			known[s] = true
		}
		smpSeen := make(map[string]bool, len(samples))
		for _, s := range samples {
			if smpSeen[s] {
				return nil, nil, nil, fmt.Errorf("%w: sample %q selected twice",
					ErrSchema, s)
			}
			smpSeen[s] = true
			if s == NoSample {
				variantsOnly = true
			} else if !known[s] {
				return nil, nil, nil, fmt.Errorf("%w for sample %q",
					ErrNoCounts, s)
			}
		}
		// The variant listing stands in for all samples and cannot be
		// combined with real sample names.
		if variantsOnly && len(samples) > 1 {
			return nil, nil, nil, fmt.Errorf("%w: %q mixed with sample names",
				ErrSchema, NoSample)
		}
	}

	var rows []CountRow
	if variantsOnly {
		for i := range t.variants {
			rows = append(rows, CountRow{
				Variant: t.variants[i],
				Sample:  NoSample,
				Count:   1,
			})
		}
	} else {
		rows = t.counts
	}
	if wantMerged {
		var err error
		rows, err = MergedRows(rows)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	libSet := make(map[string]bool, len(libs))
	for _, lib := range libs {
		libSet[lib] = true
	}
	smpSet := make(map[string]bool, len(samples))
	for _, s := range samples {
		smpSet[s] = true
	}

	var out []CountRow
	for _, row := range rows {
		if !libSet[row.Library] || !smpSet[row.Sample] {
			continue
		}
		if row.Support < sel.MinSupport {
			continue
		}
		out = append(out, row)
	}
	return out, libs, samples, nil
}

// NVariants counts the selected variants per (library, sample) pair.
// Pairs with no surviving rows report zero.
func (t *Table) NVariants(sel Selection) (map[string]map[string]int, error) {
	rows, libs, samples, err := t.selectRows(sel)
	if err != nil {
		return nil, err
	}
	n := make(map[string]map[string]int, len(libs))
	for _, lib := range libs {
		n[lib] = make(map[string]int, len(samples))
		for _, s := range samples {
			n[lib][s] = 0
		}
	}
	for _, row := range rows {
		n[row.Library][row.Sample]++
	}
	return n, nil
}
