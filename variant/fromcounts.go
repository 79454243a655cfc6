package variant

import (
	"fmt"

	"dmsvar/gene"
)

// CountInput is one row of a previously written variant count table,
// used to rebuild a Table.
type CountInput struct {
	Library       string
	Barcode       string
	Substitutions string
	Support       int
	Sample        string
	Count         int
}

// FromCountRows rebuilds a table from variant count rows, as written
// by CountRows. Rows of the merged library are dropped since they
// duplicate the per-library rows. Substitutions are codon-level.
// Samples are replayed in first-seen order, so a round trip through
// CountRows() preserves the table.
func FromCountRows(g *gene.Gene, rows []CountInput) (*Table, error) {
	type pair struct {
		library, barcode string
	}
	var bvRows []BarcodeVariant
	seen := make(map[pair]BarcodeVariant)
	for _, row := range rows {
		if row.Library == MergedLibrary {
			continue
		}
		k := pair{row.Library, row.Barcode}
		if prev, ok := seen[k]; ok {
			if prev.Substitutions != row.Substitutions || prev.Support != row.Support {
				return nil, fmt.Errorf("%w: conflicting variant for barcode %q in library %q",
					ErrSchema, row.Barcode, row.Library)
			}
			continue
		}
		bv := BarcodeVariant{
			Library:       row.Library,
			Barcode:       row.Barcode,
			Substitutions: row.Substitutions,
			Support:       row.Support,
		}
		seen[k] = bv
		bvRows = append(bvRows, bv)
	}

	t, err := New(g, bvRows, Options{SubsAreCodon: true})
	if err != nil {
		return nil, err
	}

	// Replay samples in first-seen order per library.
	type sampleKey struct {
		library, sample string
	}
	var order []sampleKey
	bySample := make(map[sampleKey][]BarcodeCount)
	for _, row := range rows {
		if row.Library == MergedLibrary {
			continue
		}
		k := sampleKey{row.Library, row.Sample}
		if _, ok := bySample[k]; !ok {
			order = append(order, k)
		}
		bySample[k] = append(bySample[k], BarcodeCount{
			Barcode: row.Barcode,
			Count:   row.Count,
		})
	}
	for _, k := range order {
		if err := t.AddSampleCounts(k.library, k.sample, bySample[k]); err != nil {
			return nil, err
		}
	}
	return t, nil
}
