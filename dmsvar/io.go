package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dmsvar/bio"
	"dmsvar/gene"
	"dmsvar/variant"
)

// readGene reads the reference gene from the first fasta record.
func readGene(fileName string) (*gene.Gene, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seqs, err := bio.ParseFasta(f)
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("no sequences in %s", fileName)
	}
	if len(seqs) > 1 {
		log.Warningf("%s has %d sequences, using the first (%s)",
			fileName, len(seqs), seqs[0].Name)
	}
	return gene.New(seqs[0].Sequence)
}

// headerIndex maps column names to positions, verifying the required
// columns are present.
func headerIndex(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", variant.ErrSchema, name)
		}
	}
	return idx, nil
}

// readVariantsCSV reads the barcode-variant table. Expected columns:
// library, barcode, substitutions, variant_call_support, plus any
// requested extra columns.
func readVariantsCSV(fileName string, extraCols []string) ([]variant.BarcodeVariant, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty variant table %s", variant.ErrSchema, fileName)
	}
	required := append([]string{"library", "barcode", "substitutions", "variant_call_support"},
		extraCols...)
	idx, err := headerIndex(records[0], required)
	if err != nil {
		return nil, err
	}

	rows := make([]variant.BarcodeVariant, 0, len(records)-1)
	for _, record := range records[1:] {
		support, err := strconv.Atoi(record[idx["variant_call_support"]])
		if err != nil {
			return nil, fmt.Errorf("%w: bad variant_call_support %q",
				variant.ErrSchema, record[idx["variant_call_support"]])
		}
		row := variant.BarcodeVariant{
			Library:       record[idx["library"]],
			Barcode:       record[idx["barcode"]],
			Substitutions: record[idx["substitutions"]],
			Support:       support,
		}
		if len(extraCols) > 0 {
			row.Extra = make(map[string]string, len(extraCols))
			for _, col := range extraCols {
				row.Extra[col] = record[idx[col]]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readCountsCSV reads barcode counts. Expected columns: barcode,
// count.
func readCountsCSV(fileName string) ([]variant.BarcodeCount, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty counts file %s", variant.ErrSchema, fileName)
	}
	idx, err := headerIndex(records[0], []string{"barcode", "count"})
	if err != nil {
		return nil, err
	}

	counts := make([]variant.BarcodeCount, 0, len(records)-1)
	for _, record := range records[1:] {
		count, err := strconv.Atoi(record[idx["count"]])
		if err != nil {
			return nil, fmt.Errorf("%w: bad count %q", variant.ErrSchema,
				record[idx["count"]])
		}
		counts = append(counts, variant.BarcodeCount{
			Barcode: record[idx["barcode"]],
			Count:   count,
		})
	}
	return counts, nil
}

// fileLabel makes a name safe for use in an output file name.
func fileLabel(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}

// writeCodonCounts writes one codon counts table as
// <library>_<sample>_codoncounts.csv and returns the file name.
func writeCodonCounts(dir string, cc *variant.CodonCounts) (string, error) {
	fn := filepath.Join(dir,
		fmt.Sprintf("%s_%s_codoncounts.csv", fileLabel(cc.Library), fileLabel(cc.Sample)))
	f, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(variant.CodonCountsHeader()); err != nil {
		return "", err
	}
	if err := w.WriteAll(cc.Records()); err != nil {
		return "", err
	}
	w.Flush()
	return fn, w.Error()
}

// writeMutCounts writes mutation counts as mutcounts.csv and returns
// the file name.
func writeMutCounts(dir string, counts []variant.MutCount) (string, error) {
	fn := filepath.Join(dir, "mutcounts.csv")
	f, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"library", "sample", "mutation", "site", "count", "mutation_type"}); err != nil {
		return "", err
	}
	for _, c := range counts {
		record := []string{
			c.Library, c.Sample, c.Mutation,
			strconv.Itoa(c.Site), strconv.Itoa(c.Count),
			c.Type.String(),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return fn, w.Error()
}
