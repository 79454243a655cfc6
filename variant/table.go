// Package variant implements tables associating barcodes with codon
// variants of a gene and accumulating per-sample sequencing counts
// for them.
package variant

import (
	"errors"
	"fmt"
	"sort"

	"github.com/op/go-logging"

	"dmsvar/gene"
)

// log is the global logging variable.
var log = logging.MustGetLogger("variant")

// MergedLibrary is the name of the synthetic library holding every
// row from every library.
const MergedLibrary = "all libraries"

// NoSample is the sample name used when reporting on barcoded
// variants without any sample counts.
const NoSample = "barcoded variants"

// Errors returned by table operations.
var (
	ErrDuplicateBarcode = errors.New("duplicate barcode")
	ErrUnknownLibrary   = errors.New("unknown library")
	ErrDuplicateSample  = errors.New("duplicate sample")
	ErrBarcodeMismatch  = errors.New("barcode set mismatch")
	ErrSchema           = errors.New("invalid input row")
	ErrNoCounts         = errors.New("no sample counts added")
)

// BarcodeVariant is one input row associating a barcode with the
// substitutions of its variant.
type BarcodeVariant struct {
	Library       string
	Barcode       string
	Substitutions string
	Support       int
	Extra         map[string]string
}

// Options controls table construction.
type Options struct {
	// SubsAreCodon indicates the substitution strings are codon
	// mutations rather than nucleotide mutations.
	SubsAreCodon bool
	// ExtraCols names additional input columns to retain on every
	// variant.
	ExtraCols []string
}

// Variant is a barcode-variant association with derived codon and
// amino-acid substitutions.
type Variant struct {
	Library   string
	Barcode   string
	Support   int
	CodonSubs []gene.CodonMut
	AASubs    []gene.AAMut
	Extra     map[string]string
}

// NCodonSubs returns the number of codon substitutions.
func (v *Variant) NCodonSubs() int { return len(v.CodonSubs) }

// NAASubs returns the number of amino-acid substitutions.
func (v *Variant) NAASubs() int { return len(v.AASubs) }

// CodonSubsString returns the space-delimited codon substitutions.
func (v *Variant) CodonSubsString() string {
	return gene.CodonMutsString(v.CodonSubs)
}

// AASubsString returns the space-delimited amino-acid substitutions.
func (v *Variant) AASubsString() string {
	return gene.AAMutsString(v.AASubs)
}

// CountRow is one row of the variant count table: a variant joined
// with its read count in one sample.
type CountRow struct {
	Variant
	Sample string
	Count  int
}

// Table associates barcodes with codon variants of a gene and
// accumulates per-sample counts. The gene and the barcode-variant
// associations are fixed at construction; sample counts are appended
// one sample at a time with AddSampleCounts.
type Table struct {
	gene      *gene.Gene
	libraries []string
	variants  []Variant
	byKey     map[string]map[string]*Variant
	samples   map[string][]string
	counts    []CountRow
}

// New builds a table from barcode-variant rows. Substitution strings
// are parsed and validated against the gene; any failure aborts
// construction. Barcodes must be unique within each library.
func New(g *gene.Gene, rows []BarcodeVariant, opts Options) (*Table, error) {
	t := &Table{
		gene:    g,
		byKey:   make(map[string]map[string]*Variant),
		samples: make(map[string][]string),
	}

	t.variants = make([]Variant, 0, len(rows))
	for _, row := range rows {
		if row.Library == "" || row.Barcode == "" {
			return nil, fmt.Errorf("%w: empty library or barcode", ErrSchema)
		}
		if row.Support < 1 {
			return nil, fmt.Errorf("%w: variant call support %d for barcode %q",
				ErrSchema, row.Support, row.Barcode)
		}
		v := Variant{
			Library: row.Library,
			Barcode: row.Barcode,
			Support: row.Support,
		}
		var err error
		if opts.SubsAreCodon {
			v.CodonSubs, err = gene.ParseCodonMuts(row.Substitutions)
			if err == nil {
				sort.Slice(v.CodonSubs, func(i, j int) bool {
					return v.CodonSubs[i].Site < v.CodonSubs[j].Site
				})
			}
		} else {
			var ntMuts []gene.NtMut
			ntMuts, err = gene.ParseNtMuts(row.Substitutions)
			if err == nil {
				v.CodonSubs, err = g.NtToCodonMuts(ntMuts)
			}
		}
		if err == nil {
			// Validates wildtype codons and duplicate sites for
			// codon-level input too.
			v.AASubs, err = g.CodonToAAMuts(v.CodonSubs)
		}
		if err != nil {
			return nil, fmt.Errorf("library %q barcode %q: %w",
				row.Library, row.Barcode, err)
		}
		if len(opts.ExtraCols) > 0 {
			v.Extra = make(map[string]string, len(opts.ExtraCols))
			for _, col := range opts.ExtraCols {
				val, ok := row.Extra[col]
				if !ok {
					return nil, fmt.Errorf("%w: missing extra column %q",
						ErrSchema, col)
				}
				v.Extra[col] = val
			}
		}
		t.variants = append(t.variants, v)
	}

	sort.Slice(t.variants, func(i, j int) bool {
		a, b := &t.variants[i], &t.variants[j]
		if a.Library != b.Library {
			return a.Library < b.Library
		}
		return a.Barcode < b.Barcode
	})

	for i := range t.variants {
		v := &t.variants[i]
		lib := t.byKey[v.Library]
		if lib == nil {
			lib = make(map[string]*Variant)
			t.byKey[v.Library] = lib
			t.libraries = append(t.libraries, v.Library)
		}
		if lib[v.Barcode] != nil {
			return nil, fmt.Errorf("%w: %q in library %q",
				ErrDuplicateBarcode, v.Barcode, v.Library)
		}
		lib[v.Barcode] = v
	}
	sort.Strings(t.libraries)

	log.Debugf("built table of %d variants in %d libraries",
		len(t.variants), len(t.libraries))
	return t, nil
}

// Gene returns the reference gene.
func (t *Table) Gene() *gene.Gene { return t.gene }

// Libraries returns the libraries in canonical (sorted) order.
func (t *Table) Libraries() []string {
	return append([]string(nil), t.libraries...)
}

// Samples returns all samples for which counts have been added to a
// library, in the order they were added.
func (t *Table) Samples(library string) ([]string, error) {
	if _, ok := t.byKey[library]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLibrary, library)
	}
	return append([]string(nil), t.samples[library]...), nil
}

// ValidBarcodes returns the set of valid barcodes for a library.
func (t *Table) ValidBarcodes(library string) (map[string]bool, error) {
	lib, ok := t.byKey[library]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLibrary, library)
	}
	barcodes := make(map[string]bool, len(lib))
	for bc := range lib {
		barcodes[bc] = true
	}
	return barcodes, nil
}

// Variants returns the barcode-variant rows sorted by (library,
// barcode).
func (t *Table) Variants() []Variant {
	return append([]Variant(nil), t.variants...)
}

// CountRows returns the variant count table: one row per (library,
// sample, barcode), sorted by library, sample and descending count.
func (t *Table) CountRows() []CountRow {
	return append([]CountRow(nil), t.counts...)
}

// sampleOrder returns the samples in first-seen order, scanning
// libraries in canonical order.
func (t *Table) sampleOrder() []string {
	var order []string
	seen := make(map[string]bool)
	for _, lib := range t.libraries {
		for _, sample := range t.samples[lib] {
			if !seen[sample] {
				seen[sample] = true
				order = append(order, sample)
			}
		}
	}
	return order
}

func indexOf(names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for i, name := range names {
		idx[name] = i
	}
	return idx
}
