package variant

import (
	"fmt"
	"strconv"

	"github.com/gonum/matrix/mat64"

	"dmsvar/bio"
)

// CountMode selects how variant counts are projected onto per-site
// codon counts.
type CountMode int

const (
	// SingleMode counts only unmutated and single-codon-mutant
	// variants. The wildtype codon at every site gets the counts of
	// the unmutated variants; the mutant codon gets the counts of
	// the single mutants carrying it.
	SingleMode CountMode = iota
	// AllMode counts every variant. The wildtype codon at every
	// site starts at the total count over all variants, and each
	// substitution moves its variant's count from the wildtype
	// codon to the mutant codon.
	AllMode
)

// CodonCounts holds per-site codon counts for one (library, sample)
// pair as a sites x codons matrix. Row r-1 is site r; column c is
// bio.Codons[c].
type CodonCounts struct {
	Library string
	Sample  string
	WTSeq   []string
	counts  *mat64.Dense
}

// Count returns the count of a codon at a 1-based site.
func (cc *CodonCounts) Count(site int, codon string) int {
	c, ok := codonIndex[codon]
	if !ok {
		panic("unknown codon " + codon)
	}
	return int(cc.counts.At(site-1, c))
}

// Matrix returns the underlying sites x codons count matrix.
func (cc *CodonCounts) Matrix() *mat64.Dense { return cc.counts }

var codonIndex map[string]int

func init() {
	codonIndex = make(map[string]int, len(bio.Codons))
	for i, codon := range bio.Codons {
		codonIndex[codon] = i
	}
}

// CodonCountsAll projects the selected variant counts onto per-site
// codon counts, one CodonCounts per selected (library, sample) pair
// in selection order.
func (t *Table) CodonCountsAll(mode CountMode, sel Selection) ([]*CodonCounts, error) {
	rows, libs, samples, err := t.selectRows(sel)
	if err != nil {
		return nil, err
	}

	nsites := t.gene.NSites()
	wtSeq := make([]string, nsites)
	wtCol := make([]int, nsites)
	for _, site := range t.gene.Sites() {
		wtSeq[site-1] = t.gene.Codon(site)
		wtCol[site-1] = codonIndex[wtSeq[site-1]]
	}

	byPair := make(map[string]*CodonCounts)
	var out []*CodonCounts
	for _, lib := range libs {
		for _, sample := range samples {
			cc := &CodonCounts{
				Library: lib,
				Sample:  sample,
				WTSeq:   wtSeq,
				counts:  mat64.NewDense(nsites, len(bio.Codons), nil),
			}
			byPair[lib+"\x00"+sample] = cc
			out = append(out, cc)
		}
	}

	for i := range rows {
		row := &rows[i]
		cc := byPair[row.Library+"\x00"+row.Sample]
		m := cc.counts
		switch mode {
		case SingleMode:
			switch row.NCodonSubs() {
			case 0:
				for s := 0; s < nsites; s++ {
					m.Set(s, wtCol[s], m.At(s, wtCol[s])+float64(row.Count))
				}
			case 1:
				sub := row.CodonSubs[0]
				c := codonIndex[sub.Mut]
				m.Set(sub.Site-1, c, m.At(sub.Site-1, c)+float64(row.Count))
			}
		case AllMode:
			for s := 0; s < nsites; s++ {
				m.Set(s, wtCol[s], m.At(s, wtCol[s])+float64(row.Count))
			}
			for _, sub := range row.CodonSubs {
				s := sub.Site - 1
				c := codonIndex[sub.Mut]
				m.Set(s, c, m.At(s, c)+float64(row.Count))
				m.Set(s, wtCol[s], m.At(s, wtCol[s])-float64(row.Count))
			}
		}
	}

	for _, cc := range out {
		if err := cc.check(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// check verifies no count went negative, which happens when a
// variant's count at a site is split across substitutions it cannot
// carry.
func (cc *CodonCounts) check() error {
	r, c := cc.counts.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if cc.counts.At(i, j) < 0 {
				return fmt.Errorf("%w: negative count for %s at site %d in %s/%s",
					ErrSchema, bio.Codons[j], i+1, cc.Library, cc.Sample)
			}
		}
	}
	return nil
}

// Header returns the CSV header for codon count records.
func CodonCountsHeader() []string {
	header := []string{"site", "wildtype"}
	return append(header, bio.Codons...)
}

// Records returns one CSV record per site.
func (cc *CodonCounts) Records() [][]string {
	nsites, ncodons := cc.counts.Dims()
	records := make([][]string, nsites)
	for s := 0; s < nsites; s++ {
		record := make([]string, 0, 2+ncodons)
		record = append(record, strconv.Itoa(s+1), cc.WTSeq[s])
		for c := 0; c < ncodons; c++ {
			record = append(record, strconv.Itoa(int(cc.counts.At(s, c))))
		}
		records[s] = record
	}
	return records
}
