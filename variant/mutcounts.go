package variant

import (
	"fmt"
	"sort"

	"dmsvar/bio"
	"dmsvar/gene"
)

// VariantType selects which variants contribute to mutation counts.
type VariantType int

const (
	// AllMutants counts mutations from every variant.
	AllMutants VariantType = iota
	// SingleMutants counts mutations only from single-mutant
	// variants (and ignores wildtype variants).
	SingleMutants
)

// Granularity selects the mutation level of an aggregation.
type Granularity int

const (
	// ByCodon aggregates codon mutations.
	ByCodon Granularity = iota
	// ByAminoAcid aggregates amino-acid mutations.
	ByAminoAcid
)

// MutationType classifies a codon mutation by its protein effect.
type MutationType int

const (
	Nonsynonymous MutationType = iota
	Synonymous
	Stop
)

func (mt MutationType) String() string {
	switch mt {
	case Nonsynonymous:
		return "nonsynonymous"
	case Synonymous:
		return "synonymous"
	case Stop:
		return "stop"
	}
	return fmt.Sprintf("MutationType(%d)", int(mt))
}

// classifyCodonMut determines the protein effect of a codon mutation.
// Amino-acid identity takes precedence, so a mutation between two
// stop codons is synonymous, not stop.
func classifyCodonMut(m gene.CodonMut) MutationType {
	wt := bio.GeneticCode[m.WT]
	mut := bio.GeneticCode[m.Mut]
	switch {
	case mut == wt:
		return Synonymous
	case mut == bio.StopAA:
		return Stop
	}
	return Nonsynonymous
}

// MutCount is the count of one mutation in one (library, sample)
// pair.
type MutCount struct {
	Library  string
	Sample   string
	Mutation string
	Site     int
	Count    int
	// Type is the protein effect; only meaningful for codon
	// granularity.
	Type MutationType
}

// MutCounts aggregates mutation counts across variants. Every
// possible mutation at every site appears for every selected
// (library, sample) pair, with a zero count when unobserved.
func (t *Table) MutCounts(vtype VariantType, gran Granularity, sel Selection) ([]MutCount, error) {
	rows, libs, samples, err := t.selectRows(sel)
	if err != nil {
		return nil, err
	}

	type key struct {
		lib, sample, mut string
	}
	counts := make(map[key]int)
	for i := range rows {
		row := &rows[i]
		switch gran {
		case ByCodon:
			if vtype == SingleMutants && row.NCodonSubs() != 1 {
				continue
			}
			for _, m := range row.CodonSubs {
				counts[key{row.Library, row.Sample, m.String()}] += row.Count
			}
		case ByAminoAcid:
			if vtype == SingleMutants && row.NAASubs() != 1 {
				continue
			}
			for _, m := range row.AASubs {
				counts[key{row.Library, row.Sample, m.String()}] += row.Count
			}
		}
	}

	// Enumerate the full mutation universe so unobserved mutations
	// report zero counts.
	type mutInfo struct {
		mut  string
		site int
		typ  MutationType
	}
	var universe []mutInfo
	for _, site := range t.gene.Sites() {
		switch gran {
		case ByCodon:
			wt := t.gene.Codon(site)
			for _, codon := range bio.Codons {
				if codon == wt {
					continue
				}
				m := gene.CodonMut{WT: wt, Site: site, Mut: codon}
				universe = append(universe, mutInfo{m.String(), site, classifyCodonMut(m)})
			}
		case ByAminoAcid:
			wt := t.gene.AA(site)
			for _, aa := range bio.AminoAcids {
				if aa == wt {
					continue
				}
				m := gene.AAMut{WT: wt, Site: site, Mut: aa}
				typ := Nonsynonymous
				if aa == bio.StopAA {
					typ = Stop
				}
				universe = append(universe, mutInfo{m.String(), site, typ})
			}
		}
	}

	out := make([]MutCount, 0, len(libs)*len(samples)*len(universe))
	for _, lib := range libs {
		for _, sample := range samples {
			for _, info := range universe {
				out = append(out, MutCount{
					Library:  lib,
					Sample:   sample,
					Mutation: info.mut,
					Site:     info.site,
					Count:    counts[key{lib, sample, info.mut}],
					Type:     info.typ,
				})
			}
		}
	}

	libIdx := indexOf(libs)
	smpIdx := indexOf(samples)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if libIdx[a.Library] != libIdx[b.Library] {
			return libIdx[a.Library] < libIdx[b.Library]
		}
		if smpIdx[a.Sample] != smpIdx[b.Sample] {
			return smpIdx[a.Sample] < smpIdx[b.Sample]
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Mutation < b.Mutation
	})
	return out, nil
}
