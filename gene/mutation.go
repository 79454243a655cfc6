package gene

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"dmsvar/bio"
)

// NtMut is a single nucleotide substitution in 1-based numbering over
// the full gene.
type NtMut struct {
	WT  byte
	Pos int
	Mut byte
}

func (m NtMut) String() string {
	return fmt.Sprintf("%c%d%c", m.WT, m.Pos, m.Mut)
}

// CodonMut is a single codon substitution in 1-based codon site
// numbering.
type CodonMut struct {
	WT   string
	Site int
	Mut  string
}

func (m CodonMut) String() string {
	return fmt.Sprintf("%s%d%s", m.WT, m.Site, m.Mut)
}

// AAMut is a single amino-acid substitution in 1-based codon site
// numbering, '*' denoting stop.
type AAMut struct {
	WT   byte
	Site int
	Mut  byte
}

func (m AAMut) String() string {
	return fmt.Sprintf("%c%d%c", m.WT, m.Site, m.Mut)
}

var (
	ntMutRe    = regexp.MustCompile(`^([ATCG])([0-9]+)([ATCG])$`)
	codonMutRe = regexp.MustCompile(`^([ATCG]{3})([0-9]+)([ATCG]{3})$`)
	aaMutRe    = regexp.MustCompile(`^([A-Z*])([0-9]+)([A-Z*])$`)
)

// ParseNtMuts parses a space-delimited set of nucleotide mutations
// like "G301A A302T". An empty string yields an empty set.
func ParseNtMuts(s string) ([]NtMut, error) {
	var muts []NtMut
	for _, tok := range strings.Fields(strings.ToUpper(s)) {
		m := ntMutRe.FindStringSubmatch(tok)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMutation, tok)
		}
		pos, err := strconv.Atoi(m[2])
		if err != nil || pos < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMutation, tok)
		}
		muts = append(muts, NtMut{WT: m[1][0], Pos: pos, Mut: m[3][0]})
	}
	return muts, nil
}

// ParseCodonMuts parses a space-delimited set of codon mutations like
// "ATG1ATA GTA5CCC". An empty string yields an empty set.
func ParseCodonMuts(s string) ([]CodonMut, error) {
	var muts []CodonMut
	for _, tok := range strings.Fields(strings.ToUpper(s)) {
		m := codonMutRe.FindStringSubmatch(tok)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMutation, tok)
		}
		site, err := strconv.Atoi(m[2])
		if err != nil || site < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMutation, tok)
		}
		muts = append(muts, CodonMut{WT: m[1], Site: site, Mut: m[3]})
	}
	return muts, nil
}

// ParseAAMuts parses a space-delimited set of amino-acid mutations
// like "M1K G2*". An empty string yields an empty set.
func ParseAAMuts(s string) ([]AAMut, error) {
	var muts []AAMut
	for _, tok := range strings.Fields(strings.ToUpper(s)) {
		m := aaMutRe.FindStringSubmatch(tok)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMutation, tok)
		}
		site, err := strconv.Atoi(m[2])
		if err != nil || site < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMutation, tok)
		}
		muts = append(muts, AAMut{WT: m[1][0], Site: site, Mut: m[3][0]})
	}
	return muts, nil
}

// CodonMutsString serializes codon mutations space-delimited.
func CodonMutsString(muts []CodonMut) string {
	toks := make([]string, len(muts))
	for i, m := range muts {
		toks[i] = m.String()
	}
	return strings.Join(toks, " ")
}

// AAMutsString serializes amino-acid mutations space-delimited.
func AAMutsString(muts []AAMut) string {
	toks := make([]string, len(muts))
	for i, m := range muts {
		toks[i] = m.String()
	}
	return strings.Join(toks, " ")
}

// NtToCodonMuts converts nucleotide mutations into codon mutations,
// merging mutations which fall into the same codon. Every mutation is
// validated against the reference: the position must be in range and
// the stated wildtype nucleotide must match. Two mutations of the
// same nucleotide are an error.
func (g *Gene) NtToCodonMuts(muts []NtMut) ([]CodonMut, error) {
	type ntChange struct {
		offset int
		mut    byte
	}
	changes := make(map[int][]ntChange)
	for _, m := range muts {
		if m.WT == m.Mut {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMutation, m)
		}
		if m.Pos < 1 || m.Pos > len(g.seq) {
			return nil, fmt.Errorf("%w: nucleotide site %d out of range",
				ErrInvalidMutation, m.Pos)
		}
		if g.seq[m.Pos-1] != m.WT {
			return nil, fmt.Errorf("%w: nucleotide %d should be %c not %c",
				ErrInvalidMutation, m.Pos, g.seq[m.Pos-1], m.WT)
		}
		site := (m.Pos-1)/3 + 1
		offset := (m.Pos - 1) % 3
		for _, c := range changes[site] {
			if c.offset == offset {
				return nil, fmt.Errorf("%w: nucleotide %d mutated twice",
					ErrDuplicateMutation, m.Pos)
			}
		}
		changes[site] = append(changes[site], ntChange{offset, m.Mut})
	}

	sites := make([]int, 0, len(changes))
	for site := range changes {
		sites = append(sites, site)
	}
	sort.Ints(sites)

	res := make([]CodonMut, 0, len(sites))
	for _, site := range sites {
		wt := g.Codon(site)
		mut := []byte(wt)
		for _, c := range changes[site] {
			mut[c.offset] = c.mut
		}
		res = append(res, CodonMut{WT: wt, Site: site, Mut: string(mut)})
	}
	return res, nil
}

// CodonToAAMuts converts codon mutations into amino-acid mutations,
// dropping synonymous changes. The wildtype codon must match the
// reference and differ from the mutant codon; two mutations of the
// same site are an error. The result is sorted by site.
func (g *Gene) CodonToAAMuts(muts []CodonMut) ([]AAMut, error) {
	seen := make(map[int]bool, len(muts))
	var res []AAMut
	for _, m := range muts {
		if m.Site < 1 || m.Site > g.NSites() {
			return nil, fmt.Errorf("%w: codon site %d out of range",
				ErrInvalidMutation, m.Site)
		}
		if seen[m.Site] {
			return nil, fmt.Errorf("%w: codon site %d mutated twice",
				ErrDuplicateMutation, m.Site)
		}
		seen[m.Site] = true
		if g.Codon(m.Site) != m.WT {
			return nil, fmt.Errorf("%w: wrong wildtype codon in %v, expected %s",
				ErrInvalidMutation, m, g.Codon(m.Site))
		}
		if m.WT == m.Mut {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMutation, m)
		}
		wtAA := bio.GeneticCode[m.WT]
		if wtAA != g.AA(m.Site) {
			// The reference amino acids are derived from the same
			// code table, so a mismatch means corrupted state.
			panic(fmt.Sprintf("wildtype amino acid mismatch at site %d", m.Site))
		}
		mutAA := bio.GeneticCode[m.Mut]
		if wtAA != mutAA {
			res = append(res, AAMut{WT: wtAA, Site: m.Site, Mut: mutAA})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Site < res[j].Site })
	return res, nil
}
