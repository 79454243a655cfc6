package variant

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// PhenotypeFunc maps a variant to its relative enrichment under
// selection. Zero means the variant does not survive selection; the
// wildtype is conventionally one.
type PhenotypeFunc func(v *Variant) float64

// PreSample describes a simulated pre-selection sample.
type PreSample struct {
	Name string
	// Depth is the total number of sequencing reads per library.
	Depth int
	// Uniformity is the concentration of the Dirichlet distributed
	// variant composition. Larger values give more even counts across
	// variants.
	Uniformity float64
}

// PostSample describes a simulated post-selection sample.
type PostSample struct {
	Name string
	// Depth is the total number of sequencing reads per library.
	Depth int
	// Bottleneck is the number of variants passaged from the
	// pre-selection pool into selection.
	Bottleneck int
	// Noise is the standard deviation of the per-variant selection
	// noise. Zero makes selection deterministic given the bottleneck.
	Noise float64
}

// SimulateSampleCounts simulates sequencing counts for a pre-selection
// sample and a set of post-selection samples and adds them to every
// library of the table. The pre-selection composition is Dirichlet
// distributed and read counts are multinomial at the sample depth.
// Each post-selection sample passes the pre-selection pool through a
// multinomial bottleneck, scales every variant by its phenotype and a
// non-negative noise factor, and draws reads from the rescaled pool.
func (t *Table) SimulateSampleCounts(phenotype PhenotypeFunc, pre PreSample, posts []PostSample, seed int64) error {
	if phenotype == nil {
		return fmt.Errorf("%w: nil phenotype function", ErrSchema)
	}
	if pre.Name == "" || pre.Depth < 1 || pre.Uniformity <= 0 {
		return fmt.Errorf("%w: pre-selection sample %q", ErrSchema, pre.Name)
	}
	names := map[string]bool{pre.Name: true}
	for _, post := range posts {
		if post.Name == "" || post.Depth < 1 || post.Bottleneck < 1 ||
			post.Noise < 0 {
			return fmt.Errorf("%w: post-selection sample %q",
				ErrSchema, post.Name)
		}
		if names[post.Name] {
			return fmt.Errorf("%w: %q simulated twice",
				ErrDuplicateSample, post.Name)
		}
		names[post.Name] = true
	}
	// All samples are added or none; check for clashes with existing
	// samples before drawing anything.
	for _, library := range t.libraries {
		for _, s := range t.samples[library] {
			if names[s] {
				return fmt.Errorf("%w: %q already in library %q",
					ErrDuplicateSample, s, library)
			}
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, library := range t.libraries {
		var variants []*Variant
		for i := range t.variants {
			if t.variants[i].Library == library {
				variants = append(variants, &t.variants[i])
			}
		}
		n := len(variants)

		phs := make([]float64, n)
		for i, v := range variants {
			phs[i] = phenotype(v)
			if phs[i] < 0 || math.IsNaN(phs[i]) {
				return fmt.Errorf("%w: phenotype %g for barcode %q",
					ErrSchema, phs[i], v.Barcode)
			}
		}

		composition := dirichlet(rng, pre.Uniformity, n)
		preCounts := multinomial(rng, pre.Depth, composition)
		err := t.AddSampleCounts(library, pre.Name,
			barcodeCounts(variants, preCounts))
		if err != nil {
			return err
		}

		preFreqs := make([]float64, n)
		for i, c := range preCounts {
			preFreqs[i] = float64(c) / float64(pre.Depth)
		}

		for _, post := range posts {
			nperbc := multinomial(rng, post.Bottleneck, preFreqs)
			weights := make([]float64, n)
			total := 0.0
			for i := range weights {
				noise := 1.0
				if post.Noise > 0 {
					noise = math.Max(0, 1+post.Noise*rng.NormFloat64())
				}
				weights[i] = float64(nperbc[i]) * phs[i] * noise
				total += weights[i]
			}
			postCounts := make([]int, n)
			if total > 0 {
				for i := range weights {
					weights[i] /= total
				}
				postCounts = multinomial(rng, post.Depth, weights)
			}
			err := t.AddSampleCounts(library, post.Name,
				barcodeCounts(variants, postCounts))
			if err != nil {
				return err
			}
		}
		log.Infof("simulated %d samples for library %q",
			1+len(posts), library)
	}
	return nil
}

func barcodeCounts(variants []*Variant, counts []int) []BarcodeCount {
	out := make([]BarcodeCount, len(variants))
	for i, v := range variants {
		out[i] = BarcodeCount{Barcode: v.Barcode, Count: counts[i]}
	}
	return out
}

// dirichlet draws a composition from a symmetric Dirichlet
// distribution with concentration alpha.
func dirichlet(rng *rand.Rand, alpha float64, n int) []float64 {
	p := make([]float64, n)
	total := 0.0
	for i := range p {
		p[i] = gammaRand(rng, alpha)
		total += p[i]
	}
	for i := range p {
		p[i] /= total
	}
	return p
}

// gammaRand draws from a Gamma distribution with unit scale using the
// Marsaglia-Tsang squeeze method. Shapes below one use the boost
// G(a) = G(a+1) * U^(1/a).
func gammaRand(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		return gammaRand(rng, shape+1) * math.Pow(rng.Float64(), 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// multinomial draws counts for len(p) categories summing to depth.
// The probabilities need not be normalized.
func multinomial(rng *rand.Rand, depth int, p []float64) []int {
	cum := make([]float64, len(p))
	total := 0.0
	for i, pi := range p {
		total += pi
		cum[i] = total
	}
	counts := make([]int, len(p))
	for k := 0; k < depth; k++ {
		// Strict comparison so zero-probability categories are never
		// drawn.
		u := rng.Float64() * total
		i := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
		counts[i]++
	}
	return counts
}
