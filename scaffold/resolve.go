package scaffold

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/gmaffy/scaffold-whisperer/anchors"
	"github.com/gmaffy/scaffold-whisperer/blast"
)

// Assignment binds one anchor to the single contig that supports it, with
// the orientation the contig takes in the scaffold.
type Assignment struct {
	AnchorID   string
	ContigID   string
	Chromosome string
	Reverse    bool
	Coverage   float64
	Hit        blast.HitRecord
}

// FilterHits applies the cascading coverage-tier filter to one anchor's
// hits: anchors shorter than minGeneLen are dropped outright, then each tier
// keeps hits whose alignment spans at least geneLength*tier of the query,
// and the first tier that keeps anything wins.
func FilterHits(hits []blast.HitRecord, minGeneLen float64, tiers []float64) []blast.HitRecord {
	if len(hits) == 0 {
		return nil
	}
	geneLen := hits[0].GeneLength
	if geneLen <= minGeneLen {
		return nil
	}
	for _, tier := range tiers {
		thr := geneLen * tier
		var kept []blast.HitRecord
		for _, h := range hits {
			if h.Length >= thr {
				kept = append(kept, h)
			}
		}
		if len(kept) > 0 {
			return kept
		}
	}
	return nil
}

type anchorClaim struct {
	rec   anchors.AnchorRecord
	chrom string
	// candidate hits, best first; idx points at the current proposal
	hits     []blast.HitRecord
	idx      int
	assigned bool
}

func (a *anchorClaim) current() *blast.HitRecord {
	if a.idx >= len(a.hits) {
		return nil
	}
	return &a.hits[a.idx]
}

// Resolver gathers every chromosome's anchors and hit records, then runs a
// single serialized claim-resolution pass so a contig ends up assigned to at
// most one anchor across the whole run.
type Resolver struct {
	MinGeneLength float64
	Tiers         []float64
	UseGeneStrand bool

	mu     sync.Mutex
	chroms []string
	claims map[string][]*anchorClaim
}

func NewResolver(minGeneLen float64, tiers []float64, useGeneStrand bool) *Resolver {
	return &Resolver{
		MinGeneLength: minGeneLen,
		Tiers:         tiers,
		claims:        make(map[string][]*anchorClaim),
		UseGeneStrand: useGeneStrand,
	}
}

// AddChromosome registers one chromosome's selected anchors and their hit
// table. Safe for concurrent use by per-chromosome pipelines.
func (r *Resolver) AddChromosome(chrom string, selected []anchors.AnchorRecord, hits map[string][]blast.HitRecord) {
	var claims []*anchorClaim
	for _, rec := range selected {
		kept := FilterHits(hits[rec.ID], r.MinGeneLength, r.Tiers)
		// Claim resolution walks each anchor's candidates best first.
		blast.SortHits(kept)
		claims = append(claims, &anchorClaim{rec: rec, chrom: chrom, hits: kept})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.claims[chrom]; !ok {
		r.chroms = append(r.chroms, chrom)
	}
	r.claims[chrom] = append(r.claims[chrom], claims...)
}

// Resolve runs cross-claim resolution and returns each chromosome's
// assignments in selector order. Anchors whose every candidate was claimed
// by a better-supported anchor, and anchors with no surviving hits, are
// silently left unassigned.
func (r *Resolver) Resolve() map[string][]Assignment {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Deterministic traversal: chromosome name, then selector order.
	chroms := append([]string(nil), r.chroms...)
	slices.Sort(chroms)

	var all []*anchorClaim
	for _, chrom := range chroms {
		all = append(all, r.claims[chrom]...)
	}

	claimed := make(map[string]*anchorClaim)
	progress := true
	for progress {
		progress = false
		for _, a := range all {
			if a.assigned || a.idx >= len(a.hits) {
				continue
			}
			h := &a.hits[a.idx]
			incumbent, ok := claimed[h.ContigID]
			if !ok {
				claimed[h.ContigID] = a
				a.assigned = true
				progress = true
				continue
			}
			if betterHit(h, incumbent.current()) {
				// The incumbent loses the contig and falls back to its
				// next-best candidate.
				incumbent.assigned = false
				incumbent.idx++
				claimed[h.ContigID] = a
				a.assigned = true
			} else {
				a.idx++
			}
			progress = true
		}
	}

	out := make(map[string][]Assignment, len(chroms))
	for _, chrom := range chroms {
		var assigns []Assignment
		for _, a := range r.claims[chrom] {
			if !a.assigned {
				continue
			}
			h := a.hits[a.idx]
			assigns = append(assigns, Assignment{
				AnchorID:   a.rec.ID,
				ContigID:   h.ContigID,
				Chromosome: chrom,
				Reverse:    r.orientation(a.rec, h),
				Coverage:   h.Coverage(),
				Hit:        h,
			})
		}
		out[chrom] = assigns
	}
	return out
}

// orientation derives the contig's placement strand. The alignment's subject
// coordinate order is the default evidence; under the gene_queries strategy
// a known reference strand for the gene overrides it, flipping the call when
// the gene itself sits on the minus strand.
func (r *Resolver) orientation(rec anchors.AnchorRecord, h blast.HitRecord) bool {
	rev := h.Reverse()
	if r.UseGeneStrand && rec.Strand != "" {
		rev = rev != (rec.Strand == "-")
	}
	return rev
}

// betterHit reports whether a beats b by coverage, then raw alignment
// length. Exact ties keep the incumbent claim.
func betterHit(a, b *blast.HitRecord) bool {
	if b == nil {
		return true
	}
	if a.Coverage() != b.Coverage() {
		return a.Coverage() > b.Coverage()
	}
	return a.Length > b.Length
}
