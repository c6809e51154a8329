package scaffold

import (
	"testing"

	"github.com/gmaffy/scaffold-whisperer/anchors"
	"github.com/gmaffy/scaffold-whisperer/blast"
)

var defaultTiers = []float64{0.9, 0.7, 0.5}

func hit(anchor, contig string, length, contigLen, subjStart, subjEnd float64) blast.HitRecord {
	return blast.HitRecord{
		AnchorID:     anchor,
		ContigID:     contig,
		Length:       length,
		GeneLength:   100,
		ContigLength: contigLen,
		SubjectStart: subjStart,
		SubjectEnd:   subjEnd,
	}
}

func TestFilterHitsTiers(t *testing.T) {
	hits := []blast.HitRecord{
		hit("g1", "a", 95, 1000, 1, 95),
		hit("g1", "b", 60, 1000, 1, 60),
		hit("g1", "c", 40, 1000, 1, 40),
	}

	kept := FilterHits(hits, 0, defaultTiers)
	if len(kept) != 1 || kept[0].ContigID != "a" {
		t.Fatalf("expected only the 0.9-tier hit to survive, got %v", kept)
	}

	// Without a hit in the first tier, the cascade falls through.
	kept = FilterHits(hits[1:], 0, defaultTiers)
	if len(kept) != 1 || kept[0].ContigID != "b" {
		t.Fatalf("expected the 0.5-tier fallback to keep b, got %v", kept)
	}
}

func TestFilterHitsMinGeneLength(t *testing.T) {
	hits := []blast.HitRecord{hit("g1", "a", 95, 1000, 1, 95)}
	if kept := FilterHits(hits, 200, defaultTiers); kept != nil {
		t.Fatalf("anchors below the minimum gene length should be dropped, got %v", kept)
	}
}

// Mirrors the basic three-anchor chromosome: three anchors, three distinct
// contigs, the middle one aligned on the reverse strand.
func TestResolveOrderAndOrientation(t *testing.T) {
	selected := []anchors.AnchorRecord{
		{ID: "g1", Chromosome: "chr1", Start: 100},
		{ID: "g2", Chromosome: "chr1", Start: 500},
		{ID: "g3", Chromosome: "chr1", Start: 900},
	}
	hits := map[string][]blast.HitRecord{
		"g1": {hit("g1", "contigA", 95, 1000, 1, 95)},
		"g2": {hit("g2", "contigB", 95, 1000, 95, 1)},
		"g3": {hit("g3", "contigC", 95, 1000, 1, 95)},
	}

	r := NewResolver(0, defaultTiers, false)
	r.AddChromosome("chr1", selected, hits)
	assigns := r.Resolve()["chr1"]

	if len(assigns) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(assigns))
	}
	wantContigs := []string{"contigA", "contigB", "contigC"}
	for i, want := range wantContigs {
		if assigns[i].ContigID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, assigns[i].ContigID)
		}
	}
	if assigns[0].Reverse || assigns[2].Reverse {
		t.Errorf("contigA and contigC should be forward")
	}
	if !assigns[1].Reverse {
		t.Errorf("contigB aligned with descending subject coordinates should be reverse")
	}
}

// Two anchors best-match the same contig; the better-covered claim wins and
// the loser falls back to its next-best candidate.
func TestResolveCrossClaim(t *testing.T) {
	selected := []anchors.AnchorRecord{
		{ID: "g1", Chromosome: "chr1", Start: 100},
		{ID: "g2", Chromosome: "chr1", Start: 500},
	}
	hits := map[string][]blast.HitRecord{
		"g1": {hit("g1", "contigX", 95, 100, 1, 95)},
		"g2": {
			hit("g2", "contigX", 80, 200, 1, 80),
			hit("g2", "contigY", 70, 200, 1, 70),
		},
	}

	r := NewResolver(0, defaultTiers, false)
	r.AddChromosome("chr1", selected, hits)
	assigns := r.Resolve()["chr1"]

	if len(assigns) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assigns))
	}
	if assigns[0].AnchorID != "g1" || assigns[0].ContigID != "contigX" {
		t.Errorf("g1 should keep contigX, got %+v", assigns[0])
	}
	if assigns[1].AnchorID != "g2" || assigns[1].ContigID != "contigY" {
		t.Errorf("g2 should fall back to contigY, got %+v", assigns[1])
	}

	seen := make(map[string]int)
	for _, a := range assigns {
		seen[a.ContigID]++
	}
	for contig, n := range seen {
		if n > 1 {
			t.Errorf("contig %s assigned %d times", contig, n)
		}
	}
}

// The cross-claim ledger spans chromosomes: a contig claimed on one
// chromosome is not available to another.
func TestResolveCrossChromosomeClaim(t *testing.T) {
	r := NewResolver(0, defaultTiers, false)
	r.AddChromosome("chr2", []anchors.AnchorRecord{{ID: "g2", Chromosome: "chr2", Start: 10}},
		map[string][]blast.HitRecord{"g2": {hit("g2", "contigX", 60, 200, 1, 60)}})
	r.AddChromosome("chr1", []anchors.AnchorRecord{{ID: "g1", Chromosome: "chr1", Start: 10}},
		map[string][]blast.HitRecord{"g1": {hit("g1", "contigX", 95, 100, 1, 95)}})

	assigns := r.Resolve()
	if len(assigns["chr1"]) != 1 {
		t.Fatalf("chr1 should keep contigX, got %v", assigns["chr1"])
	}
	if len(assigns["chr2"]) != 0 {
		t.Fatalf("chr2's weaker claim on contigX should be dropped, got %v", assigns["chr2"])
	}
}

func TestResolveNoHitsSilentlySkipped(t *testing.T) {
	selected := []anchors.AnchorRecord{
		{ID: "g1", Chromosome: "chr1", Start: 100},
		{ID: "g2", Chromosome: "chr1", Start: 500},
	}
	hits := map[string][]blast.HitRecord{
		"g2": {hit("g2", "contigB", 95, 1000, 1, 95)},
	}

	r := NewResolver(0, defaultTiers, false)
	r.AddChromosome("chr1", selected, hits)
	assigns := r.Resolve()["chr1"]

	if len(assigns) != 1 || assigns[0].AnchorID != "g2" {
		t.Fatalf("anchor without hits should be skipped, got %v", assigns)
	}
}

func TestResolveEmptyChromosome(t *testing.T) {
	r := NewResolver(0, defaultTiers, false)
	r.AddChromosome("chr1", []anchors.AnchorRecord{{ID: "g1", Chromosome: "chr1", Start: 1}}, nil)
	if got := r.Resolve()["chr1"]; len(got) != 0 {
		t.Fatalf("expected no assignments, got %v", got)
	}
}

func TestOrientationGeneStrandOverride(t *testing.T) {
	// Forward alignment of a minus-strand gene means the contig is
	// reversed relative to the chromosome.
	selected := []anchors.AnchorRecord{{ID: "g1", Chromosome: "chr1", Start: 100, Strand: "-"}}
	hits := map[string][]blast.HitRecord{
		"g1": {hit("g1", "contigA", 95, 1000, 1, 95)},
	}

	r := NewResolver(0, defaultTiers, true)
	r.AddChromosome("chr1", selected, hits)
	assigns := r.Resolve()["chr1"]
	if len(assigns) != 1 || !assigns[0].Reverse {
		t.Fatalf("expected strand override to flip orientation, got %v", assigns)
	}

	// Without the flag, the alignment evidence stands.
	r = NewResolver(0, defaultTiers, false)
	r.AddChromosome("chr1", selected, hits)
	assigns = r.Resolve()["chr1"]
	if len(assigns) != 1 || assigns[0].Reverse {
		t.Fatalf("expected forward orientation without the strand flag, got %v", assigns)
	}
}
