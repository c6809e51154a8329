package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/seq/linear"

	"github.com/gmaffy/scaffold-whisperer/anchors"
	"github.com/gmaffy/scaffold-whisperer/blast"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testContigs() map[string]*linear.Seq {
	return map[string]*linear.Seq{
		"contigA": linear.NewSeq("contigA", alphabet.BytesToLetters([]byte("ACGTACGTACGT")), alphabet.DNA),
	}
}

func TestRunRequiresStrategy(t *testing.T) {
	_, err := Run(Options{
		Assembly:  "draft.fasta",
		Queries:   "genes.fasta",
		GeneTable: "genes.csv",
		OutputDir: t.TempDir(),
	})
	var cfgErr *anchors.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestRunFailsFastOnBadTable(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "genes.csv")
	if err := os.WriteFile(table, []byte("gene_id,start\ng1,100\n"), 0644); err != nil {
		t.Fatalf("writing table: %v", err)
	}

	_, err := Run(Options{
		Assembly:  filepath.Join(dir, "draft.fasta"),
		Queries:   filepath.Join(dir, "genes.fasta"),
		GeneTable: table,
		OutputDir: dir,
		Strategy:  anchors.GeneQueries,
	})
	var ifErr *anchors.InputFormatError
	if !errors.As(err, &ifErr) {
		t.Fatalf("expected InputFormatError for a table without a chromosome column, got %v", err)
	}
}

func TestAssembleChromosomesSkipsEmptyChromosome(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		OutputDir:     dir,
		Strategy:      anchors.GeneQueries,
		CoverageTiers: []float64{0.9, 0.7, 0.5},
	}
	selected := map[string][]anchors.AnchorRecord{
		"chr1": {{ID: "g1", Chromosome: "chr1", Start: 100}},
		"chr2": {{ID: "g2", Chromosome: "chr2", Start: 100}},
	}
	// g2 has no hits at all, so chr2 has nothing to assemble.
	hitTable := map[string][]blast.HitRecord{
		"g1": {{
			AnchorID:     "g1",
			ContigID:     "contigA",
			Length:       95,
			GeneLength:   100,
			ContigLength: 12,
			SubjectStart: 1,
			SubjectEnd:   95,
		}},
	}

	summaries, err := assembleChromosomes(opts, []string{"chr1", "chr2"}, selected, hitTable, testContigs(), quietLogger())
	if err != nil {
		t.Fatalf("assembleChromosomes: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	if summaries[0].Skipped {
		t.Errorf("chr1 unexpectedly skipped: %s", summaries[0].Reason)
	}
	if _, err := os.Stat(filepath.Join(dir, "chr1_assembly.fasta")); err != nil {
		t.Errorf("expected chr1 scaffold file: %v", err)
	}

	if !summaries[1].Skipped {
		t.Error("expected chr2 to be skipped")
	}
	if _, err := os.Stat(filepath.Join(dir, "chr2_assembly.fasta")); !os.IsNotExist(err) {
		t.Errorf("expected no chr2 scaffold file, stat err = %v", err)
	}
}

func TestAssembleChromosomesToleratesMappingTableFailure(t *testing.T) {
	dir := t.TempDir()
	// Occupy the mapping table path with a directory so writing it fails.
	if err := os.MkdirAll(filepath.Join(dir, "chr1_contigs_of_interest.csv"), 0755); err != nil {
		t.Fatal(err)
	}

	opts := Options{
		OutputDir:     dir,
		Strategy:      anchors.GeneQueries,
		CoverageTiers: []float64{0.9, 0.7, 0.5},
	}
	selected := map[string][]anchors.AnchorRecord{
		"chr1": {{ID: "g1", Chromosome: "chr1", Start: 100}},
	}
	hitTable := map[string][]blast.HitRecord{
		"g1": {{
			AnchorID:     "g1",
			ContigID:     "contigA",
			Length:       95,
			GeneLength:   100,
			ContigLength: 12,
			SubjectStart: 1,
			SubjectEnd:   95,
		}},
	}

	summaries, err := assembleChromosomes(opts, []string{"chr1"}, selected, hitTable, testContigs(), quietLogger())
	if err != nil {
		t.Fatalf("assembleChromosomes: %v", err)
	}
	if summaries[0].Skipped {
		t.Errorf("chr1 unexpectedly skipped: %s", summaries[0].Reason)
	}
	if _, err := os.Stat(filepath.Join(dir, "chr1_assembly.fasta")); err != nil {
		t.Errorf("expected chr1 scaffold despite mapping table failure: %v", err)
	}
}
