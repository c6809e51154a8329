package blast

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/biogo/biogo/seq/linear"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/gmaffy/scaffold-whisperer/anchors"
	"github.com/gmaffy/scaffold-whisperer/utils"
)

// HitRecord is one tabular (outfmt 6) alignment result linking an anchor
// query to a candidate contig, annotated with the query gene length and
// the subject contig's total length.
type HitRecord struct {
	AnchorID     string
	ContigID     string
	Identity     float64
	Length       float64
	Mismatch     int
	Gap          int
	QueryStart   int
	QueryEnd     int
	SubjectStart float64
	SubjectEnd   float64
	EValue       float64
	BitScore     float64
	GeneLength   float64
	ContigLength float64
}

// Coverage is the alignment length as a fraction of the contig's total
// length, the figure contig resolution ranks candidates by.
func (h HitRecord) Coverage() float64 {
	if h.ContigLength <= 0 {
		return 0
	}
	return h.Length / h.ContigLength
}

// Reverse reports whether the hit places the query on the contig's reverse
// strand, indicated by descending subject coordinates.
func (h HitRecord) Reverse() bool {
	return h.SubjectStart > h.SubjectEnd
}

// AlignmentToolError reports a failed BLAST+ invocation that no chromosome
// can be resolved without, e.g. a missing binary or a corrupt database.
type AlignmentToolError struct {
	Tool string
	Err  error
}

func (e *AlignmentToolError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *AlignmentToolError) Unwrap() error { return e.Err }

// MakeDB builds (or reuses) a nucleotide BLAST database over the draft
// assembly and returns its path prefix.
func MakeDB(assembly, dbDir string) (string, error) {
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}
	db := filepath.Join(dbDir, "contigs")

	if _, err := os.Stat(db + ".nin"); err == nil {
		fmt.Printf("BLAST database %s exists. Skip makeblastdb....\n", db)
		return db, nil
	}

	// Stage the assembly next to the database files so makeblastdb never
	// writes into the input directory.
	staged := filepath.Join(dbDir, "contigs.fasta")
	if err := utils.CopyFile(assembly, staged); err != nil {
		return "", err
	}

	cmdStr := fmt.Sprintf("makeblastdb -in %s -dbtype nucl -out %s", staged, db)
	fmt.Println(cmdStr)
	if err := utils.RunBashCmdVerbose(cmdStr); err != nil {
		return "", &AlignmentToolError{Tool: "makeblastdb", Err: err}
	}
	return db, nil
}

// AlignAll blasts every selected anchor's query sequence against the contig
// database, in parallel across anchors. A failed or empty alignment for one
// anchor yields zero hits for that anchor, not an error. The returned table
// is keyed by anchor id with each anchor's hits in a deterministic order
// regardless of job completion order.
func AlignAll(selected []anchors.AnchorRecord, querySeqs map[string]*linear.Seq, db, workDir string, contigLengths map[string]float64, threads int) (map[string][]HitRecord, error) {
	queryDir := filepath.Join(workDir, "queries")
	if err := os.MkdirAll(queryDir, 0755); err != nil {
		return nil, err
	}

	if threads < 1 {
		threads = runtime.NumCPU()
	}

	hitsPerAnchor := make([][]HitRecord, len(selected))
	var g errgroup.Group
	g.SetLimit(threads)

	for i := range selected {
		i := i
		anchor := selected[i]
		g.Go(func() error {
			qs, ok := querySeqs[anchor.ID]
			if !ok {
				fmt.Printf("No query sequence for anchor %s. Skipping...\n", anchor.ID)
				return nil
			}
			qPath := filepath.Join(queryDir, utils.SanitizeName(anchor.ID)+".fasta")
			if err := utils.WriteFasta(qPath, []*linear.Seq{qs}); err != nil {
				return err
			}

			hits, err := alignOne(anchor.ID, qPath, db)
			if err != nil {
				fmt.Printf("blastn failed for anchor %s: %v. Treating as zero hits.\n", anchor.ID, err)
				return nil
			}
			geneLen := float64(qs.Len())
			for j := range hits {
				hits[j].GeneLength = geneLen
				hits[j].ContigLength = contigLengths[hits[j].ContigID]
			}
			hitsPerAnchor[i] = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := make(map[string][]HitRecord, len(selected))
	for i, anchor := range selected {
		hits := hitsPerAnchor[i]
		if len(hits) == 0 {
			continue
		}
		SortHits(hits)
		table[anchor.ID] = hits
	}
	return table, nil
}

func alignOne(anchorID, queryPath, db string) ([]HitRecord, error) {
	cmd := exec.Command("blastn", "-query", queryPath, "-db", db, "-outfmt", "6")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &AlignmentToolError{Tool: "blastn", Err: fmt.Errorf("%v: %s", err, strings.TrimSpace(stderr.String()))}
	}
	hits, err := ParseTabular(&stdout)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		if hits[i].AnchorID == "" {
			hits[i].AnchorID = anchorID
		}
	}
	return hits, nil
}

// ParseTabular reads standard 12-column BLAST outfmt 6 records. Empty input
// is a valid zero-hit result.
func ParseTabular(r io.Reader) ([]HitRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var hits []HitRecord
	for _, rec := range records {
		if len(rec) < 12 {
			return nil, fmt.Errorf("expected at least 12 tab-separated columns, got %d: %v", len(rec), rec)
		}
		h := HitRecord{
			AnchorID: strings.TrimSpace(rec[0]),
			ContigID: strings.TrimSpace(rec[1]),
		}
		h.Identity, _ = strconv.ParseFloat(rec[2], 64)
		h.Length, _ = strconv.ParseFloat(rec[3], 64)
		h.Mismatch, _ = strconv.Atoi(rec[4])
		h.Gap, _ = strconv.Atoi(rec[5])
		h.QueryStart, _ = strconv.Atoi(rec[6])
		h.QueryEnd, _ = strconv.Atoi(rec[7])
		h.SubjectStart, _ = strconv.ParseFloat(rec[8], 64)
		h.SubjectEnd, _ = strconv.ParseFloat(rec[9], 64)
		h.EValue, _ = strconv.ParseFloat(rec[10], 64)
		h.BitScore, _ = strconv.ParseFloat(rec[11], 64)
		hits = append(hits, h)
	}
	return hits, nil
}

// SortHits orders one anchor's hits best first: coverage, then raw alignment
// length, then contig id so reruns give byte-identical downstream output.
func SortHits(hits []HitRecord) {
	slices.SortStableFunc(hits, func(a, b HitRecord) int {
		if a.Coverage() != b.Coverage() {
			if a.Coverage() > b.Coverage() {
				return -1
			}
			return 1
		}
		if a.Length != b.Length {
			if a.Length > b.Length {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ContigID, b.ContigID)
	})
}
