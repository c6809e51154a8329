package anchors

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/exp/slices"
)

// AnchorRecord is one reference gene or ranked query window used as a
// positional landmark when ordering contigs.
type AnchorRecord struct {
	ID         string
	Chromosome string
	Start      float64
	Strand     string
}

// Strategy selects how anchor rows are interpreted and filtered.
type Strategy int

const (
	StrategyUnset Strategy = iota
	// GeneQueries treats anchors as annotated genes with known reference
	// coordinates and, optionally, a known strand.
	GeneQueries
	// RankedQueries treats anchors as pre-ranked coordinate windows that
	// were deduplicated and ordered upstream.
	RankedQueries
)

func (s Strategy) String() string {
	switch s {
	case GeneQueries:
		return "gene_queries"
	case RankedQueries:
		return "ranked_queries"
	}
	return "unset"
}

// ParseStrategy maps the config/flag value onto a Strategy. Exactly one
// strategy must be named.
func ParseStrategy(v string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "gene_queries", "genes", "gene":
		return GeneQueries, nil
	case "ranked_queries", "ranked":
		return RankedQueries, nil
	case "":
		return StrategyUnset, &ConfigurationError{Msg: "no anchor strategy selected, choose gene_queries or ranked_queries"}
	}
	return StrategyUnset, &ConfigurationError{Msg: fmt.Sprintf("unknown anchor strategy %q, choose gene_queries or ranked_queries", v)}
}

// InputFormatError reports a reference table that cannot be used, typically
// a missing required column.
type InputFormatError struct {
	Msg string
}

func (e *InputFormatError) Error() string { return e.Msg }

// ConfigurationError reports an invalid strategy or parameter selection.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

var (
	idAliases     = []string{"gene_id", "full_id", "query_name", "id"}
	chromAliases  = []string{"chromosome", "chrom", "scaff", "ref_scaff"}
	startAliases  = []string{"start", "genomic_start", "scaff_start"}
	strandAliases = []string{"strand", "orientation"}
)

func findColumn(names []string, aliases []string) int {
	for _, alias := range aliases {
		for i, n := range names {
			if strings.EqualFold(strings.TrimSpace(n), alias) {
				return i
			}
		}
	}
	return -1
}

// LoadTable reads the reference gene/query table (tab- or comma-separated,
// sniffed from the header line) into AnchorRecords, in file order.
func LoadTable(path string) ([]AnchorRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	delim, err := sniffDelimiter(br)
	if err == io.EOF {
		return nil, &InputFormatError{Msg: fmt.Sprintf("table %s is empty", path)}
	}
	if err != nil {
		return nil, err
	}

	df := dataframe.ReadCSV(br,
		dataframe.WithDelimiter(delim),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
	if df.Err != nil {
		return nil, &InputFormatError{Msg: fmt.Sprintf("reading table %s: %v", path, df.Err)}
	}

	names := df.Names()
	idCol := findColumn(names, idAliases)
	chromCol := findColumn(names, chromAliases)
	startCol := findColumn(names, startAliases)
	strandCol := findColumn(names, strandAliases)

	if idCol < 0 {
		return nil, &InputFormatError{Msg: fmt.Sprintf("table %s has no gene id column (looked for %s)", path, strings.Join(idAliases, "/"))}
	}
	if chromCol < 0 {
		return nil, &InputFormatError{Msg: fmt.Sprintf("table %s has no chromosome column (looked for %s)", path, strings.Join(chromAliases, "/"))}
	}
	if startCol < 0 {
		return nil, &InputFormatError{Msg: fmt.Sprintf("table %s has no start column (looked for %s)", path, strings.Join(startAliases, "/"))}
	}

	records := df.Records()
	var out []AnchorRecord
	for _, row := range records[1:] {
		rec := AnchorRecord{
			ID:         strings.TrimSpace(row[idCol]),
			Chromosome: strings.TrimSpace(row[chromCol]),
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(row[startCol]), 64)
		if err != nil {
			start = math.NaN()
		}
		rec.Start = start
		if strandCol >= 0 {
			rec.Strand = normalizeStrand(row[strandCol])
		}
		out = append(out, rec)
	}
	return out, nil
}

// sniffDelimiter peeks at the header line without consuming the reader.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	head, err := br.Peek(4096)
	if len(head) == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.ContainsRune(head, '\t') {
		return '\t', nil
	}
	return ',', nil
}

func normalizeStrand(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "-", "minus", "rev", "reverse":
		return "-"
	case "+", "plus", "fwd", "forward":
		return "+"
	}
	return ""
}

// PartitionByChromosome groups anchors by chromosome, dropping rows whose
// chromosome field is blank. Input rows are not mutated.
func PartitionByChromosome(records []AnchorRecord) map[string][]AnchorRecord {
	groups := make(map[string][]AnchorRecord)
	for _, rec := range records {
		if rec.Chromosome == "" {
			continue
		}
		groups[rec.Chromosome] = append(groups[rec.Chromosome], rec)
	}
	return groups
}

// Select reduces one chromosome group to the duplicate-free anchor list the
// rest of the pipeline orders contigs by. The returned list is sorted
// ascending by start coordinate (ties broken by id) for both strategies;
// ranked queries arrive pre-ordered so the sort is a validity guarantee
// rather than a re-ranking.
func Select(group []AnchorRecord, strategy Strategy) ([]AnchorRecord, error) {
	switch strategy {
	case GeneQueries, RankedQueries:
	default:
		return nil, &ConfigurationError{Msg: "no anchor strategy selected, choose gene_queries or ranked_queries"}
	}

	seen := make(map[string]bool)
	var kept []AnchorRecord
	for _, rec := range group {
		if rec.ID == "" || math.IsNaN(rec.Start) {
			continue
		}
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		kept = append(kept, rec)
	}

	slices.SortStableFunc(kept, func(a, b AnchorRecord) int {
		if a.Start < b.Start {
			return -1
		}
		if a.Start > b.Start {
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return kept, nil
}
