package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/biogo/biogo/seq/linear"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/gmaffy/scaffold-whisperer/anchors"
	"github.com/gmaffy/scaffold-whisperer/blast"
	"github.com/gmaffy/scaffold-whisperer/report"
	"github.com/gmaffy/scaffold-whisperer/scaffold"
	"github.com/gmaffy/scaffold-whisperer/utils"
)

// Options carries everything one scaffolding run needs. Flag and config
// parsing happens in cmd; by the time Run sees an Options the strategy has
// been validated.
type Options struct {
	Assembly      string
	Queries       string
	GeneTable     string
	OutputDir     string
	BaseName      string
	Strategy      anchors.Strategy
	Threads       int
	MinGeneLength float64
	CoverageTiers []float64
	KeepContigIDs bool
	UseGeneStrand bool
}

// Run executes the whole pipeline: partition, select, align, resolve,
// assemble, report. Configuration and input-format problems, and an
// unusable aligner, abort before any per-chromosome work; a single
// chromosome's failure only skips that chromosome.
func Run(opts Options) ([]report.ChromSummary, error) {
	start := time.Now()

	switch opts.Strategy {
	case anchors.GeneQueries, anchors.RankedQueries:
	default:
		return nil, &anchors.ConfigurationError{Msg: "no anchor strategy selected, choose gene_queries or ranked_queries"}
	}
	if opts.BaseName == "" {
		opts.BaseName = "scaffolds"
	}
	if len(opts.CoverageTiers) == 0 {
		opts.CoverageTiers = []float64{0.9, 0.7, 0.5}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, err
	}

	// ----------------------------------- Create/Open log file ------------------------------------------------ //
	logFilePath := filepath.Join(opts.OutputDir, "scaffolding.log")
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("SCAFFOLDING", "PROGRAM", "INITIALISE", "STRATEGY", opts.Strategy.String(), "STATUS", "STARTED")

	// --------------------------------------- Load inputs ----------------------------------------------------- //
	fmt.Printf("Reading reference gene table %s ...\n\n", opts.GeneTable)
	table, err := anchors.LoadTable(opts.GeneTable)
	if err != nil {
		return nil, err
	}

	groups := anchors.PartitionByChromosome(table)
	chroms := maps.Keys(groups)
	slices.Sort(chroms)
	if len(chroms) == 0 {
		return nil, &anchors.InputFormatError{Msg: fmt.Sprintf("table %s has no rows with a chromosome value", opts.GeneTable)}
	}
	fmt.Printf("Found %d chromosomes: %v\n\n", len(chroms), chroms)

	fmt.Printf("Reading draft assembly %s ...\n\n", opts.Assembly)
	contigs, contigIDs, err := utils.ReadFastaMap(opts.Assembly)
	if err != nil {
		return nil, err
	}
	contigLengths := make(map[string]float64, len(contigIDs))
	for _, id := range contigIDs {
		contigLengths[id] = float64(contigs[id].Len())
	}
	fmt.Printf("Draft assembly has %d contigs\n\n", len(contigIDs))

	fmt.Printf("Reading query sequences %s ...\n\n", opts.Queries)
	querySeqs, _, err := utils.ReadFastaMap(opts.Queries)
	if err != nil {
		return nil, err
	}

	// ------------------------------------- Select anchors ---------------------------------------------------- //
	selected := make(map[string][]anchors.AnchorRecord, len(chroms))
	var globalSelected []anchors.AnchorRecord
	for _, chrom := range chroms {
		sel, err := anchors.Select(groups[chrom], opts.Strategy)
		if err != nil {
			return nil, err
		}
		selected[chrom] = sel
		globalSelected = append(globalSelected, sel...)
		logger.Info("SCAFFOLDING", "PROGRAM", "SELECT", "CHROMOSOME", chrom, "ANCHORS", len(sel), "STATUS", "FINISHED")
	}

	// --------------------------------------- Run BLAST ------------------------------------------------------- //
	fmt.Printf("Checking dependencies ...\n\n")
	if err := utils.CheckDeps(); err != nil {
		return nil, &blast.AlignmentToolError{Tool: "blast+", Err: err}
	}

	db, err := blast.MakeDB(opts.Assembly, filepath.Join(opts.OutputDir, "blastdb"))
	if err != nil {
		return nil, err
	}

	fmt.Printf("Aligning %d anchors against %d contigs ...\n\n", len(globalSelected), len(contigIDs))
	logger.Info("SCAFFOLDING", "PROGRAM", "BLASTN", "ANCHORS", len(globalSelected), "STATUS", "STARTED")
	hitTable, err := blast.AlignAll(globalSelected, querySeqs, db, opts.OutputDir, contigLengths, opts.Threads)
	if err != nil {
		return nil, err
	}
	logger.Info("SCAFFOLDING", "PROGRAM", "BLASTN", "ANCHORS", len(globalSelected), "STATUS", "FINISHED")

	summaries, err := assembleChromosomes(opts, chroms, selected, hitTable, contigs, logger)
	if err != nil {
		return summaries, err
	}

	// ----------------------------------- Whole genome output ------------------------------------------------- //
	var scaffoldPaths []string
	for _, s := range summaries {
		if !s.Skipped {
			scaffoldPaths = append(scaffoldPaths, s.ScaffoldPath)
		}
	}
	if len(scaffoldPaths) > 0 {
		genomePath := filepath.Join(opts.OutputDir, opts.BaseName+"_genome_assembly.fasta")
		if err := utils.ConcatFasta(scaffoldPaths, genomePath); err != nil {
			return summaries, err
		}
		fmt.Printf("Whole genome assembly saved at: %s\n\n", genomePath)
	}

	reportPath := filepath.Join(opts.OutputDir, "scaffold_report.html")
	if err := report.WriteChartHTML(summaries, reportPath); err != nil {
		fmt.Printf("WARNING: writing HTML report failed: %v\n", err)
	}

	// --------------------------------------- Summary --------------------------------------------------------- //
	done := 0
	for _, s := range summaries {
		if s.Skipped {
			fmt.Printf("Chromosome %s skipped: %s\n", s.Chromosome, s.Reason)
			continue
		}
		done++
		mean, median, n50 := report.SegmentStats(s.SegmentLengths)
		fmt.Printf("Chromosome %s: %d/%d anchors assigned, scaffold length %.0f bp (contig mean %.0f, median %.0f, N50 %.0f)\n",
			s.Chromosome, s.Assigned, s.Anchors, s.ScaffoldLength(), mean, median, n50)
	}
	fmt.Printf("\nScaffolded %d/%d chromosomes\n", done, len(chroms))
	fmt.Printf("Scaffolding took %s\n", time.Since(start))
	logger.Info("SCAFFOLDING", "PROGRAM", "INITIALISE", "STATUS", "FINISHED", "SCAFFOLDED", done, "CHROMOSOMES", len(chroms))

	return summaries, nil
}

// assembleChromosomes runs the post-alignment half of the pipeline: resolve
// contig claims across all chromosomes, then write the mapping table and
// scaffold FASTA per chromosome. A chromosome with nothing to assemble is
// skipped, not fatal, and a failed mapping table only costs the diagnostic.
func assembleChromosomes(opts Options, chroms []string, selected map[string][]anchors.AnchorRecord, hitTable map[string][]blast.HitRecord, contigs map[string]*linear.Seq, logger *slog.Logger) ([]report.ChromSummary, error) {
	useStrand := opts.UseGeneStrand && opts.Strategy == anchors.GeneQueries
	resolver := scaffold.NewResolver(opts.MinGeneLength, opts.CoverageTiers, useStrand)

	var rg errgroup.Group
	for _, chrom := range chroms {
		chrom := chrom
		rg.Go(func() error {
			resolver.AddChromosome(chrom, selected[chrom], hitTable)
			return nil
		})
	}
	if err := rg.Wait(); err != nil {
		return nil, err
	}
	assignments := resolver.Resolve()

	summaries := make([]report.ChromSummary, len(chroms))
	var ag errgroup.Group
	for i, chrom := range chroms {
		i, chrom := i, chrom
		ag.Go(func() error {
			s := report.ChromSummary{
				Chromosome: chrom,
				Anchors:    len(selected[chrom]),
				Assigned:   len(assignments[chrom]),
			}
			if len(assignments[chrom]) == 0 {
				s.Skipped = true
				s.Reason = "no resolvable assignments"
				fmt.Printf("WARNING: chromosome %s has no resolvable assignments. Skipping...\n", chrom)
				logger.Warn("SCAFFOLDING", "PROGRAM", "ASSEMBLE", "CHROMOSOME", chrom, "STATUS", "SKIPPED", "REASON", s.Reason)
				summaries[i] = s
				return nil
			}

			mapPath := filepath.Join(opts.OutputDir, utils.SanitizeName(chrom)+"_contigs_of_interest.csv")
			if err := report.WriteMappingCSV(mapPath, assignments[chrom]); err != nil {
				fmt.Printf("WARNING: writing mapping table for chromosome %s failed: %v\n", chrom, err)
				logger.Warn("SCAFFOLDING", "PROGRAM", "ASSEMBLE", "CHROMOSOME", chrom, "STATUS", "MAPPING_TABLE_FAILED", "REASON", err.Error())
			}

			logger.Info("SCAFFOLDING", "PROGRAM", "ASSEMBLE", "CHROMOSOME", chrom, "STATUS", "STARTED")
			path, lengths, err := scaffold.BuildScaffold(chrom, assignments[chrom], contigs, opts.OutputDir, opts.KeepContigIDs)
			if err != nil {
				s.Skipped = true
				s.Reason = err.Error()
				fmt.Printf("WARNING: assembling chromosome %s failed: %v. Skipping...\n", chrom, err)
				logger.Warn("SCAFFOLDING", "PROGRAM", "ASSEMBLE", "CHROMOSOME", chrom, "STATUS", "FAILED", "REASON", s.Reason)
				summaries[i] = s
				return nil
			}
			s.ScaffoldPath = path
			s.SegmentLengths = lengths
			logger.Info("SCAFFOLDING", "PROGRAM", "ASSEMBLE", "CHROMOSOME", chrom, "STATUS", "FINISHED")
			summaries[i] = s
			return nil
		})
	}
	return summaries, ag.Wait()
}
