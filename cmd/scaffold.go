/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gmaffy/scaffold-whisperer/anchors"
	"github.com/gmaffy/scaffold-whisperer/pipeline"
	"github.com/gmaffy/scaffold-whisperer/utils"
)

// scaffoldCmd represents the scaffold command
var scaffoldCmd = &cobra.Command{
	Use:   "scaffold -a <draft assembly fasta> -q <query fasta> -t <gene table> -s <strategy> [args]",
	Short: "Order and orient draft contigs into chromosome scaffolds",
	Long: `scaffold runs the full pipeline: it partitions the reference gene table by
chromosome, selects a non-redundant ordered anchor subset, blasts each anchor
against the draft contigs, resolves one best contig per anchor (deduplicating
contigs claimed by more than one anchor), and writes one scaffold FASTA per
chromosome plus a whole-genome concatenation.

Anchor strategies (choose exactly one with -s):
	1. gene_queries: anchors are annotated genes with known coordinates (and optionally strand)
	2. ranked_queries: anchors are pre-ranked coordinate windows ordered upstream`,
	Run: func(cmd *cobra.Command, args []string) {

		assembly, aErr := cmd.Flags().GetString("assembly")
		if aErr != nil {
			log.Fatalf("Error getting assembly flag: %v", aErr)
		}

		queries, qErr := cmd.Flags().GetString("queries")
		if qErr != nil {
			log.Fatalf("Error getting queries flag: %v", qErr)
		}

		geneTable, gErr := cmd.Flags().GetString("table")
		if gErr != nil {
			log.Fatalf("Error getting table flag: %v", gErr)
		}

		strategyStr, sErr := cmd.Flags().GetString("strategy")
		if sErr != nil {
			log.Fatalf("Error getting strategy flag: %v", sErr)
		}

		outputDir, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}

		baseName, bErr := cmd.Flags().GetString("base_name")
		if bErr != nil {
			log.Fatalf("Error getting base_name flag: %v", bErr)
		}

		threads, tErr := cmd.Flags().GetInt("threads")
		if tErr != nil {
			log.Fatalf("Error getting threads flag: %v", tErr)
		}

		minGeneLen, mErr := cmd.Flags().GetFloat64("min_gene_length")
		if mErr != nil {
			log.Fatalf("Error getting min_gene_length flag: %v", mErr)
		}

		tiers, cErr := cmd.Flags().GetFloat64Slice("coverage_tiers")
		if cErr != nil {
			log.Fatalf("Error getting coverage_tiers flag: %v", cErr)
		}

		keepIDs, kErr := cmd.Flags().GetBool("keep_contig_ids")
		if kErr != nil {
			log.Fatalf("Error getting keep_contig_ids flag: %v", kErr)
		}

		useStrand, uErr := cmd.Flags().GetBool("use_gene_strand")
		if uErr != nil {
			log.Fatalf("Error getting use_gene_strand flag: %v", uErr)
		}

		// A config file fills in whatever the flags left empty.
		if cfgFile != "" {
			cfg, err := utils.ReadConfig(cfgFile)
			if err != nil {
				log.Fatalf("Error reading config file %s: %v", cfgFile, err)
			}
			if assembly == "" {
				assembly = cfg.Assembly
			}
			if queries == "" {
				queries = cfg.Queries
			}
			if geneTable == "" {
				geneTable = cfg.GeneTable
			}
			if outputDir == "" {
				outputDir = cfg.OutputDir
			}
			if baseName == "" {
				baseName = cfg.BaseName
			}
			if strategyStr == "" {
				strategyStr = cfg.Strategy
			}
			if cfg.Threads != "" && threads == 0 {
				t, err := strconv.Atoi(cfg.Threads)
				if err != nil {
					log.Fatalf("Bad threads value in config: %v", err)
				}
				threads = t
			}
			if cfg.MinGeneLen != "" && minGeneLen == 0 {
				m, err := strconv.ParseFloat(cfg.MinGeneLen, 64)
				if err != nil {
					log.Fatalf("Bad min_gene_length value in config: %v", err)
				}
				minGeneLen = m
			}
			if len(tiers) == 0 {
				cfgTiers, err := cfg.CoverageTierValues()
				if err != nil {
					log.Fatalf("Bad coverage_tier value in config: %v", err)
				}
				tiers = cfgTiers
			}
			if cfg.KeepContigIDs == "true" {
				keepIDs = true
			}
			if cfg.UseGeneStrand == "true" {
				useStrand = true
			}
		}

		if assembly == "" || queries == "" || geneTable == "" {
			log.Fatalf("assembly (-a), queries (-q) and table (-t) are all required")
		}
		if outputDir == "" {
			outputDir = "."
		}

		strategy, err := anchors.ParseStrategy(strategyStr)
		if err != nil {
			log.Fatalf("%v", err)
		}

		opts := pipeline.Options{
			Assembly:      assembly,
			Queries:       queries,
			GeneTable:     geneTable,
			OutputDir:     outputDir,
			BaseName:      baseName,
			Strategy:      strategy,
			Threads:       threads,
			MinGeneLength: minGeneLen,
			CoverageTiers: tiers,
			KeepContigIDs: keepIDs,
			UseGeneStrand: useStrand,
		}

		if _, err := pipeline.Run(opts); err != nil {
			log.Fatalf("Scaffolding failed: %v", err)
		}
		fmt.Println("Done.")
	},
}

func init() {
	rootCmd.AddCommand(scaffoldCmd)
	scaffoldCmd.Flags().StringP("assembly", "a", "", "path to draft assembly fasta file")
	scaffoldCmd.Flags().StringP("queries", "q", "", "path to query sequences fasta file")
	scaffoldCmd.Flags().StringP("table", "t", "", "path to reference gene/query table (tsv or csv)")
	scaffoldCmd.Flags().StringP("strategy", "s", "", "anchor strategy: gene_queries or ranked_queries")
	scaffoldCmd.Flags().StringP("output", "o", "", "output directory")
	scaffoldCmd.Flags().StringP("base_name", "b", "", "base name for whole genome output")
	scaffoldCmd.Flags().IntP("threads", "p", 0, "parallel blast jobs (default: all cores)")
	scaffoldCmd.Flags().Float64("min_gene_length", 0, "anchors with shorter query sequences are ignored")
	scaffoldCmd.Flags().Float64Slice("coverage_tiers", nil, "cascading hit-length fractions of gene length (default 0.9,0.7,0.5)")
	scaffoldCmd.Flags().Bool("keep_contig_ids", false, "append original contig ids to scaffold headers")
	scaffoldCmd.Flags().Bool("use_gene_strand", false, "gene_queries only: use the table's strand column to orient contigs")
}
