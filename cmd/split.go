/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/gmaffy/scaffold-whisperer/utils"
)

// splitCmd represents the split command
var splitCmd = &cobra.Command{
	Use:   "split -f <fasta file> -o <output dir>",
	Short: "Split a multi-FASTA into one file per record",
	Run: func(cmd *cobra.Command, args []string) {

		fastaFile, fErr := cmd.Flags().GetString("fasta")
		if fErr != nil {
			log.Fatalf("Error getting fasta flag: %v", fErr)
		}

		outDir, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}

		if fastaFile == "" {
			log.Fatalf("fasta (-f) is required")
		}
		if outDir == "" {
			outDir = "."
		}

		paths, err := utils.SplitFasta(fastaFile, outDir)
		if err != nil {
			log.Fatalf("Split failed: %v", err)
		}
		fmt.Printf("Wrote %d files to %s\n", len(paths), outDir)
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().StringP("fasta", "f", "", "path to multi-record fasta file")
	splitCmd.Flags().StringP("output", "o", "", "output directory")
}
