/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scaffold-whisperer",
	Short: "Reference-guided scaffolding of draft genome assemblies",
	Long: `A reference-guided scaffolder that orders and orients draft assembly
contigs into chromosome-scale sequences:
1.	scaffold: run the full pipeline (partition, select, blast, resolve, assemble)
2.	extract: pull named records out of a FASTA file
3.	split: split a multi-FASTA into one file per record
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cfgFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file ")
}
