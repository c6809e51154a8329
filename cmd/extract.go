/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmaffy/scaffold-whisperer/utils"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract -f <fasta file> -i <id list file> -o <output fasta>",
	Short: "Extract named records from a FASTA file",
	Long: `extract reads a FASTA file and writes the records whose headers match the
given ids, in the order the ids are listed. Ids can be given on the command
line (comma separated) or one per line in a file.`,
	Run: func(cmd *cobra.Command, args []string) {

		fastaFile, fErr := cmd.Flags().GetString("fasta")
		if fErr != nil {
			log.Fatalf("Error getting fasta flag: %v", fErr)
		}

		idsArg, iErr := cmd.Flags().GetString("ids")
		if iErr != nil {
			log.Fatalf("Error getting ids flag: %v", iErr)
		}

		idFile, lErr := cmd.Flags().GetString("id_file")
		if lErr != nil {
			log.Fatalf("Error getting id_file flag: %v", lErr)
		}

		outFile, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}

		if fastaFile == "" || outFile == "" {
			log.Fatalf("fasta (-f) and output (-o) are required")
		}

		var ids []string
		if idsArg != "" {
			for _, id := range strings.Split(idsArg, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
		}
		if idFile != "" {
			f, err := os.Open(idFile)
			if err != nil {
				log.Fatalf("Error opening id file %s: %v", idFile, err)
			}
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				if id := strings.TrimSpace(scanner.Text()); id != "" {
					ids = append(ids, id)
				}
			}
			if err := scanner.Err(); err != nil {
				f.Close()
				log.Fatalf("Error reading id file %s: %v", idFile, err)
			}
			f.Close()
		}

		if len(ids) == 0 {
			log.Fatalf("No ids given: use -i or -l")
		}

		if err := utils.ExtractSeqs(fastaFile, ids, outFile); err != nil {
			log.Fatalf("Extraction failed: %v", err)
		}
		fmt.Printf("Wrote %d records to %s\n", len(ids), outFile)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("fasta", "f", "", "path to fasta file")
	extractCmd.Flags().StringP("ids", "i", "", "comma separated record ids")
	extractCmd.Flags().StringP("id_file", "l", "", "file with one record id per line")
	extractCmd.Flags().StringP("output", "o", "", "output fasta file")
}
