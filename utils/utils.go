package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

type Config struct {
	Assembly   string
	Queries    string
	GeneTable  string
	OutputDir  string
	Strategy   string
	BaseName   string
	Threads    string
	MinGeneLen string
	// Coverage tiers are fractions of the gene length an alignment must
	// span, tried in order until one tier keeps at least one hit.
	CoverageTiers []string
	KeepContigIDs string
	UseGeneStrand string
}

func ReadConfig(configPath string) (Config, error) {
	configFile, err := os.Open(configPath)
	if err != nil {
		return Config{}, err
	}
	defer configFile.Close()
	var cfg Config

	scanner := bufio.NewScanner(configFile)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "Assembly":
			cfg.Assembly = value
		case "Queries":
			cfg.Queries = value
		case "GeneTable":
			cfg.GeneTable = value
		case "OutputDir":
			cfg.OutputDir = value
		case "Strategy":
			cfg.Strategy = value
		case "BaseName":
			cfg.BaseName = value
		case "threads":
			cfg.Threads = value
		case "min_gene_length":
			cfg.MinGeneLen = value
		case "coverage_tier":
			cfg.CoverageTiers = append(cfg.CoverageTiers, value)
		case "keep_contig_ids":
			cfg.KeepContigIDs = value
		case "use_gene_strand":
			cfg.UseGeneStrand = value
		}
	}

	if err := scanner.Err(); err != nil {
		return cfg, err
	}

	return cfg, nil

}

// CoverageTierValues parses the coverage_tier entries, falling back to the
// default cascade when the config does not set any.
func (c Config) CoverageTierValues() ([]float64, error) {
	if len(c.CoverageTiers) == 0 {
		return []float64{0.9, 0.7, 0.5}, nil
	}
	var tiers []float64
	for _, t := range c.CoverageTiers {
		v, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, fmt.Errorf("bad coverage_tier value %q: %w", t, err)
		}
		tiers = append(tiers, v)
	}
	return tiers, nil
}

func RunBashCmdVerbose(cmdStr string) error {
	cmd := exec.Command("bash", "-c", cmdStr)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		return err
	}
	return nil
}

// CheckDeps verifies the BLAST+ binaries the pipeline shells out to are on PATH.
func CheckDeps() error {
	deps := []string{"blastn", "makeblastdb"}
	var missing []string
	for _, dep := range deps {
		if _, err := exec.LookPath(dep); err != nil {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required tools on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}

func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	if err != nil {
		return err
	}
	return out.Sync()
}
