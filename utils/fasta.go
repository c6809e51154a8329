package utils

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// ReadFasta reads every record of a (optionally gzipped) FASTA file in order.
func ReadFasta(path string) ([]*linear.Seq, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gzReader.Close()
		reader = gzReader
	}

	r := fasta.NewReader(reader, linear.NewSeq("", nil, alphabet.DNA))
	sc := seqio.NewScanner(r)

	var seqs []*linear.Seq
	for sc.Next() {
		seqs = append(seqs, sc.Seq().(*linear.Seq))
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return seqs, nil
}

// ReadFastaMap reads a FASTA file into a name->sequence lookup. The returned
// id slice preserves file order, which map iteration would not.
func ReadFastaMap(path string) (map[string]*linear.Seq, []string, error) {
	seqs, err := ReadFasta(path)
	if err != nil {
		return nil, nil, err
	}
	lookup := make(map[string]*linear.Seq, len(seqs))
	ids := make([]string, 0, len(seqs))
	for _, s := range seqs {
		if _, ok := lookup[s.ID]; ok {
			continue
		}
		lookup[s.ID] = s
		ids = append(ids, s.ID)
	}
	return lookup, ids, nil
}

func WriteFasta(path string, seqs []*linear.Seq) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := fasta.NewWriter(out, 60)
	for _, s := range seqs {
		if _, err := w.Write(s); err != nil {
			return fmt.Errorf("writing %s to %s: %w", s.ID, path, err)
		}
	}
	return nil
}

// ExtractSeqs pulls the named records out of a FASTA file, in the order the
// ids are given. Ids absent from the file are reported together.
func ExtractSeqs(fastaPath string, ids []string, outPath string) error {
	lookup, _, err := ReadFastaMap(fastaPath)
	if err != nil {
		return err
	}

	var picked []*linear.Seq
	var missing []string
	for _, id := range ids {
		s, ok := lookup[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		picked = append(picked, s)
	}
	if len(missing) > 0 {
		return fmt.Errorf("ids not found in %s: %s", fastaPath, strings.Join(missing, ", "))
	}
	return WriteFasta(outPath, picked)
}

// SplitFasta writes one FASTA file per record into outDir and returns the
// paths written, in record order.
func SplitFasta(fastaPath, outDir string) ([]string, error) {
	seqs, err := ReadFasta(fastaPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	var paths []string
	for _, s := range seqs {
		name := SanitizeName(s.ID) + ".fasta"
		p := filepath.Join(outDir, name)
		if err := WriteFasta(p, []*linear.Seq{s}); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// SanitizeName makes a sequence id safe to use as a file name.
func SanitizeName(id string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_", "|", "_", ".", "_")
	return r.Replace(id)
}

func ConcatFasta(fastas []string, outFasta string) error {

	outFile, err := os.Create(outFasta)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	for _, f := range fastas {
		inFile, err := os.Open(f)
		if err != nil {
			return fmt.Errorf("failed to open input file %s: %w", f, err)
		}

		_, err = io.Copy(outFile, inFile)
		if err != nil {
			inFile.Close()
			return fmt.Errorf("failed to copy contents from %s: %w", f, err)
		}
		inFile.Close()
	}
	return nil
}
