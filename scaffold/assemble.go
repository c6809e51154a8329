package scaffold

import (
	"fmt"
	"path/filepath"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/seq/linear"

	"github.com/gmaffy/scaffold-whisperer/utils"
)

// MissingSequenceError reports an assignment naming a contig that the draft
// assembly lookup does not contain. Contig names come from the assembly's
// own headers, so hitting this signals an id mismatch upstream.
type MissingSequenceError struct {
	Chromosome string
	ContigID   string
}

func (e *MissingSequenceError) Error() string {
	return fmt.Sprintf("chromosome %s: contig %s not found in draft assembly", e.Chromosome, e.ContigID)
}

// ScaffoldHeader builds the synthetic record label for the segment at the
// given 1-based position of a chromosome's scaffold. When keepContigID is
// set the original contig id is appended for traceability.
func ScaffoldHeader(chrom string, index int, contigID string, keepContigID bool) string {
	if keepContigID {
		return fmt.Sprintf("%s_%d|%s", chrom, index, contigID)
	}
	return fmt.Sprintf("%s_%d", chrom, index)
}

// BuildSegments turns one chromosome's ordered assignments into renumbered,
// oriented scaffold segments. Reverse assignments are reverse-complemented;
// the source contigs are never mutated.
func BuildSegments(chrom string, assigns []Assignment, contigs map[string]*linear.Seq, keepContigIDs bool) ([]*linear.Seq, error) {
	var segments []*linear.Seq
	for i, a := range assigns {
		src, ok := contigs[a.ContigID]
		if !ok {
			return nil, &MissingSequenceError{Chromosome: chrom, ContigID: a.ContigID}
		}
		letters := append(alphabet.Letters(nil), src.Seq...)
		seg := linear.NewSeq(ScaffoldHeader(chrom, i+1, a.ContigID, keepContigIDs), letters, alphabet.DNA)
		if a.Reverse {
			seg.RevComp()
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// BuildScaffold writes <chromosome>_assembly.fasta for one chromosome and
// returns the file path together with each segment's length in scaffold
// order.
func BuildScaffold(chrom string, assigns []Assignment, contigs map[string]*linear.Seq, outDir string, keepContigIDs bool) (string, []float64, error) {
	segments, err := BuildSegments(chrom, assigns, contigs, keepContigIDs)
	if err != nil {
		return "", nil, err
	}

	outPath := filepath.Join(outDir, utils.SanitizeName(chrom)+"_assembly.fasta")
	if err := utils.WriteFasta(outPath, segments); err != nil {
		return "", nil, err
	}

	lengths := make([]float64, len(segments))
	for i, seg := range segments {
		lengths[i] = float64(seg.Len())
	}
	return outPath, lengths, nil
}
