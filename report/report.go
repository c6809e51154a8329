package report

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/go-gota/gota/dataframe"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"

	"github.com/gmaffy/scaffold-whisperer/scaffold"
)

// ChromSummary is one chromosome's outcome, used for the run summary, the
// HTML report and the final exit message.
type ChromSummary struct {
	Chromosome     string
	Anchors        int
	Assigned       int
	ScaffoldPath   string
	SegmentLengths []float64
	Skipped        bool
	Reason         string
}

func (c ChromSummary) ScaffoldLength() float64 {
	var total float64
	for _, l := range c.SegmentLengths {
		total += l
	}
	return total
}

// SegmentStats summarises the placed contig lengths of one scaffold.
func SegmentStats(lengths []float64) (mean, median, n50 float64) {
	if len(lengths) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), lengths...)
	slices.Sort(sorted)

	mean = stat.Mean(sorted, nil)
	median = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	var total float64
	for _, l := range sorted {
		total += l
	}
	var cum float64
	for i := len(sorted) - 1; i >= 0; i-- {
		cum += sorted[i]
		if cum >= total/2 {
			n50 = sorted[i]
			break
		}
	}
	return mean, median, n50
}

// WriteChartHTML renders per-chromosome scaffold lengths and placed contig
// counts as bar charts on one HTML page.
func WriteChartHTML(summaries []ChromSummary, path string) error {
	var chroms []string
	var lengthData []opts.BarData
	var countData []opts.BarData
	for _, s := range summaries {
		if s.Skipped {
			continue
		}
		chroms = append(chroms, s.Chromosome)
		lengthData = append(lengthData, opts.BarData{Value: s.ScaffoldLength()})
		countData = append(countData, opts.BarData{Value: s.Assigned})
	}

	lengthBar := charts.NewBar()
	lengthBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Scaffold length per chromosome"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Length (bp)"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Chromosome"}),
	)
	lengthBar.SetXAxis(chroms).AddSeries("scaffold length", lengthData)

	countBar := charts.NewBar()
	countBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Contigs placed per chromosome"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Contigs"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Chromosome"}),
	)
	countBar.SetXAxis(chroms).AddSeries("contigs placed", countData)

	page := components.NewPage()
	page.AddCharts(lengthBar, countBar)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

// WriteMappingCSV writes the anchor-to-contig audit table for one
// chromosome, in assignment (scaffold) order.
func WriteMappingCSV(path string, assigns []scaffold.Assignment) error {
	records := [][]string{{
		"query_name", "subject_name", "chromosome", "identity", "length",
		"subject_start", "subject_end", "orientation", "contig_length", "coverage",
	}}
	for _, a := range assigns {
		orientation := "plus"
		if a.Reverse {
			orientation = "minus"
		}
		records = append(records, []string{
			a.AnchorID,
			a.ContigID,
			a.Chromosome,
			strconv.FormatFloat(a.Hit.Identity, 'f', -1, 64),
			strconv.FormatFloat(a.Hit.Length, 'f', -1, 64),
			strconv.FormatFloat(a.Hit.SubjectStart, 'f', -1, 64),
			strconv.FormatFloat(a.Hit.SubjectEnd, 'f', -1, 64),
			orientation,
			strconv.FormatFloat(a.Hit.ContigLength, 'f', -1, 64),
			fmt.Sprintf("%.4f", a.Coverage),
		})
	}

	df := dataframe.LoadRecords(records)
	if df.Err != nil {
		return df.Err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return df.WriteCSV(f)
}
