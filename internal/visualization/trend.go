package visualization

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nvandessel/diffsim/internal/trends"
)

// RenderTrends writes tr in the given format. DOT is not a trend format.
func RenderTrends(w io.Writer, format Format, tr *trends.Trends, kind trends.Kind) error {
	switch format {
	case FormatCSV:
		return RenderCSV(w, tr, kind)
	case FormatJSON:
		return RenderTrendsJSON(w, tr)
	case FormatText:
		return RenderText(w, tr, kind)
	case FormatHTML:
		out, err := RenderHTML(tr, kind)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	return fmt.Errorf("format %q cannot render trends", format)
}

// RenderCSV writes one row per iteration and one column per status.
func RenderCSV(w io.Writer, tr *trends.Trends, kind trends.Kind) error {
	series := tr.Series(kind)
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(series)+1)
	header = append(header, "iteration")
	for _, s := range series {
		header = append(header, s.Status)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for j, it := range tr.Iterations {
		row[0] = strconv.Itoa(it)
		for i, s := range series {
			row[i+1] = strconv.Itoa(s.Values[j])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", it, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderTrendsJSON writes both series kinds as indented JSON.
func RenderTrendsJSON(w io.Writer, tr *trends.Trends) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tr)
}

// RenderText writes an aligned table.
func RenderText(w io.Writer, tr *trends.Trends, kind trends.Kind) error {
	series := tr.Series(kind)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	cols := make([]string, 0, len(series)+1)
	cols = append(cols, "iteration")
	for _, s := range series {
		cols = append(cols, s.Status)
	}
	fmt.Fprintln(tw, strings.Join(cols, "\t")+"\t")

	for j, it := range tr.Iterations {
		cells := make([]string, 0, len(series)+1)
		cells = append(cells, strconv.Itoa(it))
		for _, s := range series {
			v := s.Values[j]
			if kind == trends.KindStatusDelta && v > 0 {
				cells = append(cells, "+"+strconv.Itoa(v))
				continue
			}
			cells = append(cells, strconv.Itoa(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}

// Chart geometry, in SVG user units.
const (
	chartWidth   = 720
	chartHeight  = 360
	chartMargin  = 48
	chartTickCnt = 5
)

type chartLine struct {
	Status string
	Color  string
	Points string
	Last   int
}

type chartTick struct {
	Pos   float64
	Label string
}

// htmlTemplateData holds data passed to the HTML template.
type htmlTemplateData struct {
	Title      string
	Model      string
	Kind       string
	Width      int
	Height     int
	Left       int
	Right      int
	Top        int
	Bottom     int
	ZeroY      float64
	Lines      []chartLine
	XTicks     []chartTick
	YTicks     []chartTick
	TrendsJSON template.JS
}

// RenderHTML produces a self-contained HTML page with an SVG line chart of
// the selected series and the raw trends embedded as JSON.
func RenderHTML(tr *trends.Trends, kind trends.Kind) ([]byte, error) {
	tmplBytes, err := templates.ReadFile("templates/trends.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}
	tmpl, err := template.New("trends").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	raw, err := json.Marshal(tr)
	if err != nil {
		return nil, fmt.Errorf("marshal trends: %w", err)
	}
	// json.HTMLEscape rewrites <, > and & so the payload cannot close the
	// surrounding script element.
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, raw)

	data := chartData(tr, kind)
	data.TrendsJSON = template.JS(escaped.String()) // #nosec G203

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}

// chartData scales the series into the plot area.
func chartData(tr *trends.Trends, kind trends.Kind) htmlTemplateData {
	series := tr.Series(kind)
	left, right := chartMargin, chartWidth-chartMargin/2
	top, bottom := chartMargin/2, chartHeight-chartMargin

	lo, hi := 0, 1
	for _, s := range series {
		for _, v := range s.Values {
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	minX, maxX := 0, 1
	if n := len(tr.Iterations); n > 0 {
		minX, maxX = tr.Iterations[0], max(tr.Iterations[n-1], tr.Iterations[0]+1)
	}

	sx := func(x int) float64 {
		return float64(left) + float64(x-minX)/float64(maxX-minX)*float64(right-left)
	}
	sy := func(y int) float64 {
		return float64(bottom) - float64(y-lo)/float64(hi-lo)*float64(bottom-top)
	}

	title := "Diffusion trend"
	if kind == trends.KindStatusDelta {
		title = "Diffusion prevalence"
	}

	data := htmlTemplateData{
		Title:  title,
		Model:  tr.Model,
		Kind:   string(kind),
		Width:  chartWidth,
		Height: chartHeight,
		Left:   left,
		Right:  right,
		Top:    top,
		Bottom: bottom,
		ZeroY:  sy(0),
	}

	for i, s := range series {
		pts := make([]string, len(s.Values))
		for j, v := range s.Values {
			pts[j] = fmt.Sprintf("%.1f,%.1f", sx(tr.Iterations[j]), sy(v))
		}
		last := 0
		if len(s.Values) > 0 {
			last = s.Values[len(s.Values)-1]
		}
		data.Lines = append(data.Lines, chartLine{
			Status: s.Status,
			Color:  colorFor(s.Status, i),
			Points: strings.Join(pts, " "),
			Last:   last,
		})
	}

	for i := 0; i <= chartTickCnt; i++ {
		x := minX + (maxX-minX)*i/chartTickCnt
		y := lo + (hi-lo)*i/chartTickCnt
		data.XTicks = append(data.XTicks, chartTick{Pos: sx(x), Label: strconv.Itoa(x)})
		data.YTicks = append(data.YTicks, chartTick{Pos: sy(y), Label: strconv.Itoa(y)})
	}
	return data
}
