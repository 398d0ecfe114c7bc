package traceplot

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ginty-lab/ephus/internal/fsutil"
)

// WritePNG draws p as a PNG of the given size in inches. Sample i is
// plotted at i/sampleRate seconds.
func WritePNG(w io.Writer, p Panel, sampleRate, widthIn, heightIn float64) error {
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = "Time (s)"
	pl.Y.Label.Text = p.Channel

	for i, s := range p.Series {
		if len(s.Samples) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.Samples))
		for j, v := range s.Samples {
			pts[j] = plotter.XY{X: float64(j) / sampleRate, Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		line.Color, line.Dashes = seriesStyle(i)
		line.Width = vg.Points(1)
		if s.Name == "mean" {
			line.Color, line.Dashes = color.Black, nil
			line.Width = vg.Points(2)
		}
		pl.Add(line)
		pl.Legend.Add(s.Name, line)
	}
	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10

	wt, err := pl.WriterTo(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNGs writes one PNG per panel into dir and returns the file paths.
func SavePNGs(fs fsutil.FileSystem, dir, prefix string, panels []Panel, sampleRate, widthIn, heightIn float64) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range panels {
		path := filepath.Join(dir, FileName(prefix, p.Title)+".png")
		f, err := fs.Create(path)
		if err != nil {
			return paths, err
		}
		if err := WritePNG(f, p, sampleRate, widthIn, heightIn); err != nil {
			_ = f.Close()
			return paths, fmt.Errorf("%s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// FileName joins prefix and title into a file name, replacing characters
// other than letters, digits, '-' and '_'.
func FileName(prefix, title string) string {
	name := title
	if prefix != "" {
		name = prefix + "_" + title
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// seriesStyle picks the colour and dash pattern of the i-th series. Once
// the palette runs out the colours repeat with the next dash pattern.
func seriesStyle(i int) (color.Color, []vg.Length) {
	return plotutil.Color(i), plotutil.Dashes(i / len(plotutil.DefaultColors))
}
