package render

import (
	"image/color"
	"io"

	"git.sr.ht/~sbinet/gg"

	"github.com/orbitlab/starmap/pkg/geom"
	"github.com/orbitlab/starmap/pkg/starmap"
)

// RenderPNG rasterizes the same frame the SVG renderer draws, minus the
// text layer. Useful for thumbnails and for environments without an SVG
// viewer.
func (r *Renderer) RenderPNG(w io.Writer, sc Scene) error {
	dc := gg.NewContext(sc.Width, sc.Height)

	dc.SetColor(color.RGBA{0x1e, 0x1e, 0x2e, 0xff})
	dc.Clear()

	for i, c := range sc.Clusters {
		if c.Hull == nil {
			continue
		}
		outline := geom.SmoothClosed(geom.Expand(c.Hull, r.cfg.HullMargin), r.cfg.SmoothSamples)
		tracePath(dc, outline)
		fill := hexColor(SectorColor(i))
		fill.A = uint8(255 * r.cfg.RegionOpacity)
		dc.SetColor(fill)
		dc.FillPreserve()
		stroke := hexColor(SectorColor(i))
		stroke.A = 128
		dc.SetColor(stroke)
		dc.SetLineWidth(1.5)
		dc.Stroke()
	}

	byID := make(map[string]*starmap.Node, len(sc.Nodes))
	for _, n := range sc.Nodes {
		byID[n.ID] = n
	}

	dc.SetColor(color.RGBA{0x44, 0x47, 0x5a, 0xcc})
	dc.SetLineWidth(1)
	for _, l := range sc.Lanes {
		a, ok1 := byID[l.Source]
		b, ok2 := byID[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
		dc.Stroke()
	}

	for _, n := range sc.Nodes {
		radius := float64(r.cfg.NodeRadius)
		if n.IsCapital {
			radius += 3
		}
		dc.SetColor(hexColor(r.NodeColor(n, sc.Factions)))
		dc.DrawCircle(n.X, n.Y, radius)
		dc.Fill()
		dc.SetColor(color.RGBA{0xf8, 0xf8, 0xf2, 0xff})
		dc.SetLineWidth(1)
		dc.DrawCircle(n.X, n.Y, radius)
		dc.Stroke()
	}

	return dc.EncodePNG(w)
}

func tracePath(dc *gg.Context, pts []geom.Point) {
	if len(pts) == 0 {
		return
	}
	dc.NewSubPath()
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
}

// hexColor parses #rgb or #rrggbb; anything unparseable comes back neutral
// gray so a bad faction color never breaks a frame.
func hexColor(s string) color.RGBA {
	gray := color.RGBA{0x9a, 0xa0, 0xb0, 0xff}
	if len(s) == 0 || s[0] != '#' {
		return gray
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return gray
	}
	var v [3]uint8
	for i := 0; i < 3; i++ {
		hi, ok1 := hexNibble(hex[i*2])
		lo, ok2 := hexNibble(hex[i*2+1])
		if !ok1 || !ok2 {
			return gray
		}
		v[i] = hi<<4 | lo
	}
	return color.RGBA{v[0], v[1], v[2], 0xff}
}

func hexNibble(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
