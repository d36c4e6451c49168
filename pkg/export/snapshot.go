package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/quizflow/pkg/flow"
	"github.com/vanderheijden86/quizflow/pkg/layout"
	"github.com/vanderheijden86/quizflow/pkg/metrics"
	"github.com/vanderheijden86/quizflow/pkg/model"
)

// SnapshotOptions controls static snapshot export behaviour.
type SnapshotOptions struct {
	Path     string // Output path; format inferred from extension when Format empty
	Format   string // "svg", "png", or "both" (writes both extensions)
	Title    string // Optional title rendered in the summary block
	Preset   string // Layout preset: "compact" (default) or "roomy"
	DataHash string // Hash of the input document for provenance

	// UseExisting keeps the nodes' stored positions instead of running the
	// layout engine fresh.
	UseExisting bool
}

// SaveSnapshot renders a static snapshot (SVG and/or PNG) of the flow with
// a minimal summary block. The visual language is deliberately plain so the
// output is reviewable in diffs and docs.
func SaveSnapshot(snap flow.Snapshot, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotRender)()
	if len(snap.Nodes) == 0 {
		return fmt.Errorf("no nodes to export")
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
			if filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" && format != "both" {
		return fmt.Errorf("unsupported format %q (want svg, png, or both)", format)
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
	}

	scene := buildScene(snap, opts)

	if format == "both" {
		base := strings.TrimSuffix(opts.Path, filepath.Ext(opts.Path))
		var g errgroup.Group
		g.Go(func() error { return renderSVGFile(base+".svg", scene) })
		g.Go(func() error { return renderPNGFile(base+".png", scene) })
		return g.Wait()
	}
	if format == "svg" {
		return renderSVGFile(opts.Path, scene)
	}
	return renderPNGFile(opts.Path, scene)
}

// --- scene computation -----------------------------------------------------

type sceneNode struct {
	ID    string
	Path  string
	Label string
	Type  model.NodeType
	X, Y  float64
	W, H  float64
}

type sceneEdge struct {
	From, To string
	Handle   string
}

type scene struct {
	Nodes  []sceneNode
	Edges  []sceneEdge
	Width  int
	Height int
	Title  string
	Hash   string
}

const (
	scenePadding = 36.0
	sceneHeader  = 64.0
)

func buildScene(snap flow.Snapshot, opts SnapshotOptions) scene {
	nodes := sortedNodes(snap)
	edges := sortedEdges(snap)

	positions := make(map[string]model.Position, len(nodes))
	if opts.UseExisting {
		for _, n := range nodes {
			positions[n.ID] = n.Position
		}
	} else {
		lopts := layout.DefaultOptions()
		if strings.EqualFold(opts.Preset, "roomy") {
			lopts = layout.RoomyOptions()
		}
		positions = layout.Compute(nodes, edges, lopts)
	}

	// Shift everything into positive space.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	sized := make([]sceneNode, 0, len(nodes))
	for _, n := range nodes {
		p := positions[n.ID]
		w, h := layout.NodeSize(n)
		sized = append(sized, sceneNode{
			ID:    n.ID,
			Path:  n.PrimaryPathID(),
			Label: truncate(n.Label(), 40),
			Type:  n.Type,
			X:     p.X, Y: p.Y, W: w, H: h,
		})
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X+w)
		maxY = math.Max(maxY, p.Y+h)
	}
	for i := range sized {
		sized[i].X += scenePadding - minX
		sized[i].Y += scenePadding + sceneHeader - minY
	}
	sort.Slice(sized, func(i, j int) bool { return sized[i].ID < sized[j].ID })

	sceneEdges := make([]sceneEdge, 0, len(edges))
	for _, e := range edges {
		sceneEdges = append(sceneEdges, sceneEdge{From: e.Source, To: e.Target, Handle: e.SourceHandle})
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Flow Snapshot"
	}

	width := int(maxX-minX) + int(2*scenePadding)
	if width < 640 {
		width = 640
	}
	height := int(maxY-minY) + int(2*scenePadding+sceneHeader)
	if height < 360 {
		height = 360
	}
	return scene{
		Nodes:  sized,
		Edges:  sceneEdges,
		Width:  width,
		Height: height,
		Title:  title,
		Hash:   opts.DataHash,
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorQuestion = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorAnswer   = color.RGBA{0xff, 0xf3, 0xe0, 0xff}
	colorOutcome  = color.RGBA{0xcf, 0xd8, 0xdc, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func typeColor(t model.NodeType) color.RGBA {
	switch t {
	case model.NodeAnswer:
		return colorAnswer
	case model.NodeOutcome:
		return colorOutcome
	default:
		return colorQuestion
	}
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func renderSVGFile(path string, sc scene) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return renderSVGToWriter(file, sc)
}

func renderSVGToWriter(w io.Writer, sc scene) error {
	canvas := svg.New(w)
	canvas.Start(sc.Width, sc.Height)
	canvas.Rect(0, 0, sc.Width, sc.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, sc.Width-32, int(sceneHeader-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(28, 38, sc.Title, fmt.Sprintf("fill:%s;font-size:15px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(28, 52, summaryLine(sc), fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))

	pos := make(map[string]sceneNode, len(sc.Nodes))
	for _, n := range sc.Nodes {
		pos[n.ID] = n
	}

	for _, e := range sc.Edges {
		from, okF := pos[e.From]
		to, okT := pos[e.To]
		if !okF || !okT {
			continue
		}
		x1 := int(from.X + from.W)
		y1 := int(from.Y + from.H/2)
		x2 := int(to.X)
		y2 := int(to.Y + to.H/2)
		canvas.Line(x1, y1, x2, y2, fmt.Sprintf("stroke:%s;stroke-width:2", css(colorEdge)))
		// simple arrow head
		canvas.Polygon(
			[]int{x2, x2 + 8, x2 + 8},
			[]int{y2, y2 + 4, y2 - 4},
			fmt.Sprintf("fill:%s", css(colorEdge)),
		)
	}

	for _, n := range sc.Nodes {
		x, y := int(n.X), int(n.Y)
		canvas.Roundrect(x, y, int(n.W), int(n.H), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(typeColor(n.Type)), css(colorStroke)))
		canvas.Text(x+10, y+22, n.Path, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(x+10, y+42, n.Label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
	canvas.End()
	return nil
}

func renderPNGFile(path string, sc scene) error {
	dc := gg.NewContext(sc.Width, sc.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(sc.Width)-32, sceneHeader-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawString(sc.Title, 28, 38)
	dc.SetColor(colorSubtle)
	dc.DrawString(summaryLine(sc), 28, 52)

	pos := make(map[string]sceneNode, len(sc.Nodes))
	for _, n := range sc.Nodes {
		pos[n.ID] = n
	}

	dc.SetColor(colorEdge)
	dc.SetLineWidth(2)
	for _, e := range sc.Edges {
		from, okF := pos[e.From]
		to, okT := pos[e.To]
		if !okF || !okT {
			continue
		}
		x1 := from.X + from.W
		y1 := from.Y + from.H/2
		x2 := to.X
		y2 := to.Y + to.H/2
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		dc.MoveTo(x2, y2)
		dc.LineTo(x2+8, y2+4)
		dc.LineTo(x2+8, y2-4)
		dc.ClosePath()
		dc.Fill()
	}

	for _, n := range sc.Nodes {
		dc.SetColor(typeColor(n.Type))
		dc.DrawRoundedRectangle(n.X, n.Y, n.W, n.H, 8)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
		dc.DrawRoundedRectangle(n.X, n.Y, n.W, n.H, 8)
		dc.Stroke()
		dc.SetColor(colorText)
		dc.DrawString(n.Path, n.X+10, n.Y+22)
		dc.SetColor(colorSubtle)
		dc.DrawString(n.Label, n.X+10, n.Y+42)
	}

	return dc.SavePNG(path)
}

func summaryLine(sc scene) string {
	line := fmt.Sprintf("%d nodes · %d edges", len(sc.Nodes), len(sc.Edges))
	if sc.Hash != "" {
		line += " · data " + sc.Hash
	}
	return line
}
