package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/surface"
)

type fixture struct {
	surf *surface.GG
	doc  *domain.Document
	eng  *Engine
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// setup builds a 40x50 design with a background, a logo and a text layer.
func setup(t *testing.T) fixture {
	t.Helper()
	s := surface.NewGG()
	if err := s.Create(40, 50, "#FFFFFF"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Dispose)
	doc, _ := domain.NewDocument(40, 50)
	objs := []*domain.Object{
		domain.NewBackground(solid(4, 5, color.RGBA{200, 200, 200, 255}), 10),
		domain.NewImageLayer(solid(10, 10, color.RGBA{0, 0, 255, 255}), 5, 7, 1.5),
		domain.NewTextLayer("Hi"),
	}
	objs[2].X, objs[2].Y = 3.25, 11.5
	for _, o := range objs {
		if err := s.AddObject(o); err != nil {
			t.Fatal(err)
		}
		doc.Append(o)
	}
	return fixture{surf: s, doc: doc, eng: NewEngine(s)}
}

func decode(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestExportPNGRoundTrip(t *testing.T) {
	f := setup(t)
	before := make([]domain.Geometry, f.doc.Len())
	for i, o := range f.doc.Objects {
		before[i] = o.Geometry()
	}
	for _, m := range []int{1, 2, 3, 5} {
		out, err := f.eng.ExportPNG(f.doc, m)
		if err != nil {
			t.Fatalf("export x%d: %v", m, err)
		}
		img := decode(t, out)
		if img.Bounds().Dx() != 40*m || img.Bounds().Dy() != 50*m {
			t.Fatalf("x%d size = %v", m, img.Bounds())
		}
		for i, o := range f.doc.Objects {
			if o.Geometry() != before[i] {
				t.Fatalf("x%d: object %d geometry %+v, want %+v", m, i, o.Geometry(), before[i])
			}
		}
		if w, h := f.surf.Size(); w != 40 || h != 50 {
			t.Fatalf("surface not restored: %dx%d", w, h)
		}
	}
}

func TestExportScalesContent(t *testing.T) {
	f := setup(t)
	out, err := f.eng.ExportPNG(f.doc, 2)
	if err != nil {
		t.Fatal(err)
	}
	img := decode(t, out)
	// logo covers (5,7)-(20,22) at x1, so (24,30) at x2 is inside it
	_, _, b, _ := img.At(24, 30).RGBA()
	if b>>8 < 200 {
		t.Fatalf("expected logo pixel at (24,30), got %v", img.At(24, 30))
	}
}

func TestExportErrors(t *testing.T) {
	f := setup(t)
	empty, _ := domain.NewDocument(40, 50)
	if _, err := f.eng.ExportPNG(empty, 1); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := f.eng.ExportPNG(f.doc, 0); !errors.Is(err, ErrInvalidMultiplier) {
		t.Fatalf("expected ErrInvalidMultiplier, got %v", err)
	}
	if _, err := NewEngine(surface.NewGG()).ExportPNG(f.doc, 1); !errors.Is(err, surface.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestLookupPreset(t *testing.T) {
	p, err := LookupPreset(" Print ")
	if err != nil || p.Multiplier != 3 || !p.PDF {
		t.Fatalf("print preset = %+v, %v", p, err)
	}
	if _, err := LookupPreset("poster"); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
	if len(Presets()) != 3 {
		t.Fatalf("expected 3 presets")
	}
}

func TestBatchExportWritesFiles(t *testing.T) {
	f := setup(t)
	root := t.TempDir()
	outs, err := BatchExport(f.eng, f.doc, BatchOptions{
		Presets: []PresetName{PresetWeb, PresetPrint},
		Root:    root,
	})
	if err != nil {
		t.Fatalf("batch export: %v", err)
	}
	checks := []string{
		filepath.Join(root, "exports", "web", DefaultFileName),
		filepath.Join(root, "exports", "print", DefaultFileName),
		filepath.Join(root, "exports", "print", "tshirt_design.pdf"),
	}
	for _, p := range checks {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
	if len(outs) != 2 || outs[0].PDFPath != "" || outs[1].PDFPath == "" {
		t.Fatalf("outputs = %+v", outs)
	}
	pdf, _ := os.ReadFile(checks[2])
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
}

func TestBundle(t *testing.T) {
	f := setup(t)
	var buf bytes.Buffer
	if err := Bundle(f.eng, f.doc, []int{1, 2}, &buf); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, zf := range zr.File {
		names = append(names, zf.Name)
	}
	got := strings.Join(names, ",")
	if got != "design-x1.png,design-x2.png,manifest.txt" {
		t.Fatalf("entries = %s", got)
	}

	path := filepath.Join(t.TempDir(), "sub", "bundle.zip")
	if err := WriteBundle(f.eng, f.doc, nil, path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}
