package domain

import (
	"errors"
	"image"
	"testing"

	"gotshirtdesigner/internal/vector"
)

func TestImageLayerBoundsFollowGeometry(t *testing.T) {
	o := NewImageLayer(image.NewRGBA(image.Rect(0, 0, 200, 100)), 10, 20, 0.5)
	if b := o.Bounds(); b != vector.R(10, 20, 100, 50) {
		t.Fatalf("bounds = %+v", b)
	}
	if !o.Selectable || !o.HasControls {
		t.Fatalf("image layer should be selectable with controls")
	}
	o.SetGeometry(Geometry{X: 0, Y: 0, ScaleX: 1, ScaleY: 2})
	if b := o.Bounds(); b != vector.R(0, 0, 200, 200) {
		t.Fatalf("bounds after SetGeometry = %+v", b)
	}
	if !o.Hit(vector.Pt{X: 150, Y: 150}) || o.Hit(vector.Pt{X: 250, Y: 10}) {
		t.Fatalf("hit test mismatch")
	}
}

func TestBackgroundIsNotSelectable(t *testing.T) {
	o := NewBackground(image.NewRGBA(image.Rect(0, 0, 50, 50)), 8)
	if o.Selectable || o.HasControls {
		t.Fatalf("background must not be selectable")
	}
	if o.ScaleX != 8 || o.ScaleY != 8 || o.X != 0 || o.Y != 0 {
		t.Fatalf("unexpected background geometry: %+v", o.Geometry())
	}
}

func TestTextLayerDefaults(t *testing.T) {
	o := NewTextLayer("Hi")
	if o.FontSize != 12 || o.Fill != "#000000" || o.FontFamily != FamilyArial || o.TextAlign != AlignCenter {
		t.Fatalf("unexpected defaults: %+v", o)
	}
	if o.FontWeight != WeightNormal || o.FontStyle != StyleNormal || o.Underline {
		t.Fatalf("unexpected style defaults: %+v", o)
	}
	if !o.IsText() {
		t.Fatalf("expected text kind")
	}
	o.SetNaturalSize(30, 14)
	if b := o.Bounds(); b.W != 30 || b.H != 14 {
		t.Fatalf("bounds after measure = %+v", b)
	}
}

func TestFamiliesValid(t *testing.T) {
	for _, f := range Families {
		if !f.Valid() {
			t.Fatalf("%q should be valid", f)
		}
	}
	if FontFamily("Comic Sans").Valid() {
		t.Fatalf("unknown family accepted")
	}
}

func TestDocumentOps(t *testing.T) {
	if _, err := NewDocument(0, 10); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	d, err := NewDocument(400, 500)
	if err != nil {
		t.Fatal(err)
	}
	bg := NewBackground(image.NewRGBA(image.Rect(0, 0, 10, 10)), 50)
	a := NewTextLayer("a")
	b := NewTextLayer("b")
	d.ReplaceAll(bg)
	d.Append(a)
	d.Append(b)
	if d.Background() != bg || d.IndexOf(b) != 2 || d.Find(a.ID) != a {
		t.Fatalf("lookup mismatch")
	}
	if err := d.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Remove(a) || d.Remove(a) || d.Len() != 2 {
		t.Fatalf("remove mismatch, len=%d", d.Len())
	}
	d.Objects = []*Object{b, bg}
	if err := d.Check(); err == nil {
		t.Fatalf("background at index 1 should fail Check")
	}
	d.Clear()
	if d.Len() != 0 || d.Background() != nil {
		t.Fatalf("clear failed")
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#FF0000")
	if err != nil || c.R != 255 || c.G != 0 || c.A != 255 {
		t.Fatalf("ParseColor red = %+v, %v", c, err)
	}
	if s, _ := NormalizeColor("#0f0"); s != "#00FF00" {
		t.Fatalf("NormalizeColor short = %q", s)
	}
	if _, err := ParseColor("blue"); !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("expected ErrInvalidColor, got %v", err)
	}
}
