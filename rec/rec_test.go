package rec_test

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/aics-microscopy/goscope/rec"
)

func testImage() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(x + y*8)})
		}
	}
	return img
}

func TestRecorderSequence(t *testing.T) {
	r := &rec.Recorder{Root: t.TempDir(), Prefix: "a1_", Enabled: true}

	r.Incr()
	p1, err := r.SaveTIFF(testImage())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(p1, "a1_000001.tiff") {
		t.Errorf("first file %q", p1)
	}

	r.Incr()
	p2, err := r.SaveFITS(testImage(), []rec.Card{
		{Name: "OBJNAME", Value: "A1", Comment: "well"},
		{Name: "STAGEX", Value: 14220.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(p2, "a1_000002.fits") {
		t.Errorf("second file %q", p2)
	}

	// files land in a dated subfolder
	if filepath.Dir(p1) == r.Root {
		t.Errorf("file not in dated subfolder: %q", p1)
	}

	f, err := os.Open(p1)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("decoded %dx%d", b.Dx(), b.Dy())
	}
}

func TestRecorderCounterScansFolder(t *testing.T) {
	root := t.TempDir()
	r := &rec.Recorder{Root: root, Prefix: "a1_", Enabled: true}
	r.Incr()
	if _, err := r.SaveTIFF(testImage()); err != nil {
		t.Fatal(err)
	}

	// a fresh recorder over the same folder continues the sequence
	r2 := &rec.Recorder{Root: root, Prefix: "a1_", Enabled: true}
	r2.Incr()
	p, err := r2.SaveTIFF(testImage())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(p, "a1_000002.tiff") {
		t.Errorf("continuation file %q", p)
	}
}

func TestRecorderDisabled(t *testing.T) {
	r := &rec.Recorder{Root: t.TempDir(), Prefix: "a1_"}
	p, err := r.SaveTIFF(testImage())
	if err != nil || p != "" {
		t.Errorf("disabled recorder wrote %q, err %v", p, err)
	}
}
