package sample

import (
	"io"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// FrameRecord is the serialized form of one object, used for session
// snapshots so that measured origins, corrections and barcodes survive a
// restart.
type FrameRecord struct {
	Name       string  `yaml:"name"`
	Kind       string  `yaml:"kind"`
	Container  string  `yaml:"container,omitempty"`
	ZeroX      float64 `yaml:"zero_x"`
	ZeroY      float64 `yaml:"zero_y"`
	ZeroZ      float64 `yaml:"zero_z"`
	FlipX      int     `yaml:"flip_x"`
	FlipY      int     `yaml:"flip_y"`
	FlipZ      int     `yaml:"flip_z"`
	CorrX      float64 `yaml:"corr_x"`
	CorrY      float64 `yaml:"corr_y"`
	CorrZ      float64 `yaml:"corr_z"`
	TiltSlopeX float64 `yaml:"tilt_slope_x,omitempty"`
	TiltSlopeY float64 `yaml:"tilt_slope_y,omitempty"`
	TiltSlopeZ float64 `yaml:"tilt_slope_z,omitempty"`
	TiltOffset float64 `yaml:"tilt_offset,omitempty"`
	Diameter   float64 `yaml:"diameter,omitempty"`
	Barcode    string  `yaml:"barcode,omitempty"`
	CellLine   string  `yaml:"cell_line,omitempty"`
	Clone      string  `yaml:"clone,omitempty"`
}

// Snapshot flattens the tree below root into records, pre-order.
func Snapshot(root *Object) []FrameRecord {
	var out []FrameRecord
	var walk func(o *Object)
	walk = func(o *Object) {
		r := FrameRecord{
			Name:     o.Name(),
			Kind:     o.Kind().String(),
			Diameter: o.Diameter(),
			Barcode:  o.Barcode(),
			CellLine: o.CellLine(),
			Clone:    o.Clone(),
		}
		if o.Container() != nil {
			r.Container = o.Container().Name()
		}
		z := o.Zero()
		r.ZeroX, r.ZeroY, r.ZeroZ = z.X, z.Y, z.Z
		fl := o.Flip()
		r.FlipX, r.FlipY, r.FlipZ = fl.X, fl.Y, fl.Z
		c := o.Correction()
		r.CorrX, r.CorrY, r.CorrZ = c.X, c.Y, c.Z
		t := o.Tilt()
		r.TiltSlopeX, r.TiltSlopeY, r.TiltSlopeZ, r.TiltOffset = t.SlopeX, t.SlopeY, t.SlopeZ, t.Offset
		out = append(out, r)
		for _, ch := range o.Children() {
			walk(ch)
		}
	}
	walk(root)
	return out
}

// EncodeSnapshot writes the records as YAML.
func EncodeSnapshot(w io.Writer, records []FrameRecord) error {
	b, err := yaml.Marshal(records)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteSnapshot snapshots the tree below root to a file.
func WriteSnapshot(path string, root *Object) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeSnapshot(f, Snapshot(root))
}
