package sample

import "fmt"

// PlateLayout describes a standard multiwell plate: well pitch and diameter
// in um, grid size, and the position of well A1 relative to the plate origin
// at the plate's upper left corner.
type PlateLayout struct {
	Rows     int
	Columns  int
	PitchX   float64
	PitchY   float64
	Diameter float64
	A1X      float64
	A1Y      float64
	WellZ    float64
}

// StandardPlateLayout returns the layout for common ANSI/SLAS plate formats
// by well count: "96", "24" or "12".
func StandardPlateLayout(format string) (PlateLayout, error) {
	switch format {
	case "96":
		return PlateLayout{
			Rows: 8, Columns: 12,
			PitchX: 9000, PitchY: 9000,
			Diameter: 6134,
			A1X:      14220, A1Y: 11310,
			WellZ: 104,
		}, nil
	case "24":
		return PlateLayout{
			Rows: 4, Columns: 6,
			PitchX: 19300, PitchY: 19300,
			Diameter: 15540,
			A1X:      17050, A1Y: 13670,
			WellZ: 104,
		}, nil
	case "12":
		return PlateLayout{
			Rows: 3, Columns: 4,
			PitchX: 26000, PitchY: 26000,
			Diameter: 22050,
			A1X:      24940, A1Y: 16790,
			WellZ: 104,
		}, nil
	}
	return PlateLayout{}, fmt.Errorf("sample: unknown plate format %q", format)
}

// WellName returns the conventional well name for a zero-based row and
// column, e.g. (0,0) → "A1".
func WellName(row, col int) string {
	return fmt.Sprintf("%c%d", 'A'+rune(row), col+1)
}

// PopulatePlate creates the full well grid of a layout below plate.  Rows
// run A downward in y, columns 1 rightward in x.  Existing children are left
// alone, so a partially configured plate can be completed.
func PopulatePlate(plate *Object, layout PlateLayout) ([]*Object, error) {
	wells := make([]*Object, 0, layout.Rows*layout.Columns)
	for r := 0; r < layout.Rows; r++ {
		for c := 0; c < layout.Columns; c++ {
			name := WellName(r, c)
			if plate.Find(name) != nil {
				continue
			}
			w, err := NewWell(plate, FrameConfig{
				Name: name,
				Zero: Position{
					X: layout.A1X + float64(c)*layout.PitchX,
					Y: layout.A1Y + float64(r)*layout.PitchY,
					Z: layout.WellZ,
				},
			}, layout.Diameter)
			if err != nil {
				return nil, err
			}
			wells = append(wells, w)
		}
	}
	return wells, nil
}
