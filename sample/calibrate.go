package sample

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FitTilt computes a tilt plane from focus positions measured at three or
// more xy locations in the frame's coordinates.  The plane is fitted in the
// form z = a*x + b*y + c by least squares and returned normalized with a
// unit z slope, ready for Frame.SetTilt.
func FitTilt(points []Position) (Tilt, error) {
	if len(points) < 3 {
		return Tilt{}, fmt.Errorf("sample: tilt fit needs at least 3 points, got %d", len(points))
	}
	a := mat.NewDense(len(points), 3, nil)
	z := mat.NewVecDense(len(points), nil)
	for i, p := range points {
		a.Set(i, 0, p.X)
		a.Set(i, 1, p.Y)
		a.Set(i, 2, 1)
		z.SetVec(i, p.Z)
	}

	var qr mat.QR
	qr.Factorize(a)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, z); err != nil {
		return Tilt{}, fmt.Errorf("sample: tilt fit: %w", err)
	}

	// z = a*x + b*y + c rearranges to -a*x - b*y + z = c.
	return Tilt{
		SlopeX: -coef.AtVec(0),
		SlopeY: -coef.AtVec(1),
		SlopeZ: 1,
		Offset: coef.AtVec(2),
	}, nil
}
