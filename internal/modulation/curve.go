// Package modulation resolves SF2 generators and modulators into the live
// parameter values of a voice.
package modulation

import (
	"math"

	"github.com/cbegin/sf2synth-go/internal/sf2"
)

const curveSize = 128

// curves[bipolar][negative][shape][value]
var curves [2][2][4][curveSize]float64

func init() {
	for shape := sf2.CurveLinear; shape <= sf2.CurveSwitch; shape++ {
		for i := 0; i < curveSize; i++ {
			pos := unipolar(shape, i)
			neg := unipolar(shape, curveSize-1-i)
			curves[0][0][shape][i] = pos
			curves[0][1][shape][i] = neg
			curves[1][0][shape][i] = 2*pos - 1
			curves[1][1][shape][i] = 2*neg - 1
		}
	}
}

// unipolar evaluates a positive min-to-max curve at controller value i.
func unipolar(shape sf2.Curve, i int) float64 {
	switch shape {
	case sf2.CurveConcave:
		if i >= curveSize-1 {
			return 1
		}
		return -40.0 / 96.0 * math.Log10(float64(curveSize-1-i)/float64(curveSize-1))
	case sf2.CurveConvex:
		if i <= 0 {
			return 0
		}
		return 1 + 40.0/96.0*math.Log10(float64(i)/float64(curveSize-1))
	case sf2.CurveSwitch:
		if i < curveSize/2 {
			return 0
		}
		return 1
	default:
		return float64(i) / float64(curveSize)
	}
}

// Curve maps a controller value in 0..127 through the curve selected by src.
func Curve(src sf2.Source, value int) float64 {
	if value < 0 {
		value = 0
	} else if value >= curveSize {
		value = curveSize - 1
	}
	shape := src.Curve()
	if shape > sf2.CurveSwitch {
		return 0
	}
	b, n := 0, 0
	if src.Bipolar() {
		b = 1
	}
	if src.Negative() {
		n = 1
	}
	return curves[b][n][shape][value]
}
