package exifgps

import "math"

// Rational is an unsigned EXIF rational value.
type Rational struct {
	Num uint32
	Den uint32
}

// Float returns the rational as a float64.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// MaxDenominator bounds every approximated rational written to image
// metadata, keeping the encoding deterministic and reproducible.
const MaxDenominator = 10000

// Approximate returns the closest rational to v with denominator at most
// maxDen, via continued-fraction convergents. v must be non-negative;
// callers handle sign through the EXIF reference fields.
func Approximate(v float64, maxDen uint32) Rational {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Rational{0, 1}
	}

	var h0, k0, h1, k1 int64 = 0, 1, 1, 0
	x := v
	for i := 0; i < 64; i++ {
		a := int64(math.Floor(x))
		h2 := a*h1 + h0
		k2 := a*k1 + k0
		if k2 > int64(maxDen) {
			// Best semiconvergent still under the bound
			n := (int64(maxDen) - k0) / k1
			hs := n*h1 + h0
			ks := n*k1 + k0
			if ks > 0 && math.Abs(v-float64(hs)/float64(ks)) < math.Abs(v-float64(h1)/float64(k1)) {
				return Rational{uint32(hs), uint32(ks)}
			}
			return Rational{uint32(h1), uint32(k1)}
		}
		h0, k0, h1, k1 = h1, k1, h2, k2

		frac := x - math.Floor(x)
		if frac < 1e-12 {
			break
		}
		x = 1 / frac
	}
	if k1 == 0 {
		return Rational{0, 1}
	}
	return Rational{uint32(h1), uint32(k1)}
}

// dmsRationals splits a non-negative decimal-degree value into the EXIF
// degrees/minutes/seconds triple. Degrees and minutes are exact integers;
// seconds carry the fractional remainder as a bounded rational so position
// survives the round trip to within 1e-4 degrees.
func dmsRationals(deg float64) [3]Rational {
	d := math.Floor(deg)
	md := (deg - d) * 60
	m := math.Floor(md)
	sd := (md - m) * 60
	return [3]Rational{
		{uint32(d), 1},
		{uint32(m), 1},
		Approximate(sd, MaxDenominator),
	}
}

// dmsToDegrees folds a degrees/minutes/seconds triple back to decimal
// degrees.
func dmsToDegrees(dms [3]Rational) float64 {
	return dms[0].Float() + dms[1].Float()/60 + dms[2].Float()/3600
}
