package exifgps

import (
	"math"
	"testing"
)

func TestApproximateRespectsDenominatorBound(t *testing.T) {
	values := []float64{0, 0.1, 1.0 / 3, math.Pi, 123.456789, 9999.9999, 0.539957}
	for _, v := range values {
		r := Approximate(v, MaxDenominator)
		if r.Den == 0 || r.Den > MaxDenominator {
			t.Fatalf("Approximate(%v) = %d/%d, denominator out of bounds", v, r.Num, r.Den)
		}
	}
}

func TestApproximateAccuracy(t *testing.T) {
	values := []float64{42.195, 0.0001, 359.99, 17.5, 1013.25}
	for _, v := range values {
		r := Approximate(v, MaxDenominator)
		if math.Abs(r.Float()-v) > 1.0/MaxDenominator {
			t.Fatalf("Approximate(%v) = %d/%d = %v, error %v too large",
				v, r.Num, r.Den, r.Float(), math.Abs(r.Float()-v))
		}
	}
}

func TestApproximateExactFractions(t *testing.T) {
	r := Approximate(0.5, MaxDenominator)
	if r.Num*2 != r.Den {
		t.Fatalf("Approximate(0.5) = %d/%d, want a half", r.Num, r.Den)
	}

	r = Approximate(3, MaxDenominator)
	if r.Float() != 3 {
		t.Fatalf("Approximate(3) = %d/%d", r.Num, r.Den)
	}
}

func TestApproximateIsDeterministic(t *testing.T) {
	a := Approximate(123.4567, MaxDenominator)
	b := Approximate(123.4567, MaxDenominator)
	if a != b {
		t.Fatalf("Approximate not reproducible: %v vs %v", a, b)
	}
}

func TestApproximateNegativeAndNonFinite(t *testing.T) {
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		r := Approximate(v, MaxDenominator)
		if r != (Rational{0, 1}) {
			t.Fatalf("Approximate(%v) = %v, want 0/1", v, r)
		}
	}
}

func TestDMSRoundTrip(t *testing.T) {
	degrees := []float64{0, 0.0001, 48.1173, 89.9999, 179.9999, 33.8667}
	for _, deg := range degrees {
		back := dmsToDegrees(dmsRationals(deg))
		if math.Abs(back-deg) > 0.0001 {
			t.Fatalf("DMS round trip for %v came back as %v", deg, back)
		}
	}
}
