package slocum

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

// validLatitude and validLongitude reject the out-of-range values the glider logs
// when it has no fix.
func validLatitude(lat float64) bool {
	return !math.IsNaN(lat) && math.Abs(lat) <= 90
}

func validLongitude(lon float64) bool {
	return !math.IsNaN(lon) && math.Abs(lon) < 180
}

// InterpolateGPS fills a position for every timestamp from the sparse GPS fixes.
// Positions between fixes are linear; outside the fixes they hold the nearest fix.
// A single fix fills every row; no fixes leaves every row NaN.
func InterpolateGPS(t, lat, lon []float64) (latOut, lonOut []float64) {
	var ft, flat, flon []float64
	for i := range t {
		if math.IsNaN(t[i]) || !validLatitude(lat[i]) || !validLongitude(lon[i]) {
			continue
		}
		if n := len(ft); n > 0 && t[i] <= ft[n-1] {
			continue
		}
		ft = append(ft, t[i])
		flat = append(flat, lat[i])
		flon = append(flon, lon[i])
	}

	latOut = make([]float64, len(t))
	lonOut = make([]float64, len(t))

	switch len(ft) {
	case 0:
		for i := range t {
			latOut[i], lonOut[i] = math.NaN(), math.NaN()
		}
		return latOut, lonOut
	case 1:
		for i := range t {
			latOut[i], lonOut[i] = flat[0], flon[0]
		}
		return latOut, lonOut
	}

	var latFit, lonFit interp.PiecewiseLinear
	// Fit only fails on unsorted or short input, both excluded above.
	_ = latFit.Fit(ft, flat)
	_ = lonFit.Fit(ft, flon)

	for i, ts := range t {
		if math.IsNaN(ts) {
			latOut[i], lonOut[i] = math.NaN(), math.NaN()
			continue
		}
		latOut[i] = latFit.Predict(ts)
		lonOut[i] = lonFit.Predict(ts)
	}
	return latOut, lonOut
}

// DepthFromPressure converts sea pressure in decibars to depth in meters using the
// UNESCO 1983 (Fofonoff and Millard) formula with latitude-dependent gravity.
func DepthFromPressure(dbar, latitude float64) float64 {
	if math.IsNaN(dbar) {
		return math.NaN()
	}
	if math.IsNaN(latitude) {
		latitude = 45
	}
	x := math.Sin(latitude * math.Pi / 180)
	x *= x
	g := 9.780318*(1+(5.2788e-3+2.36e-5*x)*x) + 1.092e-6*dbar
	return ((((-1.82e-15*dbar+2.279e-10)*dbar-2.2512e-5)*dbar + 9.72659) * dbar) / g
}
