package profile

import "time"

func pt(ms int64, mC int32) Point {
	return Point{Time: time.Duration(ms) * time.Millisecond, Temp: Millidegrees(mC)}
}

// NoPb is the lead-free reference curve.
// https://www.compuphase.com/electronics/reflowsolderprofiles.htm
var NoPb = MustCurve("nopb", []Point{
	pt(0, 15000),
	pt(80000, 115000),
	pt(180000, 175000),
	pt(225000, 240000),
	pt(265000, 245000),
	pt(285000, 0),
	pt(360000, 0),
}, Options{Label: "NoPb", Cooldown: 285 * time.Second})

// Pb is the leaded reference curve.
var Pb = MustCurve("pb", []Point{
	pt(0, 15000),
	pt(90000, 120000),
	pt(180000, 150000),
	pt(225000, 230000),
	pt(255000, 230000),
	pt(255001, 0),
	pt(360000, 0),
}, Options{Label: "  Pb", Cooldown: 255001 * time.Millisecond})

// DefaultConstant is the constant-mode range of the stock firmware.
var DefaultConstant = ConstantRange{Base: 50000, Step: 5000, Max: 260000}
