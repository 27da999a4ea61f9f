package profile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf16"
)

const (
	// MinMaxDepth is the shallowest profile callers may request.
	MinMaxDepth = 100
	// DefaultMaxDepth matches a standard ARGO park-and-profile cycle.
	DefaultMaxDepth = 2000
	// MaxMaxDepth is the deepest profile callers may request, a little past
	// the Challenger Deep.
	MaxMaxDepth = 11000

	minStep       = 5
	targetSamples = 400

	surfaceTemperature = 8.0
	surfaceSalinity    = 35.0
	salinityOffset     = 7
	noisePhase         = 31.7
	noiseScale         = 10000.0
)

// ErrTooDeep is returned by CheckMaxDepth for depths beyond MaxMaxDepth.
var ErrTooDeep = errors.New("maxDepth too deep")

// Request identifies one synthesis request.
type Request struct {
	FloatID  string `json:"floatId"`
	Date     string `json:"date"`
	MaxDepth int    `json:"maxDepth"`
}

// NewRequest builds a request with MaxDepth clamped to MinMaxDepth.
func NewRequest(floatID, date string, maxDepth int) Request {
	return Request{FloatID: floatID, Date: date, MaxDepth: ClampMaxDepth(maxDepth)}
}

// Row is a single sampled depth.
type Row struct {
	Depth       int     `json:"depth"`
	Temperature float64 `json:"temperature"`
	Salinity    float64 `json:"salinity"`
}

// Series is ordered by ascending depth.
type Series []Row

// ClampMaxDepth raises depths below MinMaxDepth to MinMaxDepth.
func ClampMaxDepth(maxDepth int) int {
	if maxDepth < MinMaxDepth {
		return MinMaxDepth
	}
	return maxDepth
}

// CheckMaxDepth rejects depths beyond MaxMaxDepth. Shallow depths are
// clamped rather than rejected.
func CheckMaxDepth(maxDepth int) error {
	if maxDepth > MaxMaxDepth {
		return fmt.Errorf("%w: %d exceeds %d m", ErrTooDeep, maxDepth, MaxMaxDepth)
	}
	return nil
}

// Step returns the sampling interval in meters for maxDepth.
func Step(maxDepth int) int {
	return max(minStep, maxDepth/targetSamples)
}

// Seed sums the character codes of "<floatID>-<date>". Each code point
// contributes its first UTF-16 code unit.
func Seed(floatID, date string) int {
	seed := 0
	for _, r := range floatID + "-" + date {
		if r >= 0x10000 {
			hi, _ := utf16.EncodeRune(r)
			seed += int(hi)
			continue
		}
		seed += int(r)
	}
	return seed
}

// noise returns a value in [0, 1) derived from seed and offset i.
func noise(seed, i int) float64 {
	x := math.Sin(float64(seed)+float64(i)*noisePhase) * noiseScale
	return x - math.Floor(x)
}

// Generate synthesizes the depth profile for req. The same request always
// yields the same series.
func Generate(req Request) Series {
	seed := Seed(req.FloatID, req.Date)
	step := Step(req.MaxDepth)

	n := req.MaxDepth / step
	rows := make(Series, 0, n+1)
	for i := 0; i <= n; i++ {
		d := i * step
		rows = append(rows, Row{
			Depth:       d,
			Temperature: round2(temperatureAt(d, noise(seed, d))),
			Salinity:    round2(salinityAt(d, noise(seed, d+salinityOffset))),
		})
	}
	return rows
}

func temperatureAt(depth int, n float64) float64 {
	d := float64(depth)
	return math.Max(0, surfaceTemperature+12*math.Exp(-d/200)-n*1.5)
}

func salinityAt(depth int, n float64) float64 {
	d := float64(depth)
	return surfaceSalinity + 0.8*(1-math.Exp(-d/800)) + (n-0.5)*0.2
}

// round2 rounds to two decimal places using the exact binary value. Exact
// binary ties round half to even, where toFixed-style formatting rounds them
// up; synthesized values never land on such a tie.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return math.Round(v*100) / 100
	}
	return r
}
