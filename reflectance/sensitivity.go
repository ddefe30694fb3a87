package reflectance

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
)

const (
	// Bands is the number of sampled wavelengths.
	Bands = 36
	// MinWavelength is the centre of the first band in nm.
	MinWavelength = 380
	// BandStep is the spacing between band centres in nm.
	BandStep = 10
)

//go:embed T_matrix.csv
var defaultMatrixCSV []byte

var defaultSensitivity = sync.OnceValues(func() (*Sensitivity, error) {
	return LoadSensitivity(bytes.NewReader(defaultMatrixCSV))
})

// Wavelengths returns the band centres 380, 390, ..., 730.
func Wavelengths() [Bands]int {
	var w [Bands]int
	for i := range w {
		w[i] = MinWavelength + i*BandStep
	}
	return w
}

// Sensitivity maps a 36-band reflectance to linear sRGB under D65.
// It is immutable after construction and safe for concurrent use.
type Sensitivity struct {
	t *mat.Dense // 3×Bands

	ilssOnce sync.Once
	ilssB    *mat.Dense
	ilssErr  error
}

// DefaultSensitivity returns the process-wide matrix parsed from the
// embedded CSV. It panics if the embedded asset is malformed.
func DefaultSensitivity() *Sensitivity {
	s, err := defaultSensitivity()
	if err != nil {
		panic(err)
	}
	return s
}

// NewSensitivity copies rows into a new Sensitivity.
func NewSensitivity(rows [3][Bands]float64) *Sensitivity {
	t := mat.NewDense(3, Bands, nil)
	for r := range 3 {
		t.SetRow(r, rows[r][:])
	}
	return &Sensitivity{t: t}
}

// LoadSensitivity parses a CSV with a header row followed by three rows of
// 36 numbers. A leading non-numeric label column is ignored.
func LoadSensitivity(r io.Reader) (*Sensitivity, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSensitivity, err)
	}
	if len(records) < 4 {
		return nil, fmt.Errorf("%w: expected header and 3 rows, got %d records", ErrInvalidSensitivity, len(records))
	}

	var rows [3][Bands]float64
	n := 0
	for _, rec := range records[1:] {
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if n == 3 {
			return nil, fmt.Errorf("%w: more than 3 data rows", ErrInvalidSensitivity)
		}
		if len(rec) == Bands+1 {
			rec = rec[1:]
		}
		if len(rec) != Bands {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidSensitivity, n, len(rec), Bands)
		}
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %w", ErrInvalidSensitivity, n, i, err)
			}
			rows[n][i] = v
		}
		n++
	}
	if n != 3 {
		return nil, fmt.Errorf("%w: got %d data rows, want 3", ErrInvalidSensitivity, n)
	}
	return NewSensitivity(rows), nil
}

// At returns T[row][band].
func (s *Sensitivity) At(row, band int) float64 {
	return s.t.At(row, band)
}

// Apply returns T·rho as linear RGB.
func (s *Sensitivity) Apply(rho Spectrum) [3]float64 {
	var out [3]float64
	for r := range 3 {
		sum := 0.0
		for i := range Bands {
			sum += s.t.At(r, i) * rho[i]
		}
		out[r] = sum
	}
	return out
}

// ilssInverse returns the inverse of [[D, Tᵀ], [T, 0]] for the ILSS
// roughness operator. Computed on first use.
func (s *Sensitivity) ilssInverse() (*mat.Dense, error) {
	s.ilssOnce.Do(func() {
		aug := augmented(roughness(ilssDiag, ilssOff), s.t)
		n, _ := aug.Dims()
		eye := mat.NewDense(n, n, nil)
		for i := range n {
			eye.Set(i, i, 1)
		}
		var lu mat.LU
		lu.Factorize(aug)
		var b mat.Dense
		if err := lu.SolveTo(&b, false, eye); err != nil {
			s.ilssErr = fmt.Errorf("%w: ilss augmented system: %w", ErrNumerical, err)
			return
		}
		s.ilssB = &b
	})
	return s.ilssB, s.ilssErr
}
