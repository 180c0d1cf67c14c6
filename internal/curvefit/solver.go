package curvefit

import (
	"errors"
	"fmt"

	"cvscan/pkg/contracts/domain"
)

// DefaultDegree is the polynomial degree used for display fits.
const DefaultDegree = 9

// Solver fits both halves of a cycle with a fixed polynomial degree.
type Solver struct {
	degree int
}

// NewSolver creates a solver for the given degree.
func NewSolver(degree int) (*Solver, error) {
	if degree < 0 {
		return nil, &FitError{Degree: degree, Reason: "degree must not be negative"}
	}
	return &Solver{degree: degree}, nil
}

// Degree returns the polynomial degree of the solver.
func (s *Solver) Degree() int {
	return s.degree
}

// Fit fits current as a function of potential over table.
func (s *Solver) Fit(table domain.Table) (domain.FitResult, error) {
	x := table.Potentials()
	y := table.Currents()

	coeffs, fitted, err := FitPolynomial(x, y, s.degree)
	if err != nil {
		return domain.FitResult{}, err
	}

	return domain.FitResult{
		Degree:   s.degree,
		X:        x,
		Y:        y,
		FittedY:  fitted,
		Coeffs:   coeffs,
		RSquared: RSquared(y, fitted),
	}, nil
}

// ProcessHalves fits the anode and cathode halves. Either both fits are
// returned or neither is.
func (s *Solver) ProcessHalves(anode, cathode domain.Table) (domain.HalfFits, error) {
	anodeFit, err := s.Fit(anode)
	if err != nil {
		return domain.HalfFits{}, labelHalf(err, domain.HalfAnode)
	}
	cathodeFit, err := s.Fit(cathode)
	if err != nil {
		return domain.HalfFits{}, labelHalf(err, domain.HalfCathode)
	}
	return domain.HalfFits{Anode: anodeFit, Cathode: cathodeFit}, nil
}

func labelHalf(err error, half domain.Half) error {
	var fe *FitError
	if errors.As(err, &fe) {
		cp := *fe
		cp.Half = string(half)
		return &cp
	}
	return fmt.Errorf("%s fit: %w", half, err)
}
