package curvefit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvscan/pkg/contracts/domain"
)

func rampTable(n int, start, step float64) domain.Table {
	table := make(domain.Table, n)
	for i := range table {
		p := start + float64(i)*step
		table[i] = domain.Sample{Potential: p, Current: p*p - 0.5*p}
	}
	return table
}

func TestNewSolver(t *testing.T) {
	s, err := NewSolver(DefaultDegree)
	require.NoError(t, err)
	assert.Equal(t, 9, s.Degree())

	s, err = NewSolver(-2)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrFit)
}

func TestSolver_Fit(t *testing.T) {
	s, err := NewSolver(2)
	require.NoError(t, err)

	table := rampTable(8, 0, 0.1)
	fit, err := s.Fit(table)
	require.NoError(t, err)

	assert.Equal(t, 2, fit.Degree)
	assert.Equal(t, table.Potentials(), fit.X)
	assert.Equal(t, table.Currents(), fit.Y)
	assert.Len(t, fit.Coeffs, 3)
	assert.InDeltaSlice(t, []float64{1, -0.5, 0}, fit.Coeffs, 1e-9)
	assert.InDeltaSlice(t, fit.Y, fit.FittedY, 1e-12)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-9)
}

func TestSolver_ProcessHalves(t *testing.T) {
	s, err := NewSolver(3)
	require.NoError(t, err)

	t.Run("both halves fit", func(t *testing.T) {
		anode := rampTable(10, 0, 0.05)
		cathode := rampTable(6, 0.45, -0.05)

		fits, err := s.ProcessHalves(anode, cathode)
		require.NoError(t, err)
		assert.Len(t, fits.Anode.FittedY, 10)
		assert.Len(t, fits.Cathode.FittedY, 6)
		assert.Equal(t, fits.Cathode, fits.Get(domain.HalfCathode))
		assert.Equal(t, fits.Anode, fits.Get(domain.HalfAnode))
	})

	tests := []struct {
		name     string
		anode    domain.Table
		cathode  domain.Table
		wantHalf string
	}{
		{
			name:     "short anode",
			anode:    rampTable(3, 0, 0.1),
			cathode:  rampTable(10, 1, -0.1),
			wantHalf: "anode",
		},
		{
			name:     "short cathode",
			anode:    rampTable(10, 0, 0.1),
			cathode:  rampTable(2, 1, -0.1),
			wantHalf: "cathode",
		},
		{
			name:     "empty cathode",
			anode:    rampTable(10, 0, 0.1),
			cathode:  domain.Table{},
			wantHalf: "cathode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fits, err := s.ProcessHalves(tt.anode, tt.cathode)
			require.Error(t, err)
			assert.Equal(t, domain.HalfFits{}, fits)

			var fitErr *FitError
			require.True(t, errors.As(err, &fitErr))
			assert.Equal(t, tt.wantHalf, fitErr.Half)
			assert.Contains(t, err.Error(), tt.wantHalf+" polynomial fit")
		})
	}
}
