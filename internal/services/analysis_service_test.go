package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvscan/internal/config"
	"cvscan/internal/curvefit"
	"cvscan/internal/dataprocessing"
	"cvscan/internal/infrastructure"
	ws "cvscan/internal/websocket"
	"cvscan/pkg/contracts/domain"
)

func analysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{DefaultDegree: 9, MaxDegree: 25, MaxParallel: 2}
}

func newAnalysisService(t *testing.T, source TableSource, hub Broadcaster) *AnalysisService {
	t.Helper()
	providers := infrastructure.NoopProviders(testLogger())
	metrics, err := infrastructure.CreateServiceMetrics(providers.Meter)
	require.NoError(t, err)
	return NewAnalysisService(source, analysisConfig(), t.TempDir(), providers.Tracer, metrics, hub, testLogger())
}

func TestAnalysisService_Curve(t *testing.T) {
	src := newFakeSource()
	src.add(5, triangleRecording(3, 40))
	svc := newAnalysisService(t, src, nil)

	tests := []struct {
		view     domain.CurveView
		wantView domain.CurveView
		wantLen  int
	}{
		{"", domain.ViewFull, 40},
		{domain.ViewFull, domain.ViewFull, 40},
		{domain.ViewAnode, domain.ViewAnode, 21},
		{domain.ViewCathode, domain.ViewCathode, 19},
	}
	for _, tt := range tests {
		t.Run(string(tt.wantView), func(t *testing.T) {
			series, err := svc.Curve(context.Background(), 5, tt.view)
			require.NoError(t, err)
			assert.Equal(t, tt.wantView, series.View)
			assert.Equal(t, 5.0, series.ScanRate)
			assert.Equal(t, "Scan Rate 5", series.Label)
			assert.Len(t, series.X, tt.wantLen)
			assert.Len(t, series.Y, tt.wantLen)
		})
	}
}

func TestAnalysisService_CurveAnodeEndsAtPeak(t *testing.T) {
	src := newFakeSource()
	src.add(5, triangleRecording(3, 40))
	svc := newAnalysisService(t, src, nil)

	anode, err := svc.Curve(context.Background(), 5, domain.ViewAnode)
	require.NoError(t, err)
	assert.Equal(t, 1.0, anode.X[len(anode.X)-1])
	assert.Equal(t, 0.0, anode.X[0])
}

func TestAnalysisService_CurveErrors(t *testing.T) {
	src := newFakeSource()
	src.add(5, triangleRecording(1, 40))
	src.add(10, nil)
	hub := &recordingBroadcaster{}
	svc := newAnalysisService(t, src, hub)

	_, err := svc.Curve(context.Background(), 5, "side")
	assert.ErrorIs(t, err, ErrInvalidView)

	_, err = svc.Curve(context.Background(), 10, domain.ViewFull)
	assert.ErrorIs(t, err, ErrDatasetMissing)

	_, err = svc.Curve(context.Background(), 5, domain.ViewFull)
	var integrity *dataprocessing.DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "scan rate 5", integrity.Source)
	assert.Equal(t, 2, integrity.Crossings)

	assert.Equal(t, []string{ws.EventAnalysisFailed}, hub.types())
}

func TestAnalysisService_Curves(t *testing.T) {
	src := newFakeSource()
	src.add(20, triangleRecording(3, 40))
	src.add(5, triangleRecording(3, 60))
	src.add(10, triangleRecording(4, 50))
	svc := newAnalysisService(t, src, nil)

	series, err := svc.Curves(context.Background(), domain.ViewCathode)
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.Equal(t, []float64{20, 5, 10}, []float64{series[0].ScanRate, series[1].ScanRate, series[2].ScanRate})
	assert.Len(t, series[0].X, 19)
	assert.Len(t, series[1].X, 29)
	assert.Len(t, series[2].X, 24)
	for _, s := range series {
		assert.Equal(t, domain.ViewCathode, s.View)
	}
}

func TestAnalysisService_CurvesErrors(t *testing.T) {
	t.Run("no scan rates", func(t *testing.T) {
		svc := newAnalysisService(t, newFakeSource(), nil)
		_, err := svc.Curves(context.Background(), domain.ViewFull)
		assert.ErrorIs(t, err, ErrNoScanRates)
	})

	t.Run("incomplete", func(t *testing.T) {
		src := newFakeSource()
		src.add(5, triangleRecording(3, 40))
		src.add(10, nil)
		svc := newAnalysisService(t, src, nil)

		_, err := svc.Curves(context.Background(), domain.ViewFull)
		var incomplete *SessionIncompleteError
		require.ErrorAs(t, err, &incomplete)
		assert.Equal(t, []float64{10}, incomplete.Missing)
	})

	t.Run("one bad recording", func(t *testing.T) {
		src := newFakeSource()
		src.add(5, triangleRecording(3, 40))
		src.add(10, triangleRecording(1, 40))
		svc := newAnalysisService(t, src, nil)

		_, err := svc.Curves(context.Background(), domain.ViewFull)
		assert.ErrorIs(t, err, dataprocessing.ErrDataIntegrity)
	})

	t.Run("invalid view", func(t *testing.T) {
		svc := newAnalysisService(t, newFakeSource(), nil)
		_, err := svc.Curves(context.Background(), "diagonal")
		assert.ErrorIs(t, err, ErrInvalidView)
	})
}

func TestAnalysisService_Fit(t *testing.T) {
	src := newFakeSource()
	src.add(5, triangleRecording(3, 40))
	svc := newAnalysisService(t, src, nil)

	fits, err := svc.Fit(context.Background(), 5, DefaultDegree)
	require.NoError(t, err)

	assert.Equal(t, 5.0, fits.ScanRate)
	for _, half := range []domain.Half{domain.HalfAnode, domain.HalfCathode} {
		fit := fits.Get(half)
		assert.Equal(t, curvefit.DefaultDegree, fit.Degree)
		assert.Len(t, fit.Coeffs, curvefit.DefaultDegree+1)
		assert.Len(t, fit.FittedY, len(fit.X))
		assert.InDelta(t, 1.0, fit.RSquared, 1e-9)
	}
	assert.Len(t, fits.Anode.X, 21)
	assert.Len(t, fits.Cathode.X, 19)
}

func TestAnalysisService_FitDegree(t *testing.T) {
	src := newFakeSource()
	src.add(5, triangleRecording(3, 40))
	hub := &recordingBroadcaster{}
	svc := newAnalysisService(t, src, hub)

	fits, err := svc.Fit(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Len(t, fits.Anode.Coeffs, 3)
	assert.InDelta(t, 1.0, fits.Anode.Coeffs[0], 1e-9, "anode current is potential squared")

	_, err = svc.Fit(context.Background(), 5, 26)
	assert.ErrorIs(t, err, ErrInvalidDegree)

	_, err = svc.Fit(context.Background(), 5, -3)
	assert.ErrorIs(t, err, ErrInvalidDegree)

	// The anode has 21 samples; degree 21 is under-determined.
	_, err = svc.Fit(context.Background(), 5, 21)
	var fitErr *curvefit.FitError
	require.ErrorAs(t, err, &fitErr)
	assert.Equal(t, "anode", fitErr.Half)
	assert.Equal(t, []string{ws.EventAnalysisFailed}, hub.types())
}

func TestAnalysisService_Summary(t *testing.T) {
	src := newFakeSource()
	src.add(2.5, triangleRecording(3, 40))
	svc := newAnalysisService(t, src, nil)

	summary, err := svc.Summary(context.Background(), 2.5)
	require.NoError(t, err)

	assert.Equal(t, domain.CycleSummary{
		ScanRate:      2.5,
		TotalRows:     121,
		Crossings:     4,
		CycleStart:    40,
		CycleRows:     40,
		AnodeRows:     21,
		CathodeRows:   19,
		PeakPotential: 1,
		PeakCurrent:   1,
	}, summary)
}

func TestAnalysisService_Report(t *testing.T) {
	src := newFakeSource()
	src.add(5, triangleRecording(3, 40))
	hub := &recordingBroadcaster{}
	svc := newAnalysisService(t, src, hub)

	t.Run("csv", func(t *testing.T) {
		report, err := svc.Report(context.Background(), 5, "", 3)
		require.NoError(t, err)
		assert.Equal(t, "csv", report.Format)
		assert.Len(t, report.Files, 6)
		for _, f := range report.Files {
			assert.FileExists(t, f)
		}
		assert.Equal(t, "scan_5_full.csv", filepath.Base(report.Files[0]))
	})

	t.Run("xlsx", func(t *testing.T) {
		report, err := svc.Report(context.Background(), 5, "xlsx", DefaultDegree)
		require.NoError(t, err)
		require.Len(t, report.Files, 1)
		info, err := os.Stat(report.Files[0])
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.Report(context.Background(), 5, "pdf", DefaultDegree)
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})

	assert.Equal(t, []string{ws.EventReportExported, ws.EventReportExported}, hub.types())
}
