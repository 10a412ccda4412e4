package matcher

import (
	"time"

	"github.com/google/uuid"

	"github.com/lintang-b-s/roadmatch/pkg/spatial"
)

// Sample is one GPS measurement fed to the matcher, grounded on
// MatcherSample.java's field layout. NewSample and NewSampleWithAzimuth
// stamp ID with a generated uuid, the id-stamping idiom of another pack
// repo (banshee-data-velocity.report's scene_store.go). Azimuth,
// Velocity and Accuracy are optional sensor readings; HasAzimuth gates
// whether emission probability factors azimuth in. GPSOutage marks a
// sample taken right after the device regained signal, widening the
// emission sigma for that step.
type Sample struct {
	ID         string
	TraceID    string
	Point      spatial.Point
	Azimuth    float64
	HasAzimuth bool
	GPSOutage  bool
	Velocity   *float64
	Accuracy   *float64
	SampleTime time.Time
}

func (s Sample) Time() time.Time { return s.SampleTime }

func NewSample(p spatial.Point, t time.Time) Sample {
	return Sample{ID: uuid.NewString(), Point: p, SampleTime: t}
}

func NewSampleWithAzimuth(p spatial.Point, azimuth float64, t time.Time) Sample {
	return Sample{
		ID: uuid.NewString(), Point: p,
		Azimuth: spatial.NormalizeAzimuth(azimuth), HasAzimuth: true,
		SampleTime: t,
	}
}

// WithTraceID sets the trace this sample belongs to, threading the HTTP
// path parameter (or any other trace identifier) onto the record itself so
// it survives interchange.
func (s Sample) WithTraceID(traceID string) Sample {
	s.TraceID = traceID
	return s
}

// WithGPSOutage marks the sample as taken right after a GPS outage, the
// spec'd signal for widening the emission sigma for this step (see
// HMMFilter.effectiveSigma).
func (s Sample) WithGPSOutage(outage bool) Sample {
	s.GPSOutage = outage
	return s
}

// WithVelocity attaches the device-reported speed in meters per second.
func (s Sample) WithVelocity(v float64) Sample {
	s.Velocity = &v
	return s
}

// WithAccuracy attaches the device-reported standard deviation of this
// fix, in meters.
func (s Sample) WithAccuracy(a float64) Sample {
	s.Accuracy = &a
	return s
}
