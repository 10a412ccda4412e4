// Package kvstore provides an H3-bucketed snapshot cache for matched
// trajectory state, so a restarted matcher process (or a downstream
// consumer) can recover recent candidates near a location without
// replaying the whole trace. Grounded on pkg/kv/kv_db.go and
// pkg/kv/encoder.go.
package kvstore

import "time"

// Record is one persisted matched-state snapshot: a trace's candidate at a
// point in time, keyed for retrieval by the H3 cell of its coordinate.
type Record struct {
	TraceID  string
	Lat      float64
	Lon      float64
	EdgeID   int64
	Fraction float64
	FiltProb float64
	SeqProb  float64
	Time     time.Time
}
