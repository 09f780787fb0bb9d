// Package costhistory mirrors per-tick cost-accrual points to an optional InfluxDB
// bucket: one measurement point per VM per reconciler tick. The accrual formula already
// derives everything from VM records, so this history is an operator-facing time series,
// not a second source of truth.
package costhistory

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/payperplay/hosting/pkg/logger"
)

// Point is one VM's accrual snapshot at a reconciler tick.
type Point struct {
	InstanceID     string
	CandidateEmail string
	Region         string
	InstanceType   string
	Status         string
	AccruedCents   int64
	Timestamp      time.Time
}

// Recorder mirrors accrual Points to InfluxDB. A nil *Recorder (no URL configured) is a
// valid no-op receiver, so callers never need to branch on whether InfluxDB is wired.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	bucket   string
	org      string
}

// Config is the subset of pkg/config needed to dial InfluxDB.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// New connects to InfluxDB and returns a Recorder, or (nil, nil) when cfg.URL is empty —
// the Postgres-backed `vms` collection remains the sole source of truth either way; this
// is a falls-back-to-database-only mirror.
func New(ctx context.Context, cfg Config) (*Recorder, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	health, err := client.Health(healthCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to influxdb: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("influxdb health check failed: %s", health.Message)
	}

	logger.Info("influxdb cost-history mirror established", map[string]interface{}{
		"url": cfg.URL, "org": cfg.Org, "bucket": cfg.Bucket,
	})

	return &Recorder{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		org:      cfg.Org,
	}, nil
}

// Record writes one accrual point per VM for this tick. Writes are async and
// best-effort: a dropped point never blocks or fails the reconciler tick, matching
// §4.4's "a tick is allowed to partially fail" posture extended to this optional
// mirror.
func (r *Recorder) Record(points []Point) {
	if r == nil || len(points) == 0 {
		return
	}
	for _, p := range points {
		pt := influxdb2.NewPoint(
			"vm_accrual",
			map[string]string{
				"instance_id":   p.InstanceID,
				"candidate":     p.CandidateEmail,
				"region":        p.Region,
				"instance_type": p.InstanceType,
				"status":        p.Status,
			},
			map[string]interface{}{
				"accrued_cents": p.AccruedCents,
			},
			p.Timestamp,
		)
		r.writeAPI.WritePoint(pt)
	}
}

// Flush blocks until pending writes are sent. Close shuts the client down; both are
// safe to call on a nil Recorder.
func (r *Recorder) Flush() {
	if r == nil {
		return
	}
	r.writeAPI.Flush()
}

func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.writeAPI.Flush()
	r.client.Close()
}
