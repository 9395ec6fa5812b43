package network

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/automoto/podracer-mp/network"

type predictorMetrics struct {
	corrections metric.Int64Counter
	replayed    metric.Int64Counter
	overflows   metric.Int64Counter
}

// newPredictorMetrics uses the global OTel meter (no-op unless an SDK is installed).
func newPredictorMetrics() predictorMetrics {
	m := otel.Meter(instrumentationName)
	var pm predictorMetrics
	var err error

	if pm.corrections, err = m.Int64Counter(
		"predictor.corrections",
		metric.WithDescription("Authoritative snapshots that forced a snap and replay"),
	); err != nil {
		log.Warn().Err(err).Msg("creating corrections counter")
	}
	if pm.replayed, err = m.Int64Counter(
		"predictor.moves.replayed",
		metric.WithDescription("Pending moves re-simulated after a correction"),
	); err != nil {
		log.Warn().Err(err).Msg("creating replayed counter")
	}
	if pm.overflows, err = m.Int64Counter(
		"predictor.queue.overflows",
		metric.WithDescription("Pending moves dropped because the queue limit was reached"),
	); err != nil {
		log.Warn().Err(err).Msg("creating overflow counter")
	}
	return pm
}

func addCount(c metric.Int64Counter, n int64) {
	if c != nil && n > 0 {
		c.Add(context.Background(), n)
	}
}
