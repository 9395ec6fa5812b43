package core

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/automoto/podracer-mp/server/core"

type authorityMetrics struct {
	movesAccepted metric.Int64Counter
	movesRejected metric.Int64Counter
	movesDropped  metric.Int64Counter
	broadcasts    metric.Int64Counter
	players       metric.Int64UpDownCounter
}

func newAuthorityMetrics() authorityMetrics {
	m := otel.Meter(instrumentationName)
	var am authorityMetrics
	var err error

	if am.movesAccepted, err = m.Int64Counter(
		"authority.moves.accepted",
		metric.WithDescription("Moves validated and simulated"),
	); err != nil {
		log.Warn().Err(err).Msg("creating accepted counter")
	}
	if am.movesRejected, err = m.Int64Counter(
		"authority.moves.rejected",
		metric.WithDescription("Moves that failed validation, by reason"),
	); err != nil {
		log.Warn().Err(err).Msg("creating rejected counter")
	}
	if am.movesDropped, err = m.Int64Counter(
		"authority.moves.dropped",
		metric.WithDescription("Moves dropped because a pod inbox or the command queue was full"),
	); err != nil {
		log.Warn().Err(err).Msg("creating dropped counter")
	}
	if am.broadcasts, err = m.Int64Counter(
		"authority.state.broadcasts",
		metric.WithDescription("Replicated pod states published with a new counter"),
	); err != nil {
		log.Warn().Err(err).Msg("creating broadcasts counter")
	}
	if am.players, err = m.Int64UpDownCounter(
		"server.players",
		metric.WithDescription("Connected players"),
	); err != nil {
		log.Warn().Err(err).Msg("creating players counter")
	}
	return am
}

func (m authorityMetrics) accepted(n int) {
	if m.movesAccepted != nil && n > 0 {
		m.movesAccepted.Add(context.Background(), int64(n))
	}
}

func (m authorityMetrics) rejected(reason RejectReason) {
	if m.movesRejected != nil {
		m.movesRejected.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("reason", reason.String())))
	}
}

func (m authorityMetrics) dropped(n int) {
	if m.movesDropped != nil && n > 0 {
		m.movesDropped.Add(context.Background(), int64(n))
	}
}

func (m authorityMetrics) broadcast() {
	if m.broadcasts != nil {
		m.broadcasts.Add(context.Background(), 1)
	}
}

func (m authorityMetrics) playerDelta(n int) {
	if m.players != nil && n != 0 {
		m.players.Add(context.Background(), int64(n))
	}
}
