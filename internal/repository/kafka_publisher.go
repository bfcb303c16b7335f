package repository

import (
	"context"

	"RiskLens/internal/domain/models"
	domrepo "RiskLens/internal/domain/repository"
	pkgkafka "RiskLens/pkg/kafka"
)

// KafkaBarPublisher implements Publisher for the bar ingest topic.
// Messages are keyed by symbol so per-symbol ordering survives partitioning.
type KafkaBarPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaBarPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func (p *KafkaBarPublisher) Publish(ctx context.Context, b *models.PriceBar) error {
	return p.producer.Publish(ctx, p.topic, []byte(b.Symbol), barMessage(b))
}

func (p *KafkaBarPublisher) PublishBatch(ctx context.Context, bars []*models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(bars))
	for i, b := range bars {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(b.Symbol),
			Value: barMessage(b),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaBarPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func barMessage(b *models.PriceBar) map[string]interface{} {
	return map[string]interface{}{
		"symbol": b.Symbol,
		"t":      b.Date.Unix(),
		"o":      b.Open,
		"h":      b.High,
		"l":      b.Low,
		"c":      b.Close,
		"v":      b.Volume,
	}
}

// KafkaAlertPublisher implements AlertSink on the alerts topic.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) domrepo.AlertSink {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) PublishAlerts(ctx context.Context, alerts []models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(alerts))
	for i, a := range alerts {
		msgs[i] = pkgkafka.Message{
			Key: []byte(a.Symbol),
			Value: map[string]interface{}{
				"symbol":          a.Symbol,
				"alert_type":      a.AlertType,
				"severity":        a.Severity,
				"risk_score":      a.RiskScore,
				"risk_level":      a.RiskLevel,
				"risk_rank":       a.RiskRank,
				"risk_drivers":    a.RiskDrivers,
				"prev_risk_score": a.PrevRiskScore,
				"risk_change":     a.RiskChange,
				"risk_change_pct": a.RiskChangePct,
				"created_at":      a.CreatedAt,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaAlertPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
