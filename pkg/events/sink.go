package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IBM/sarama"

	"github.com/scoutsec/cmmc-scout/pkg/config"
)

// Sink emits assessment events. Emission is best-effort: the return value
// reports whether the event reached the sink, and callers must never treat
// a false return as fatal.
type Sink interface {
	Emit(topic string, event any, key string) bool
	Close() error
}

// Producer emits events to a Kafka-compatible broker. When the broker is
// unreachable and fallback is enabled, events are appended as JSONL records
// to a local file instead so demo and development flows keep working.
type Producer struct {
	producer sarama.SyncProducer
	logger   *slog.Logger

	mu           sync.Mutex
	fallbackMode bool
	fallbackPath string
}

// NewProducer connects to the configured brokers. Broker connection failure
// is not an error when fallback is enabled; the producer starts in fallback
// mode instead.
func NewProducer(cfg config.EventsConfig) (*Producer, error) {
	p := &Producer{
		logger:       slog.Default().With("component", "event-producer"),
		fallbackPath: cfg.FallbackPath,
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Compression = sarama.CompressionGZIP

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		if !cfg.EnableFallback {
			return nil, fmt.Errorf("failed to create event producer: %w", err)
		}
		p.logger.Warn("broker unavailable, using file fallback",
			"brokers", cfg.Brokers,
			"fallback_path", cfg.FallbackPath,
			"error", err,
		)
		p.fallbackMode = true
		if err := os.MkdirAll(filepath.Dir(cfg.FallbackPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create fallback directory: %w", err)
		}
		return p, nil
	}

	p.producer = producer
	p.logger.Info("event producer connected", "brokers", cfg.Brokers)
	return p, nil
}

// Emit sends one event to the topic, falling back to the JSONL file when
// the broker send fails.
func (p *Producer) Emit(topic string, event any, key string) bool {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event", "topic", topic, "error", err)
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fallbackMode {
		return p.emitToFile(topic, data, key)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Warn("broker send failed, switching to file fallback",
			"topic", topic, "error", err)
		p.fallbackMode = true
		return p.emitToFile(topic, data, key)
	}

	p.logger.Debug("event emitted",
		"topic", topic, "key", key, "partition", partition, "offset", offset)
	return true
}

func (p *Producer) emitToFile(topic string, value []byte, key string) bool {
	entry := map[string]any{
		"topic": topic,
		"key":   key,
		"value": json.RawMessage(value),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		p.logger.Error("failed to marshal fallback entry", "error", err)
		return false
	}

	f, err := os.OpenFile(p.fallbackPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		p.logger.Error("failed to open fallback log", "path", p.fallbackPath, "error", err)
		return false
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		p.logger.Error("failed to write fallback log", "path", p.fallbackPath, "error", err)
		return false
	}
	return true
}

// FallbackMode reports whether the producer is writing to the fallback file.
func (p *Producer) FallbackMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fallbackMode
}

// Close shuts down the broker connection, if any.
func (p *Producer) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopSink discards all events. Used in tests and in the CLI when event
// emission is disabled.
type NopSink struct{}

func (NopSink) Emit(string, any, string) bool { return true }
func (NopSink) Close() error                  { return nil }
