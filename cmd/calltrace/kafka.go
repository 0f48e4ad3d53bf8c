package main

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the part of kafka.Writer the service uses.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
