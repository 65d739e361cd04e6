package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"txfeed/internal/domain"
	"txfeed/internal/infrastructure/telemetry"
	"txfeed/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTopicPrefix = "txfeed-transactions"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes classified pages, one message per transaction followed
// by a page marker carrying the next cursor.
type Producer struct {
	writer messageWriter
	prefix string
}

type ProducerConfig struct {
	Brokers     []string
	TopicPrefix string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 500 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return newProducer(writer, cfg.TopicPrefix), nil
}

func newProducer(writer messageWriter, prefix string) *Producer {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultTopicPrefix
	}
	return &Producer{writer: writer, prefix: prefix}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishPage writes the page to the chain's topic keyed by wallet address,
// so one wallet's history stays ordered within a partition.
func (p *Producer) PublishPage(ctx context.Context, chainID uint64, address string, page domain.Page) error {
	if chainID == 0 {
		return errors.New("chain id is required")
	}
	wallet := strings.ToLower(address)
	ctx, traceID := telemetry.NewRootContext(ctx)
	ctx, span := otel.Tracer("txfeed/kafka").Start(ctx, "feed.publish_page", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chain.id", int64(chainID)),
		attribute.String("wallet.address", wallet),
		attribute.Int("transaction.count", len(page.Transactions)),
	)

	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectHeaders(ctx, &headers)
	topic := p.topicForChain(chainID)

	messages := make([]kafka.Message, 0, len(page.Transactions)+1)
	for i := range page.Transactions {
		payload, err := streaming.Encode(streaming.Message{
			Type:        streaming.MessageTypeTransaction,
			ChainID:     chainID,
			TraceID:     traceID,
			Wallet:      wallet,
			Position:    i,
			Transaction: &page.Transactions[i],
		})
		if err != nil {
			recordError(span, err)
			return fmt.Errorf("encode transaction %s: %w", page.Transactions[i].ID, err)
		}
		messages = append(messages, kafka.Message{Topic: topic, Key: []byte(wallet), Value: payload, Headers: headers})
	}
	marker, err := streaming.Encode(streaming.Message{
		Type:    streaming.MessageTypePage,
		ChainID: chainID,
		TraceID: traceID,
		Wallet:  wallet,
		Cursor:  page.Cursor,
		Count:   len(page.Transactions),
	})
	if err != nil {
		recordError(span, err)
		return err
	}
	messages = append(messages, kafka.Message{Topic: topic, Key: []byte(wallet), Value: marker, Headers: headers})

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (p *Producer) topicForChain(chainID uint64) string {
	return fmt.Sprintf("%s-%d", p.prefix, chainID)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
