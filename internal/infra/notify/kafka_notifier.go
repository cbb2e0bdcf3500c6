package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"stockledger/internal/infra/metrics"
	"stockledger/internal/usecase"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notifier is closed")
)

const maxBatch = 100

// kafka.Writerのうち使う部分（テストで差し替える）
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	QueueSize    int
	WriteTimeout time.Duration
}

// イベントをキューに積んで別goroutineからKafkaへ書く。
// Publishは待たない。書き込み失敗はログとメトリクスだけ
type KafkaNotifier struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

func NewKafkaNotifier(cfg KafkaConfig, log *zap.Logger, m *metrics.Metrics) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaNotifier(w, cfg, log, m)
}

func newKafkaNotifier(w messageWriter, cfg KafkaConfig, log *zap.Logger, m *metrics.Metrics) *KafkaNotifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	n := &KafkaNotifier{
		writer:  w,
		log:     log,
		metrics: m,
		timeout: cfg.WriteTimeout,
		queue:   make(chan kafka.Message, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	n.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-notifier",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if m != nil {
				m.NotifyBreakerState.Set(float64(to))
			}
		},
	})

	go n.run()
	return n
}

var _ usecase.Notifier = (*KafkaNotifier)(nil)

func (n *KafkaNotifier) Publish(ctx context.Context, events ...usecase.Event) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrClosed
	}

	var errs []error
	for _, ev := range events {
		msg, err := toMessage(ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		select {
		case n.queue <- msg:
		default:
			if n.metrics != nil {
				n.metrics.NotificationsDropped.Inc()
			}
			errs = append(errs, fmt.Errorf("%w: %s", ErrQueueFull, ev.Event))
		}
	}
	return errors.Join(errs...)
}

// キューを閉じて残りを書き切る
func (n *KafkaNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return n.writer.Close()
}

func (n *KafkaNotifier) run() {
	defer close(n.done)

	batch := make([]kafka.Message, 0, maxBatch)
	for msg := range n.queue {
		batch = append(batch[:0], msg)
		//溜まっている分はまとめて書く
	drain:
		for len(batch) < maxBatch {
			select {
			case m, ok := <-n.queue:
				if !ok {
					break drain
				}
				batch = append(batch, m)
			default:
				break drain
			}
		}
		n.write(batch)
	}
}

func (n *KafkaNotifier) write(batch []kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.writer.WriteMessages(ctx, batch...)
	})
	if err != nil {
		n.log.Warn("kafka publish failed", zap.Error(err), zap.Int("messages", len(batch)))
		n.count("failed", len(batch))
		return
	}
	n.count("ok", len(batch))
}

func (n *KafkaNotifier) count(result string, c int) {
	if n.metrics == nil {
		return
	}
	n.metrics.NotificationsPublished.WithLabelValues(result).Add(float64(c))
}

// keyはentity（同じentityの順序を保つ）
func toMessage(ev usecase.Event) (kafka.Message, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event %s: %w", ev.Event, err)
	}
	return kafka.Message{
		Key:   []byte(ev.Entity),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Event)},
			{Key: "event-id", Value: []byte(uuid.NewString())},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: ev.Timestamp,
	}, nil
}
