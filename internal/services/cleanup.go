package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/segmentio/kafka-go"
)

//go:generate mockgen -source=cleanup.go -destination=cleanup_mock.go -package=services

// Cleanup defaults.
const (
	DefaultCleanupTimeout     = 30 * time.Second
	DefaultCleanupMaxAttempts = 5
)

// ObjectRemover deletes stored objects by public URL.
type ObjectRemover interface {
	Remove(ctx context.Context, urls ...string) error // Deletes the objects behind urls
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// KafkaReader defines a Kafka consumer group reader abstraction.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)         // Fetches the next message without committing it
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error // Commits consumed offsets
	Close() error                                                    // Closes the Kafka reader
}

// CleanupService removes objects superseded by committed writes. With a
// Kafka writer the request is queued for CleanupWorker; without one, or when
// publishing fails, the objects are deleted in the background on a best
// effort basis.
type CleanupService struct {
	remover     ObjectRemover
	kafkaWriter KafkaWriter
	timeout     time.Duration
	wg          sync.WaitGroup
}

// NewCleanupService creates a new CleanupService. kafkaWriter may be nil.
func NewCleanupService(remover ObjectRemover, kafkaWriter KafkaWriter) *CleanupService {
	return &CleanupService{
		remover:     remover,
		kafkaWriter: kafkaWriter,
		timeout:     DefaultCleanupTimeout,
	}
}

// Schedule requests deletion of urls. It never blocks on the deletion
// itself and ignores empty URLs.
func (s *CleanupService) Schedule(ctx context.Context, reason string, urls ...string) {
	urls = nonEmpty(urls)
	if len(urls) == 0 {
		return
	}

	job := models.StorageCleanup{
		URLs:      urls,
		Timestamp: time.Now().Unix(),
		Reason:    reason,
	}

	if s.kafkaWriter != nil {
		if err := s.publish(ctx, job); err == nil {
			return
		}
	}
	s.removeAsync(job)
}

func (s *CleanupService) publish(ctx context.Context, job models.StorageCleanup) error {
	data, err := json.Marshal(job)
	if err != nil {
		logger.Log.Errorw("Failed to marshal storage cleanup", "urls", job.URLs, "error", err)
		return err
	}

	msg := kafka.Message{
		Key:   []byte(uuid.NewString()),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		logger.Log.Errorw("Failed to publish storage cleanup to Kafka", "urls", job.URLs, "error", err)
		return err
	}
	logger.Log.Infow("Storage cleanup published to Kafka", "urls", job.URLs, "reason", job.Reason)
	return nil
}

// removeAsync deletes the objects on a detached context so that a finished
// request does not cancel the deletion.
func (s *CleanupService) removeAsync(job models.StorageCleanup) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.remover.Remove(ctx, job.URLs...); err != nil {
			logger.Log.Errorw("Failed to delete superseded objects", "urls", job.URLs, "error", err)
			return
		}
		logger.Log.Infow("Superseded objects deleted", "urls", job.URLs, "reason", job.Reason)
	}()
}

// Wait blocks until background deletions finish.
func (s *CleanupService) Wait() {
	s.wg.Wait()
}

// Superseded returns the URLs of before that after no longer references.
func Superseded(before, after []string) []string {
	kept := make(map[string]bool, len(after))
	for _, u := range after {
		kept[u] = true
	}
	var out []string
	for _, u := range before {
		if u != "" && !kept[u] {
			out = append(out, u)
		}
	}
	return out
}

func nonEmpty(urls []string) []string {
	out := urls[:0:0]
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// CleanupWorker consumes the cleanup queue and deletes the objects. Offsets
// are committed after the deletion succeeds or the attempts run out.
type CleanupWorker struct {
	reader      KafkaReader
	remover     ObjectRemover
	maxAttempts int
	backoff     time.Duration
}

// NewCleanupWorker creates a new CleanupWorker.
func NewCleanupWorker(reader KafkaReader, remover ObjectRemover) *CleanupWorker {
	return &CleanupWorker{
		reader:      reader,
		remover:     remover,
		maxAttempts: DefaultCleanupMaxAttempts,
		backoff:     time.Second,
	}
}

// Run processes messages until ctx is cancelled.
func (w *CleanupWorker) Run(ctx context.Context) error {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Log.Errorw("Failed to fetch storage cleanup", "error", err)
			return err
		}

		w.handle(ctx, msg)

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Log.Errorw("Failed to commit storage cleanup", "offset", msg.Offset, "error", err)
		}
	}
}

func (w *CleanupWorker) handle(ctx context.Context, msg kafka.Message) {
	var job models.StorageCleanup
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		logger.Log.Errorw("Dropping malformed storage cleanup", "offset", msg.Offset, "error", err)
		return
	}

	delay := w.backoff
	for attempt := 1; ; attempt++ {
		err := w.remover.Remove(ctx, job.URLs...)
		if err == nil {
			logger.Log.Infow("Superseded objects deleted", "urls", job.URLs, "reason", job.Reason)
			return
		}
		if attempt >= w.maxAttempts {
			logger.Log.Errorw("Giving up on storage cleanup", "urls", job.URLs, "attempts", attempt, "error", err)
			return
		}
		logger.Log.Warnw("Storage cleanup failed, retrying", "urls", job.URLs, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}
