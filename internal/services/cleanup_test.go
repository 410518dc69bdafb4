package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupService_Schedule(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes to kafka", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		remover := NewMockObjectRemover(ctrl)
		writer := NewMockKafkaWriter(ctrl)
		svc := NewCleanupService(remover, writer)

		writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msgs ...kafka.Message) error {
			require.Len(t, msgs, 1)
			var job models.StorageCleanup
			require.NoError(t, json.Unmarshal(msgs[0].Value, &job))
			assert.Equal(t, []string{"https://cdn/a.jpg"}, job.URLs)
			assert.Equal(t, "track updated", job.Reason)
			return nil
		})

		svc.Schedule(ctx, "track updated", "https://cdn/a.jpg", "")
		svc.Wait()
	})

	t.Run("falls back to direct removal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		remover := NewMockObjectRemover(ctrl)
		writer := NewMockKafkaWriter(ctrl)
		svc := NewCleanupService(remover, writer)

		writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
		remover.EXPECT().Remove(gomock.Any(), "https://cdn/a.jpg", "https://cdn/b.mp3").Return(nil)

		svc.Schedule(ctx, "track deleted", "https://cdn/a.jpg", "https://cdn/b.mp3")
		svc.Wait()
	})

	t.Run("removes directly without kafka", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		remover := NewMockObjectRemover(ctrl)
		svc := NewCleanupService(remover, nil)

		remover.EXPECT().Remove(gomock.Any(), "https://cdn/a.jpg").Return(errors.New("s3 down"))

		svc.Schedule(ctx, "track deleted", "https://cdn/a.jpg")
		svc.Wait()
	})

	t.Run("nothing to remove", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := NewCleanupService(NewMockObjectRemover(ctrl), NewMockKafkaWriter(ctrl))

		svc.Schedule(ctx, "track deleted", "", "")
		svc.Wait()
	})

	t.Run("survives a cancelled request context", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		remover := NewMockObjectRemover(ctrl)
		svc := NewCleanupService(remover, nil)

		reqCtx, cancel := context.WithCancel(ctx)
		cancel()

		remover.EXPECT().Remove(gomock.Any(), "https://cdn/a.jpg").DoAndReturn(func(ctx context.Context, _ ...string) error {
			assert.NoError(t, ctx.Err())
			return nil
		})

		svc.Schedule(reqCtx, "track deleted", "https://cdn/a.jpg")
		svc.Wait()
	})
}

func TestSuperseded(t *testing.T) {
	tests := []struct {
		name   string
		before []string
		after  []string
		want   []string
	}{
		{"unchanged", []string{"a", "b"}, []string{"a", "b"}, nil},
		{"replaced", []string{"a", "b"}, []string{"a", "c"}, []string{"b"}},
		{"deleted", []string{"a", "b"}, nil, []string{"a", "b"}},
		{"empty ignored", []string{"", "a"}, []string{"c"}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Superseded(tt.before, tt.after))
		})
	}
}

func cleanupMessage(t *testing.T, offset int64, urls ...string) kafka.Message {
	t.Helper()
	data, err := json.Marshal(models.StorageCleanup{URLs: urls, Reason: "test"})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: data}
}

func TestCleanupWorker_Run(t *testing.T) {
	t.Run("removes then commits", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		reader := NewMockKafkaReader(ctrl)
		remover := NewMockObjectRemover(ctrl)
		w := NewCleanupWorker(reader, remover)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		msg := cleanupMessage(t, 1, "https://cdn/a.jpg")

		gomock.InOrder(
			reader.EXPECT().FetchMessage(gomock.Any()).Return(msg, nil),
			remover.EXPECT().Remove(gomock.Any(), "https://cdn/a.jpg").Return(nil),
			reader.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil),
			reader.EXPECT().FetchMessage(gomock.Any()).DoAndReturn(func(context.Context) (kafka.Message, error) {
				cancel()
				return kafka.Message{}, context.Canceled
			}),
		)

		assert.NoError(t, w.Run(ctx))
	})

	t.Run("retries failed removal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		reader := NewMockKafkaReader(ctrl)
		remover := NewMockObjectRemover(ctrl)
		w := NewCleanupWorker(reader, remover)
		w.backoff = time.Millisecond

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		msg := cleanupMessage(t, 2, "https://cdn/a.jpg")

		gomock.InOrder(
			reader.EXPECT().FetchMessage(gomock.Any()).Return(msg, nil),
			remover.EXPECT().Remove(gomock.Any(), "https://cdn/a.jpg").Return(errors.New("s3 down")).Times(2),
			remover.EXPECT().Remove(gomock.Any(), "https://cdn/a.jpg").Return(nil),
			reader.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil),
			reader.EXPECT().FetchMessage(gomock.Any()).DoAndReturn(func(context.Context) (kafka.Message, error) {
				cancel()
				return kafka.Message{}, context.Canceled
			}),
		)

		assert.NoError(t, w.Run(ctx))
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		reader := NewMockKafkaReader(ctrl)
		remover := NewMockObjectRemover(ctrl)
		w := NewCleanupWorker(reader, remover)
		w.backoff = time.Millisecond
		w.maxAttempts = 2

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		msg := cleanupMessage(t, 3, "https://cdn/a.jpg")

		gomock.InOrder(
			reader.EXPECT().FetchMessage(gomock.Any()).Return(msg, nil),
			remover.EXPECT().Remove(gomock.Any(), "https://cdn/a.jpg").Return(errors.New("s3 down")).Times(2),
			reader.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil),
			reader.EXPECT().FetchMessage(gomock.Any()).DoAndReturn(func(context.Context) (kafka.Message, error) {
				cancel()
				return kafka.Message{}, context.Canceled
			}),
		)

		assert.NoError(t, w.Run(ctx))
	})

	t.Run("malformed message is committed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		reader := NewMockKafkaReader(ctrl)
		w := NewCleanupWorker(reader, NewMockObjectRemover(ctrl))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		msg := kafka.Message{Offset: 4, Value: []byte("{")}

		gomock.InOrder(
			reader.EXPECT().FetchMessage(gomock.Any()).Return(msg, nil),
			reader.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil),
			reader.EXPECT().FetchMessage(gomock.Any()).DoAndReturn(func(context.Context) (kafka.Message, error) {
				cancel()
				return kafka.Message{}, context.Canceled
			}),
		)

		assert.NoError(t, w.Run(ctx))
	})

	t.Run("fetch error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		reader := NewMockKafkaReader(ctrl)
		w := NewCleanupWorker(reader, NewMockObjectRemover(ctrl))

		reader.EXPECT().FetchMessage(gomock.Any()).Return(kafka.Message{}, errors.New("broker down"))

		assert.Error(t, w.Run(context.Background()))
	})
}
