package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gargis23/QuizApp-sub000/internal/repository/mocks"
	"github.com/gargis23/QuizApp-sub000/internal/tasks"
	"github.com/gargis23/QuizApp-sub000/internal/worker"
)

func TestRoomRetentionHandler_DeletesWithPayloadWindow(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	handler := worker.NewRoomRetentionHandler(mockRoomRepo)

	maxAge := 6 * time.Hour
	mockRoomRepo.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().Add(-maxAge)
		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return(int64(3), nil).Once()

	payload, err := tasks.NewRoomRetentionPayload(maxAge)
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeRoomRetention, payload))
	require.NoError(t, err)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomRetentionHandler_EmptyPayloadUsesDefaultWindow(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	handler := worker.NewRoomRetentionHandler(mockRoomRepo)

	mockRoomRepo.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().Add(-worker.DefaultRoomMaxAge)
		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return(int64(0), nil).Once()

	err := handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeRoomRetention, nil))
	require.NoError(t, err)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomRetentionHandler_PropagatesStoreError(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	handler := worker.NewRoomRetentionHandler(mockRoomRepo)

	storeErr := errors.New("lock wait timeout")
	mockRoomRepo.On("DeleteOlderThan", mock.Anything, mock.Anything).
		Return(int64(0), storeErr).Once()

	err := handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeRoomRetention, nil))
	require.Error(t, err, "asynq retries on error")
	assert.True(t, errors.Is(err, storeErr))
}

func TestRoomRetentionHandler_RejectsGarbagePayload(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	handler := worker.NewRoomRetentionHandler(mockRoomRepo)

	err := handler.ProcessTask(context.Background(),
		asynq.NewTask(tasks.TypeRoomRetention, []byte("{not-json")))
	require.Error(t, err)
	mockRoomRepo.AssertNotCalled(t, "DeleteOlderThan", mock.Anything, mock.Anything)
}
