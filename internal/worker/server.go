// Package worker runs the asynq server that executes background tasks.
package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/gargis23/QuizApp-sub000/internal/repository"
	"github.com/gargis23/QuizApp-sub000/internal/tasks"
)

// Server wraps the asynq worker server lifecycle.
type Server struct {
	server   *asynq.Server
	log      *logrus.Entry
	roomRepo repository.RoomRepository
}

// NewServer creates a worker Server.
func NewServer(redisOpt asynq.RedisClientOpt, roomRepo repository.RoomRepository, logger *logrus.Logger) *Server {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &Server{
		server:   server,
		log:      logEntry,
		roomRepo: roomRepo,
	}
}

// Start runs the worker server. Call it in its own goroutine.
func (s *Server) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRoomRetention, NewRoomRetentionHandler(s.roomRepo).ProcessTask)

	s.log.Info("Worker server starting...")
	if err := s.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			s.log.Fatalf("Could not run worker server: %v", err)
		}
		s.log.Info("Worker server stopped.")
	}
}

// Shutdown stops the worker server gracefully.
func (s *Server) Shutdown() {
	s.log.Info("Shutting down worker server...")
	s.server.Shutdown()
	s.log.Info("Worker server shut down complete.")
}
