// Package worker выполняет фоновые задачи вне HTTP запроса: ограниченная очередь,
// N обработчиков, таймаут на задачу и канал ошибок для владельца очереди.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/pkg/metrics"
)

var (
	// ErrQueueFull — буфер очереди заполнен.
	ErrQueueFull = errors.New("очередь задач переполнена")
	// ErrQueueClosed — очередь остановлена.
	ErrQueueClosed = errors.New("очередь задач остановлена")
)

// Func — тело задачи.
type Func func(ctx context.Context) error

// Task — именованная задача.
type Task struct {
	ID   string
	Name string
	Run  Func

	// ids запроса, поставившего задачу
	traceID       string
	correlationID string
}

// TaskError — ошибка выполнения задачи.
type TaskError struct {
	TaskID string
	Name   string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("задача %s (%s): %v", e.Name, e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Config — настройки очереди.
type Config struct {
	Concurrency int
	QueueSize   int
	TaskTimeout time.Duration
	// ErrorBuffer — размер канала ошибок. Ошибки сверх буфера логируются и отбрасываются.
	ErrorBuffer int
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 30 * time.Second
	}
	if c.ErrorBuffer <= 0 {
		c.ErrorBuffer = 64
	}
	return c
}

// Queue — очередь фоновых задач.
type Queue struct {
	cfg    Config
	tasks  chan Task
	errs   chan *TaskError
	log    zerolog.Logger
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue создаёт очередь. Обработчики запускаются методом Start.
func NewQueue(cfg Config, log zerolog.Logger) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		cfg:   cfg,
		tasks: make(chan Task, cfg.QueueSize),
		errs:  make(chan *TaskError, cfg.ErrorBuffer),
		log:   log.With().Str("component", "worker").Logger(),
	}
}

// Errors возвращает канал ошибок задач. Канал закрывается после Wait.
func (q *Queue) Errors() <-chan *TaskError {
	return q.errs
}

// Enqueue ставит задачу в очередь без блокировки.
// ids трассировки берутся из ctx; отмена ctx на задачу не влияет.
func (q *Queue) Enqueue(ctx context.Context, name string, fn Func) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return "", ErrQueueClosed
	}

	task := Task{
		ID:            uuid.New().String(),
		Name:          name,
		Run:           fn,
		traceID:       logger.TraceIDFromContext(ctx),
		correlationID: logger.CorrelationIDFromContext(ctx),
	}

	select {
	case q.tasks <- task:
		metrics.QueueDepth.Inc()
		return task.ID, nil
	default:
		q.log.Warn().Str("task", name).Msg("Очередь задач переполнена, задача отклонена")
		return "", ErrQueueFull
	}
}

// Start запускает обработчики. При отмене ctx очередь перестаёт принимать задачи
// и дорабатывает уже поставленные.
func (q *Queue) Start(ctx context.Context) {
	q.log.Info().
		Int("concurrency", q.cfg.Concurrency).
		Int("queue_size", q.cfg.QueueSize).
		Dur("task_timeout", q.cfg.TaskTimeout).
		Msg("Очередь задач запущена")

	for i := 0; i < q.cfg.Concurrency; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for task := range q.tasks {
				metrics.QueueDepth.Dec()
				q.run(task)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		q.close()
	}()
}

func (q *Queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.tasks)
}

// Wait ждёт завершения всех обработчиков после остановки и закрывает канал ошибок.
func (q *Queue) Wait() {
	q.wg.Wait()
	close(q.errs)
	q.log.Info().Msg("Очередь задач остановлена")
}

func (q *Queue) run(task Task) {
	ctx := logger.WithLogger(context.Background(), q.log)
	ctx = logger.NewContextWithIDs(ctx, task.traceID, task.correlationID)
	ctx, cancel := context.WithTimeout(ctx, q.cfg.TaskTimeout)
	defer cancel()

	log := logger.FromContext(ctx).With().
		Str("task_id", task.ID).
		Str("task", task.Name).
		Logger()

	start := time.Now()
	err := safeRun(ctx, task.Run)
	if err == nil {
		log.Debug().Dur("duration", time.Since(start)).Msg("Задача выполнена")
		return
	}

	taskErr := &TaskError{TaskID: task.ID, Name: task.Name, Err: err}
	select {
	case q.errs <- taskErr:
	default:
		log.Error().Err(err).Msg("Канал ошибок заполнен, ошибка задачи отброшена")
	}
}

func safeRun(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в задаче: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}
