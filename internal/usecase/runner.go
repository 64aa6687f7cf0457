package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/pkg/metrics"
)

var (
	ErrCoordinatorStopped = errors.New("coordinator stopped")
	ErrTaskNotFound       = errors.New("task not found")
)

// Runner выполняет блокирующую работу вне координатора и доставляет
// результат обратно на координатор. Для каждой команды одновременно
// выполняется не более одной задачи; повторная отправка отклоняется.
type Runner struct {
	base      context.Context
	coord     *Coordinator
	timeout   time.Duration
	retention time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[entities.Command]string
	tasks    map[string]*task
}

type task struct {
	result entities.TaskResult
	done   chan struct{}
}

// Handle ссылается на отправленную задачу
type Handle struct {
	ID      string
	Command entities.Command
	done    <-chan struct{}
}

// Done закрывается после того, как обработчик завершения отработал на координаторе
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// NewRunner создает исполнитель задач. Отмена base прерывает всю текущую
// работу, timeout ограничивает одну единицу работы, retention задает,
// сколько хранится запись о завершенной задаче.
func NewRunner(base context.Context, coord *Coordinator, timeout, retention time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		base:      base,
		coord:     coord,
		timeout:   timeout,
		retention: retention,
		logger:    logger,
		inflight:  make(map[entities.Command]string),
		tasks:     make(map[string]*task),
	}
}

// Submit запускает work в отдельной горутине и сразу возвращается.
// complete вызывается на координаторе с результатом или ошибкой work,
// после чего команда снова принимает задачи.
func Submit[T any](r *Runner, cmd entities.Command, work func(ctx context.Context) (T, error), complete func(T, error)) (*Handle, error) {
	r.mu.Lock()
	if id, busy := r.inflight[cmd]; busy {
		r.mu.Unlock()
		metrics.TasksRejected.WithLabelValues(string(cmd)).Inc()
		r.logger.Warn("Command already in flight, submission rejected",
			zap.String("command", string(cmd)),
			zap.String("task_id", id))
		return nil, busyError(cmd)
	}

	t := &task{
		result: entities.TaskResult{
			TaskID:  uuid.New().String(),
			Command: cmd,
			Status:  entities.TaskPending,
		},
		done: make(chan struct{}),
	}
	r.inflight[cmd] = t.result.TaskID
	r.tasks[t.result.TaskID] = t
	r.mu.Unlock()

	metrics.TasksSubmitted.WithLabelValues(string(cmd)).Inc()
	metrics.TasksInFlight.WithLabelValues(string(cmd)).Inc()

	go r.run(t, func(ctx context.Context) (interface{}, func(), error) {
		value, err := safeWork(ctx, work)
		var callback func()
		if complete != nil {
			callback = func() { complete(value, err) }
		}
		return value, callback, err
	})

	return &Handle{ID: t.result.TaskID, Command: cmd, done: t.done}, nil
}

func (r *Runner) run(t *task, exec func(ctx context.Context) (interface{}, func(), error)) {
	id, cmd := t.result.TaskID, t.result.Command
	log := r.logger.With(zap.String("task_id", id), zap.String("command", string(cmd)))

	r.setStatus(t, entities.TaskInProgress)
	log.Info("Task started")

	ctx, cancel := context.WithTimeout(r.base, r.timeout)
	defer cancel()

	start := time.Now()
	value, callback, err := exec(ctx)
	elapsed := time.Since(start)

	finish := func() {
		if callback != nil {
			r.callback(log, callback)
		}
		r.finish(t, value, err, elapsed)
	}

	// Если координатор остановлен, задачу все равно нужно закрыть
	if !r.coord.Post(finish) {
		r.finish(t, value, err, elapsed)
	}

	if err != nil {
		log.Error("Task failed", zap.Duration("duration", elapsed), zap.Error(err))
	} else {
		log.Info("Task completed", zap.Duration("duration", elapsed))
	}
}

func (r *Runner) callback(log *zap.Logger, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("Completion callback panicked", zap.Any("panic", p))
		}
	}()
	fn()
}

func (r *Runner) setStatus(t *task, status entities.TaskStatus) {
	r.mu.Lock()
	t.result.Status = status
	r.mu.Unlock()
}

func (r *Runner) finish(t *task, value interface{}, err error, elapsed time.Duration) {
	id, cmd := t.result.TaskID, t.result.Command

	r.mu.Lock()
	t.result.ElapsedTime = elapsed
	if err != nil {
		t.result.Status = entities.TaskFailed
		t.result.ErrorMessage = err.Error()
	} else {
		t.result.Status = entities.TaskCompleted
		t.result.Result = value
	}
	status := t.result.Status
	if r.inflight[cmd] == id {
		delete(r.inflight, cmd)
	}
	close(t.done)
	r.mu.Unlock()

	metrics.TasksInFlight.WithLabelValues(string(cmd)).Dec()
	metrics.TaskDuration.WithLabelValues(string(cmd), string(status)).Observe(elapsed.Seconds())

	// Очищаем информацию о задаче через некоторое время
	time.AfterFunc(r.retention, func() {
		r.mu.Lock()
		delete(r.tasks, id)
		r.mu.Unlock()
	})
}

// Busy сообщает, выполняется ли сейчас задача команды
func (r *Runner) Busy(cmd entities.Command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.inflight[cmd]
	return busy
}

// Status возвращает копию состояния задачи
func (r *Runner) Status(taskID string) (*entities.TaskResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task with ID %s: %w", taskID, ErrTaskNotFound)
	}

	result := t.result
	return &result, nil
}

// Wait ждет завершения задачи и возвращает ее итог
func (r *Runner) Wait(ctx context.Context, taskID string) (*entities.TaskResult, error) {
	r.mu.Lock()
	t, ok := r.tasks[taskID]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("task with ID %s: %w", taskID, ErrTaskNotFound)
	}

	select {
	case <-t.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return r.Status(taskID)
}

func busyError(cmd entities.Command) error {
	return fmt.Errorf("%s: %w", cmd, entities.ErrBusy)
}

// safeWork перехватывает панику внутри work и превращает ее в ошибку
func safeWork[T any](ctx context.Context, work func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return work(ctx)
}

// GetTaskStatus возвращает статус операции по идентификатору
func (r *Runner) GetTaskStatus(_ context.Context, taskID string) (*entities.TaskResult, error) {
	return r.Status(taskID)
}
