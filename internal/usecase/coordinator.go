package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Coordinator выполняет замыкания по одному в собственной горутине.
// Все снимки состояния (кандидаты, параметры, сводка) меняются только
// внутри этих замыканий, поэтому отдельные блокировки им не нужны.
type Coordinator struct {
	calls    chan func()
	stopping chan struct{}
	logger   *zap.Logger

	// mu отделяет постановку в очередь от финальной выборки при остановке
	mu      sync.RWMutex
	stopped bool
}

// NewCoordinator создает координатор; до вызова Run замыкания копятся в очереди
func NewCoordinator(logger *zap.Logger) *Coordinator {
	return &Coordinator{
		calls:    make(chan func(), 64),
		stopping: make(chan struct{}),
		logger:   logger,
	}
}

// Run обрабатывает очередь до отмены ctx. Замыкания, принятые в очередь
// до остановки, выполняются до выхода из Run.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("Coordinator started")
	for {
		select {
		case fn := <-c.calls:
			c.invoke(fn)
		case <-ctx.Done():
			c.stop()
			c.logger.Info("Coordinator stopped")
			return nil
		}
	}
}

// Post ставит fn в очередь и не ждет выполнения. Возвращает false, если
// координатор уже остановлен.
func (c *Coordinator) Post(fn func()) bool {
	return c.enqueue(context.Background(), fn) == nil
}

// Do выполняет fn на координаторе и ждет завершения
func (c *Coordinator) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	if err := c.enqueue(ctx, func() { defer close(done); fn() }); err != nil {
		return err
	}

	// Принятое замыкание выполнится даже при остановке
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) enqueue(ctx context.Context, fn func()) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stopped {
		return ErrCoordinatorStopped
	}

	select {
	case c.calls <- fn:
		return nil
	case <-c.stopping:
		return ErrCoordinatorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop закрывает прием и выполняет все, что уже успело попасть в очередь
func (c *Coordinator) stop() {
	close(c.stopping)

	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	for {
		select {
		case fn := <-c.calls:
			c.invoke(fn)
		default:
			return
		}
	}
}

func (c *Coordinator) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Coordinator callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
