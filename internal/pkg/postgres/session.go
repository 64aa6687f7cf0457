package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
)

// Session владеет единственной общей сессией с базой данных.
// Одновременно сессией пользуется не более одной операции: доступ
// выдается только через With.
type Session struct {
	dial   Dialer
	logger *zap.Logger

	// sem захватывается на время работы с соединением
	sem chan struct{}

	mu       sync.RWMutex
	db       *sqlx.DB
	user     string
	password string

	// generation растет при каждом подключении и отключении
	generation uint64
}

// NewSession создает сессию без подключения
func NewSession(dial Dialer, logger *zap.Logger) *Session {
	return &Session{
		dial:   dial,
		logger: logger,
		sem:    make(chan struct{}, 1),
	}
}

// Connect открывает сессию и заменяет предыдущую, если она была
func (s *Session) Connect(ctx context.Context, user, password string) error {
	db, err := s.dial(ctx, user, password)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	if err := s.acquire(ctx); err != nil {
		CloseDB(db, s.logger)
		return err
	}
	defer s.release()

	s.mu.Lock()
	prev := s.db
	s.db, s.user, s.password = db, user, password
	s.generation++
	s.mu.Unlock()

	if prev != nil {
		CloseDB(prev, s.logger)
	}
	return nil
}

// Disconnect закрывает сессию, дожидаясь завершения текущей операции.
// Если ctx истекает раньше, сессия остается открытой.
func (s *Session) Disconnect(ctx context.Context) error {
	if !s.Connected() {
		return entities.ErrNotConnected
	}

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	db := s.db
	if db != nil {
		s.db, s.user, s.password = nil, "", ""
		s.generation++
	}
	s.mu.Unlock()

	if db == nil {
		return entities.ErrNotConnected
	}
	return db.Close()
}

// Connected сообщает, открыта ли сессия
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// User возвращает имя пользователя сессии, оно же автор изменений
func (s *Session) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Generation возвращает номер текущей сессии. Результат, полученный при
// другом номере, относится к уже закрытой сессии.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// With выдает соединение функции fn в монопольное пользование и
// освобождает его при любом исходе.
func (s *Session) With(ctx context.Context, fn func(db *sqlx.DB) error) error {
	if !s.Connected() {
		return entities.ErrNotConnected
	}

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	// Сессия могла быть закрыта, пока мы ждали своей очереди
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db == nil {
		return entities.ErrNotConnected
	}

	return fn(db)
}

// OpenIsolated открывает отдельную сессию с теми же учетными данными.
// Закрыть ее должен вызывающий.
func (s *Session) OpenIsolated(ctx context.Context) (*sqlx.DB, error) {
	s.mu.RLock()
	connected, user, password := s.db != nil, s.user, s.password
	s.mu.RUnlock()

	if !connected {
		return nil, entities.ErrNotConnected
	}

	db, err := s.dial(ctx, user, password)
	if err != nil {
		return nil, fmt.Errorf("open isolated session: %w", err)
	}
	return db, nil
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() {
	<-s.sem
}
