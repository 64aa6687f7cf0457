package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
)

// ConfigStore хранит снимок параметров очистки. Изменения сохраняются
// только всем набором в одной транзакции.
type ConfigStore struct {
	repo    ports.ConfigRepository
	session ports.Session
	runner  *Runner
	coord   *Coordinator
	logger  *zap.Logger

	snapshot []entities.ConfigEntry
}

// NewConfigStore создает хранилище параметров с пустым снимком
func NewConfigStore(repo ports.ConfigRepository, session ports.Session, runner *Runner, coord *Coordinator, logger *zap.Logger) *ConfigStore {
	return &ConfigStore{
		repo:    repo,
		session: session,
		runner:  runner,
		coord:   coord,
		logger:  logger,
	}
}

type saveResult struct {
	Saved     int `json:"saved"`
	entries   []entities.ConfigEntry
	refreshed bool
}

// List возвращает копию текущего снимка
func (s *ConfigStore) List(ctx context.Context) ([]entities.ConfigEntry, error) {
	var out []entities.ConfigEntry
	err := s.coord.Do(ctx, func() {
		out = append([]entities.ConfigEntry(nil), s.snapshot...)
	})
	return out, err
}

// Refresh перечитывает параметры и заменяет снимок
func (s *ConfigStore) Refresh(ctx context.Context) (string, error) {
	if !s.session.Connected() {
		return "", entities.ErrNotConnected
	}

	guard := guardOf(s.session)
	h, err := Submit(s.runner, entities.CommandRefreshConfig,
		func(ctx context.Context) ([]entities.ConfigEntry, error) {
			guard.begin()
			return s.repo.List(ctx)
		},
		func(entries []entities.ConfigEntry, err error) {
			if err == nil && guard.current(s.logger, entities.CommandRefreshConfig) {
				s.replace(entries)
			}
		})
	if err != nil {
		return "", err
	}
	return h.ID, nil
}

// Save накладывает req.Values на снимок и сохраняет все параметры разом.
// Снимок не меняется до тех пор, пока сохранение не подтвердит база.
func (s *ConfigStore) Save(ctx context.Context, req entities.ConfigUpdateRequest) (string, error) {
	if !s.session.Connected() {
		return "", entities.ErrNotConnected
	}

	batch, err := s.batch(ctx, req.Values)
	if err != nil {
		return "", err
	}

	if len(batch) == 0 {
		return "", entities.ErrNothingToDo
	}

	actor := s.session.User()

	guard := guardOf(s.session)
	h, err := Submit(s.runner, entities.CommandSaveConfig,
		func(ctx context.Context) (*saveResult, error) {
			guard.begin()
			if err := s.repo.SaveAll(ctx, batch, actor); err != nil {
				return nil, err
			}

			res := &saveResult{Saved: len(batch)}
			// Перечитываем, чтобы увидеть значения, вычисленные сервером
			entries, err := s.repo.List(ctx)
			if err != nil {
				s.logger.Warn("Failed to refresh config after save", zap.Error(err))
			} else {
				res.entries, res.refreshed = entries, true
			}
			return res, nil
		},
		func(res *saveResult, err error) {
			if err == nil && res.refreshed && guard.current(s.logger, entities.CommandSaveConfig) {
				s.replace(res.entries)
			}
		})
	if err != nil {
		return "", err
	}
	return h.ID, nil
}

// batch строит полный набор параметров с примененными изменениями
func (s *ConfigStore) batch(ctx context.Context, values map[string]string) ([]entities.ConfigEntry, error) {
	var (
		batch   []entities.ConfigEntry
		unknown string
	)

	err := s.coord.Do(ctx, func() {
		known := make(map[string]bool, len(s.snapshot))
		batch = make([]entities.ConfigEntry, 0, len(s.snapshot))
		for _, e := range s.snapshot {
			known[e.Name] = true
			if v, ok := values[e.Name]; ok {
				e.Value = v
			}
			batch = append(batch, e)
		}

		for name := range values {
			if !known[name] {
				unknown = name
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if unknown != "" {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnknownConfig, unknown)
	}
	return batch, nil
}

// replace вызывается только на координаторе
func (s *ConfigStore) replace(entries []entities.ConfigEntry) {
	s.snapshot = entries
}
