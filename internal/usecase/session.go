package usecase

import (
	"context"

	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
)

// SessionManager открывает и закрывает общую сессию
type SessionManager struct {
	session    ports.Session
	candidates *CandidateStore
	config     *ConfigStore
	dashboard  *Dashboard
	runner     *Runner
	coord      *Coordinator
	logger     *zap.Logger
}

// NewSessionManager создает менеджер сессии
func NewSessionManager(session ports.Session, candidates *CandidateStore, config *ConfigStore, dashboard *Dashboard, runner *Runner, coord *Coordinator, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		session:    session,
		candidates: candidates,
		config:     config,
		dashboard:  dashboard,
		runner:     runner,
		coord:      coord,
		logger:     logger,
	}
}

// ConnectResult итог подключения
type ConnectResult struct {
	User string `json:"user"`

	info       entities.DatabaseInfo
	infoOK     bool
	config     []entities.ConfigEntry
	configOK   bool
	candidates []entities.Candidate
	listOK     bool
}

// Connect открывает сессию и после успеха загружает сводку, параметры и кандидатов
func (m *SessionManager) Connect(ctx context.Context, req entities.ConnectRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	guard := guardOf(m.session)
	h, err := Submit(m.runner, entities.CommandConnect,
		func(ctx context.Context) (*ConnectResult, error) {
			if err := m.session.Connect(ctx, req.User, req.Password); err != nil {
				return nil, err
			}
			guard.begin()

			res := &ConnectResult{User: req.User}
			res.info, res.infoOK = m.dashboard.reload(ctx)
			res.config, res.configOK = m.loadConfig(ctx)
			res.candidates, res.listOK = m.candidates.reload(ctx)
			return res, nil
		},
		func(res *ConnectResult, err error) {
			if err != nil || !guard.current(m.logger, entities.CommandConnect) {
				return
			}
			if res.infoOK {
				m.dashboard.replace(res.info)
			}
			if res.configOK {
				m.config.replace(res.config)
			}
			if res.listOK {
				m.candidates.replace(res.candidates)
			}
		})
	if err != nil {
		return "", err
	}
	return h.ID, nil
}

// Disconnect закрывает сессию и сбрасывает снимки. Если текущая операция
// не освобождает сессию до истечения ctx, возвращается ошибка ctx.
func (m *SessionManager) Disconnect(ctx context.Context) error {
	if err := m.session.Disconnect(ctx); err != nil {
		return err
	}

	m.logger.Info("Disconnected from database")

	return m.coord.Do(ctx, func() {
		m.dashboard.replace(entities.DatabaseInfo{})
		m.config.replace(nil)
		m.candidates.replace(nil)
	})
}

func (m *SessionManager) loadConfig(ctx context.Context) ([]entities.ConfigEntry, bool) {
	entries, err := m.config.repo.List(ctx)
	if err != nil {
		m.logger.Warn("Failed to load config", zap.Error(err))
		return nil, false
	}
	return entries, true
}

// sessionGuard запоминает номер сессии, в которой выполнялась работа.
// Снимки обновляются, только если за это время сессия не сменилась.
type sessionGuard struct {
	session ports.Session
	gen     uint64
}

func guardOf(session ports.Session) *sessionGuard {
	return &sessionGuard{session: session}
}

// begin вызывается в начале работы
func (g *sessionGuard) begin() {
	g.gen = g.session.Generation()
}

// current вызывается на координаторе перед заменой снимков
func (g *sessionGuard) current(logger *zap.Logger, cmd entities.Command) bool {
	if g.session.Generation() == g.gen {
		return true
	}
	logger.Info("Session changed while task was running, result not applied",
		zap.String("command", string(cmd)))
	return false
}
