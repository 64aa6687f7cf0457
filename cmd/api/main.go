package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"db-cleanup/internal/delivery/http"
	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/pkg/config"
	"db-cleanup/internal/pkg/logger"
	"db-cleanup/internal/pkg/postgres"
	repo "db-cleanup/internal/repository/postgres"
	"db-cleanup/internal/usecase"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	// Инициализируем логгер
	l, err := logger.NewLogger(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer l.Sync()

	log := l.Named("main")

	// Контекст приложения отменяется по сигналу остановки
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Общая сессия открывается по запросу пользователя или из конфигурации
	session := postgres.NewSession(postgres.NewDialer(cfg, l.Named("postgres")), l.Named("session"))
	defer func() {
		if !session.Connected() {
			return
		}
		// Работа задач к этому моменту отменена вместе с ctx
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := session.Disconnect(closeCtx); err != nil {
			log.Error("Error closing database session", zap.Error(err))
		}
	}()

	// Инициализируем слои приложения
	candidateRepo := repo.NewCandidateRepository(session, l.Named("repository"))
	configRepo := repo.NewConfigRepository(session, l.Named("repository"))
	infoRepo := repo.NewInfoRepository(session, l.Named("repository"))
	reportRepo := repo.NewReportRepository(session, cfg.ReportMaxLines, l.Named("repository"))

	coord := usecase.NewCoordinator(l.Named("coordinator"))
	runner := usecase.NewRunner(ctx, coord, cfg.OperationTimeout, cfg.TaskRetention, l.Named("runner"))

	ucLog := l.Named("usecase")
	dashboard := usecase.NewDashboard(infoRepo, session, runner, coord, ucLog)
	candidates := usecase.NewCandidateStore(candidateRepo, session, runner, coord, ucLog)
	configStore := usecase.NewConfigStore(configRepo, session, runner, coord, ucLog)
	sessions := usecase.NewSessionManager(session, candidates, configStore, dashboard, runner, coord, ucLog)

	handler := http.NewHandler(http.UseCases{
		Session:    sessions,
		Dashboard:  dashboard,
		Candidates: candidates,
		Config:     configStore,
		Analysis:   usecase.NewAnalysisOrchestrator(candidateRepo, session, candidates, dashboard, runner, ucLog),
		Cleanup:    usecase.NewCleanupExecutor(candidateRepo, session, candidates, dashboard, runner, ucLog),
		Reports:    usecase.NewReportStreamer(reportRepo, session, runner, cfg.ReportTimeout, ucLog),
		Tasks:      runner,
	}, cfg.ReportDefaultDays, l.Named("handler"))

	server := http.NewServer(handler, l.Named("server"), cfg.ServerPort)

	g, gctx := errgroup.WithContext(ctx)

	// Координатор владеет снимками состояния
	g.Go(func() error {
		return coord.Run(gctx)
	})

	g.Go(func() error {
		return server.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down application...")

		// Даем серверу 30 секунд на завершение текущих запросов
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return server.Stop(shutdownCtx)
	})

	// Подключаемся сразу, если учетные данные заданы в окружении
	if cfg.HasCredentials() {
		taskID, err := sessions.Connect(ctx, entities.ConnectRequest{User: cfg.DBUser, Password: cfg.DBPassword})
		if err != nil {
			log.Error("Failed to start initial connection", zap.Error(err))
		} else {
			log.Info("Initial connection submitted", zap.String("task_id", taskID))
		}
	}

	log.Info("Application started")

	if err := g.Wait(); err != nil {
		log.Error("Application stopped with error", zap.Error(err))
		return
	}

	log.Info("Application stopped")
}
