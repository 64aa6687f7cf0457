package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит настройки приложения
type Config struct {
	// Настройки HTTP-сервера
	ServerPort int

	// Настройки базы данных
	DBHost     string
	DBPort     int
	DBName     string
	DBSSLMode  string
	DBUser     string
	DBPassword string

	DBConnMaxLifetime time.Duration

	// Настройки выполнения операций
	OperationTimeout time.Duration
	TaskRetention    time.Duration

	// Настройки отчетов
	ReportMaxLines    int
	ReportTimeout     time.Duration
	ReportDefaultDays int
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	// Загружаем .env файл, если он существует
	_ = godotenv.Load()

	config := &Config{
		// Значения по умолчанию
		ServerPort:        8080,
		DBPort:            5432,
		DBConnMaxLifetime: 0,
		OperationTimeout:  1 * time.Hour,
		TaskRetention:     1 * time.Hour,
		ReportMaxLines:    10000,
		ReportTimeout:     2 * time.Minute,
		ReportDefaultDays: 30,
	}

	// Сервер
	config.ServerPort = getEnvInt("SERVER_PORT", config.ServerPort)

	// База данных
	config.DBHost = getEnv("DB_HOST", "localhost")
	config.DBPort = getEnvInt("DB_PORT", config.DBPort)
	config.DBName = getEnv("DB_NAME", "postgres")
	config.DBSSLMode = getEnv("DB_SSL_MODE", "disable")

	// Учетные данные необязательны: без них сессия открывается через API
	config.DBUser = os.Getenv("DB_USER")
	config.DBPassword = os.Getenv("DB_PASSWORD")

	config.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", config.DBConnMaxLifetime)

	// Операции
	config.OperationTimeout = getEnvDuration("OPERATION_TIMEOUT", config.OperationTimeout)
	config.TaskRetention = getEnvDuration("TASK_RETENTION", config.TaskRetention)

	// Отчеты
	config.ReportMaxLines = getEnvInt("REPORT_MAX_LINES", config.ReportMaxLines)
	config.ReportTimeout = getEnvDuration("REPORT_TIMEOUT", config.ReportTimeout)
	config.ReportDefaultDays = getEnvInt("REPORT_DEFAULT_DAYS", config.ReportDefaultDays)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ReportMaxLines <= 0 {
		return fmt.Errorf("REPORT_MAX_LINES must be positive, got %d", c.ReportMaxLines)
	}
	if c.ReportTimeout <= 0 {
		return fmt.Errorf("REPORT_TIMEOUT must be positive, got %s", c.ReportTimeout)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("OPERATION_TIMEOUT must be positive, got %s", c.OperationTimeout)
	}
	if c.ReportDefaultDays < 1 || c.ReportDefaultDays > 365 {
		return fmt.Errorf("REPORT_DEFAULT_DAYS must be between 1 and 365, got %d", c.ReportDefaultDays)
	}
	return nil
}

// HasCredentials сообщает, заданы ли учетные данные для автоподключения
func (c *Config) HasCredentials() bool {
	return c.DBUser != "" && c.DBPassword != ""
}

// GetDBConnString возвращает строку подключения к PostgreSQL
func (c *Config) GetDBConnString(user, password string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, user, password, c.DBName, c.DBSSLMode,
	)
}

// Вспомогательная функция для получения переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			return p
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}
