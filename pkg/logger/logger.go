// Package logger предоставляет структурированное логирование на базе zerolog.
// JSON в production, читаемый консольный вывод в development.
// Сообщения логов пишутся на русском языке.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// base — логгер по умолчанию для кода, которому логгер не передан явно
// (инициализация пакетов, фоновые горутины без контекста запроса).
var base zerolog.Logger

// Config содержит настройки логгера.
type Config struct {
	// Level — минимальный уровень: debug, info, warn, error. По умолчанию info.
	Level string

	// Pretty включает zerolog.ConsoleWriter вместо JSON.
	Pretty bool

	// Output — куда писать логи. По умолчанию os.Stdout.
	Output io.Writer

	// Service добавляется полем service в каждую запись, если не пустой.
	Service string
}

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	Init(Config{
		Level:  level,
		Pretty: strings.EqualFold(os.Getenv("LOG_PRETTY"), "true"),
	})
}

// New создаёт логгер по конфигурации, не трогая логгер по умолчанию.
// Используется в main для явной передачи логгера компонентам.
func New(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	lc := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Caller()

	if cfg.Service != "" {
		lc = lc.Str("service", cfg.Service)
	}

	return lc.Logger()
}

// Init создаёт логгер по конфигурации и делает его логгером по умолчанию.
func Init(cfg Config) zerolog.Logger {
	base = New(cfg)
	zerolog.TimeFieldFormat = time.RFC3339
	return base
}

// ParseLevel преобразует строковое представление уровня в zerolog.Level.
// Неизвестный уровень трактуется как info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug создаёт событие уровня debug в логгере по умолчанию.
func Debug() *zerolog.Event { return base.Debug() }

// Info создаёт событие уровня info в логгере по умолчанию.
func Info() *zerolog.Event { return base.Info() }

// Warn создаёт событие уровня warn в логгере по умолчанию.
func Warn() *zerolog.Event { return base.Warn() }

// Error создаёт событие уровня error в логгере по умолчанию.
func Error() *zerolog.Event { return base.Error() }

// Fatal создаёт событие уровня fatal. После Msg() процесс завершится.
func Fatal() *zerolog.Event { return base.Fatal() }

// With возвращает контекст логгера по умолчанию для добавления полей.
//
//	log := logger.With().Str("component", "outbox").Logger()
func With() zerolog.Context { return base.With() }

// Logger возвращает копию логгера по умолчанию.
func Logger() zerolog.Logger { return base }

// SetGlobalLogger заменяет логгер по умолчанию (используется в тестах).
func SetGlobalLogger(l zerolog.Logger) { base = l }
