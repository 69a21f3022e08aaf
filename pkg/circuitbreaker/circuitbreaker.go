// Package circuitbreaker защищает исходящие HTTP вызовы (платёжный шлюз, Telegram)
// от каскадных сбоев поверх gobreaker.
//
// Состояния:
//   - Closed: запросы проходят
//   - Open: запросы отклоняются сразу с ErrUnavailable
//   - Half-Open: пропускается MaxRequests пробных запросов
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"example.com/jewelry-shop/pkg/logger"
)

// ErrUnavailable — breaker открыт или исчерпан лимит пробных запросов.
var ErrUnavailable = errors.New("внешний сервис временно недоступен")

// Settings — настройки Circuit Breaker.
type Settings struct {
	MaxRequests  uint32        // запросов в Half-Open
	Interval     time.Duration // сброс счётчиков в Closed
	Timeout      time.Duration // время в Open до Half-Open
	FailureRatio float64       // доля ошибок для перехода в Open
	MinRequests  uint32        // минимум запросов для расчёта доли

	// IsFailure решает, учитывается ли ошибка как сбой. По умолчанию любая ошибка,
	// кроме отмены контекста вызывающей стороной.
	IsFailure func(err error) bool
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Breaker — обёртка над gobreaker с логированием смены состояний.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[struct{}]
	name string
}

// New создаёт Breaker с настройками по умолчанию.
func New(name string) *Breaker {
	return NewWithSettings(name, DefaultSettings())
}

// NewWithSettings создаёт Breaker с пользовательскими настройками.
func NewWithSettings(name string, s Settings) *Breaker {
	isFailure := s.IsFailure
	if isFailure == nil {
		isFailure = defaultIsFailure
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log := logger.With().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Logger()

			switch to {
			case gobreaker.StateOpen:
				log.Warn().Msg("Circuit Breaker ОТКРЫТ, сервис недоступен")
			case gobreaker.StateHalfOpen:
				log.Info().Msg("Circuit Breaker ПОЛУОТКРЫТ, пробуем восстановить")
			case gobreaker.StateClosed:
				log.Info().Msg("Circuit Breaker ЗАКРЫТ, сервис восстановлен")
			}
		},
	})

	return &Breaker{cb: cb, name: name}
}

// Execute выполняет fn через breaker. Ошибка fn возвращается как есть;
// отказ самого breaker превращается в ErrUnavailable.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var callErr error

	_, cbErr := b.cb.Execute(func() (struct{}, error) {
		callErr = fn(ctx)
		return struct{}{}, callErr
	})

	if errors.Is(cbErr, gobreaker.ErrOpenState) || errors.Is(cbErr, gobreaker.ErrTooManyRequests) {
		log := logger.FromContext(ctx)
		log.Warn().Str("breaker", b.name).Msg("Запрос отклонён Circuit Breaker")
		return ErrUnavailable
	}

	return callErr
}

// State возвращает текущее состояние breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name возвращает имя breaker.
func (b *Breaker) Name() string {
	return b.name
}

func defaultIsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}
