// Package saga ведёт журнал компенсаций для многошаговых операций без общей транзакции.
// Каждый выполненный шаг регистрирует действие отката; при сбое следующего шага
// журнал откатывается в обратном порядке.
package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"example.com/jewelry-shop/pkg/logger"
)

// Undo откатывает один выполненный шаг.
type Undo func(ctx context.Context) error

type step struct {
	name string
	undo Undo
}

// Log — журнал компенсаций. Безопасен для конкурентного использования.
type Log struct {
	mu    sync.Mutex
	steps []step
	done  bool
}

// NewLog создаёт пустой журнал.
func NewLog() *Log {
	return &Log{}
}

// Add регистрирует откат для только что выполненного шага.
func (l *Log) Add(name string, undo Undo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, step{name: name, undo: undo})
}

// Len возвращает число зарегистрированных шагов.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.steps)
}

// Compensate выполняет откаты в обратном порядке. Ошибка одного отката
// не прерывает остальные; все ошибки объединяются. Повторный вызов ничего не делает.
func (l *Log) Compensate(ctx context.Context) error {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return nil
	}
	l.done = true
	steps := l.steps
	l.steps = nil
	l.mu.Unlock()

	log := logger.FromContext(ctx)
	var errs []error

	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if err := s.undo(ctx); err != nil {
			log.Error().Err(err).Str("step", s.name).Msg("Ошибка компенсации шага")
			errs = append(errs, fmt.Errorf("компенсация %s: %w", s.name, err))
			continue
		}
		log.Debug().Str("step", s.name).Msg("Шаг компенсирован")
	}

	return errors.Join(errs...)
}

// Commit закрывает журнал: последующий Compensate ничего не откатит.
func (l *Log) Commit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.done = true
	l.steps = nil
}
