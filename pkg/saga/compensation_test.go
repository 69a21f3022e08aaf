package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog_CompensateReverseOrder(t *testing.T) {
	var order []string
	l := NewLog()
	for _, name := range []string{"stock", "address", "order"} {
		name := name
		l.Add(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	assert.Equal(t, 3, l.Len())
	assert.NoError(t, l.Compensate(context.Background()))
	assert.Equal(t, []string{"order", "address", "stock"}, order)
}

func TestLog_CompensateJoinsErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	ran := 0

	l := NewLog()
	l.Add("a", func(context.Context) error { ran++; return errA })
	l.Add("ok", func(context.Context) error { ran++; return nil })
	l.Add("b", func(context.Context) error { ran++; return errB })

	err := l.Compensate(context.Background())

	assert.Equal(t, 3, ran, "ошибка не прерывает остальные откаты")
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestLog_CompensateOnce(t *testing.T) {
	calls := 0
	l := NewLog()
	l.Add("x", func(context.Context) error { calls++; return nil })

	_ = l.Compensate(context.Background())
	_ = l.Compensate(context.Background())

	assert.Equal(t, 1, calls)
}

func TestLog_CommitDisablesCompensation(t *testing.T) {
	calls := 0
	l := NewLog()
	l.Add("x", func(context.Context) error { calls++; return nil })

	l.Commit()
	assert.NoError(t, l.Compensate(context.Background()))
	assert.Zero(t, calls)
}
