package domain

import (
	"strconv"
	"sync"
	"time"
)

// Clock — источник текущего времени.
type Clock interface {
	Now() time.Time
}

// SystemClock возвращает системное время.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// OrderNumberGenerator выдаёт номера заказов из Unix-миллисекунд,
// строго возрастающие в пределах процесса.
type OrderNumberGenerator struct {
	mu    sync.Mutex
	clock Clock
	last  int64
}

// NewOrderNumberGenerator создаёт генератор.
func NewOrderNumberGenerator(clock Clock) *OrderNumberGenerator {
	return &OrderNumberGenerator{clock: clock}
}

// Next возвращает следующий номер.
func (g *OrderNumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.clock.Now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return strconv.FormatInt(n, 10)
}
