// Package clock implements the replica's logical clock for document stamps.
package clock

import (
	"sync"
	"time"
)

// Clock гибридные логические часы: метка не меньше настенного времени в
// миллисекундах и строго больше любой выданной или полученной ранее метки.
// Так локальная правка после получения серверной версии всегда новее нее,
// даже если часы реплики отстают.
type Clock struct {
	wall func() time.Time
	last int64
	mu   sync.Mutex
}

// New creates a clock over the given wall clock (time.Now when nil)
func New(wall func() time.Time) *Clock {
	if wall == nil {
		wall = time.Now
	}
	return &Clock{wall: wall}
}

// Tick возвращает новую метку для локального события
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last = max(c.wall().UnixMilli(), c.last+1)
	return c.last
}

// Update учитывает метку, полученную от другого узла или выданную вне Tick.
// Следующий Tick будет больше нее.
func (c *Clock) Update(remote int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last = max(c.last, remote)
}

// Last возвращает последнюю известную метку без изменения часов
func (c *Clock) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}
