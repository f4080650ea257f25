package models

import "time"

// ActorMetrics скользящие счетчики одного актора (или сетевого источника).
// Принадлежат Admission Monitor; синхронизация доступа лежит на владельце.
type ActorMetrics struct {
	LastSeen      time.Time
	Intervals     []time.Duration // интервалы между соседними запросами
	ResponseTimes []time.Duration // времена обработки последних обменов
	RequestCount  int64
}

// RecordArrival учитывает новый запрос и интервал с предыдущего.
// Хранится не больше window последних интервалов.
func (m *ActorMetrics) RecordArrival(now time.Time, window int) {
	if !m.LastSeen.IsZero() {
		m.Intervals = appendBounded(m.Intervals, now.Sub(m.LastSeen), window)
	}
	m.LastSeen = now
	m.RequestCount++
}

// RecordResponse учитывает время обработки обмена
func (m *ActorMetrics) RecordResponse(d time.Duration, window int) {
	m.ResponseTimes = appendBounded(m.ResponseTimes, d, window)
}

// Idle сообщает, что актор неактивен дольше ttl
func (m *ActorMetrics) Idle(now time.Time, ttl time.Duration) bool {
	return !m.LastSeen.IsZero() && now.Sub(m.LastSeen) > ttl
}

func appendBounded(values []time.Duration, v time.Duration, window int) []time.Duration {
	values = append(values, v)
	if window > 0 && len(values) > window {
		values = values[len(values)-window:]
	}
	return values
}
