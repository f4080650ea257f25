package admission

import (
	"math"
	"sort"
	"time"
)

// coefficientOfVariation возвращает stddev/mean для интервалов.
// Для нулевого среднего возвращает 0: одновременные запросы максимально равномерны.
func coefficientOfVariation(samples []time.Duration) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	mean := sum / float64(len(samples))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, s := range samples {
		d := float64(s) - mean
		variance += d * d
	}
	return math.Sqrt(variance/float64(len(samples))) / mean
}

// outlierRatio доля значений вне [Q1 - 1.5*IQR, Q3 + 1.5*IQR]
func outlierRatio(samples []time.Duration) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	for i, s := range samples {
		sorted[i] = float64(s)
	}
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	outliers := 0
	for _, v := range sorted {
		if v < lower || v > upper {
			outliers++
		}
	}
	return float64(outliers) / float64(len(sorted))
}

// percentile с линейной интерполяцией; sorted должен быть отсортирован
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	k := (p / 100) * float64(len(sorted)-1)
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return sorted[int(k)]
	}
	return sorted[int(f)]*(c-k) + sorted[int(c)]*(k-f)
}
