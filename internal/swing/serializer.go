package swing

import (
	"strconv"
	"strings"
)

const (
	timePrecision   = 4
	weightPrecision = 1
)

// Render formats a series for the companion app:
//
//	(times);(lead);(times);(trail)
func Render(series RecordedSeries) string {
	var b strings.Builder

	writeGroup(&b, series.Times, timePrecision)
	b.WriteByte(';')
	writeGroup(&b, series.LeadWeights, weightPrecision)
	b.WriteByte(';')
	writeGroup(&b, series.Times, timePrecision)
	b.WriteByte(';')
	writeGroup(&b, series.TrailWeights, weightPrecision)

	return b.String()
}

func writeGroup(b *strings.Builder, values []float64, precision int) {
	b.WriteByte('(')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', precision, 64))
	}
	b.WriteByte(')')
}
