package series

import "fmt"

// TooltipRow is a single labelled value in a hover tooltip.
type TooltipRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// TooltipContent is the hover tooltip for one point.
type TooltipContent struct {
	X string       `json:"x"`
	Y []TooltipRow `json:"y"`
}

// Tooltip formats a point for display. Absent and zero values are omitted.
func Tooltip(p Point) TooltipContent {
	fields := []struct {
		label string
		value *float64
	}{
		{"open", p.Open},
		{"high", p.High},
		{"low", p.Low},
		{"close", p.Close},
		{"upper", p.Upper},
		{"lower", p.Lower},
		{"pred", p.Pred},
		{"ema20", p.EMA20},
		{"ema50", p.EMA50},
	}

	rows := make([]TooltipRow, 0, len(fields))
	for _, f := range fields {
		if f.value == nil || *f.value == 0 {
			continue
		}
		rows = append(rows, TooltipRow{Label: f.label, Value: fmt.Sprintf("%.2f", *f.value)})
	}

	return TooltipContent{
		X: p.Date.Format(DateLayout),
		Y: rows,
	}
}
