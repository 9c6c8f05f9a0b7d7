package graphic

import (
	"strconv"

	"github.com/nsf/termbox-go"
)

// BarRune is the block we use for the filled part of the gauge.
const BarRune rune = '█'

// EmptyRune is the block we use for the unfilled part.
const EmptyRune rune = '░'

// partialRunes are the sub-step blocks for the cell at the fill boundary,
// indexed by eighths.
var partialRunes = [8]rune{
	'░',
	'░',
	'▒',
	'▒',
	'▓',
	'▓',
	'█',
	'█',
}

// levelRatio maps a dB value onto [0, 1] across the drawn range. This clamp
// exists for bar width only; measured values are never clipped.
func levelRatio(db, minDB float64) float64 {
	if minDB >= 0 {
		return 0
	}

	ratio := (db - minDB) / -minDB
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}

// barRune picks the rune for one gauge cell given the fill boundary.
func barRune(col, filled int, partial float64) rune {
	switch {
	case col < filled:
		return BarRune
	case col == filled && partial > 0:
		return partialRunes[int(partial*8)%8]
	default:
		return EmptyRune
	}
}

// barColor colors the gauge in thirds, quiet to loud.
func barColor(col, width int) termbox.Attribute {
	switch {
	case col < width/3:
		return termbox.ColorGreen
	case col < 2*width/3:
		return termbox.ColorYellow
	default:
		return termbox.ColorRed
	}
}

// scaleLabel returns the dB label anchored at the given column, or "" for
// columns without one. Labels split the drawn range [minDB, 0] in thirds.
func scaleLabel(col, width, minDB int) string {
	switch col {
	case 0:
		return strconv.Itoa(minDB)
	case width / 3:
		return strconv.Itoa(minDB - minDB/3)
	case 2 * width / 3:
		return strconv.Itoa(minDB / 3)
	case width - 1:
		return "0"
	}
	return ""
}

// markerColumn is where the threshold marker sits on the scale row.
func markerColumn(thresholdDB, minDB float64, width int) int {
	if width < 2 {
		return 0
	}
	return int(levelRatio(thresholdDB, minDB)*float64(width-1) + 0.5)
}
