package downloader

import (
	"fmt"
	"strings"
)

// Progress is one engine-reported download progress event.
type Progress struct {
	Percentage float64
	Downloaded string
	Speed      string
	ETA        string
}

func BuildProgressBar(percentage float64) string {
	const barLength = 10
	const filledChar = "■"
	const emptyChar = "□"

	filled := int(percentage / 100 * float64(barLength))
	if filled > barLength {
		filled = barLength
	}

	bar := strings.Repeat(filledChar, filled) + strings.Repeat(emptyChar, barLength-filled)
	return fmt.Sprintf("[%s] %.1f%%", bar, percentage)
}
