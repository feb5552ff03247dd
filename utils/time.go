package utils

import (
	"fmt"
	"time"
)

// FormatYtDuration formats d as HH:MM:SS
func FormatYtDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatTimestamp formats d as mm:ss, growing to h:mm:ss past an hour
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Truncate(time.Second).Seconds())
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatProgress renders position against length, or just the position when length is unknown
func FormatProgress(position, length time.Duration, known bool) string {
	if !known {
		return FormatTimestamp(position)
	}
	return FormatTimestamp(position) + "/" + FormatTimestamp(length)
}
