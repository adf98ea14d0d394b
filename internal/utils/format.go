package utils

import (
	"fmt"
	"time"
)

const Unknown = "unknown"

// Bounds of the four digit year range, 0001-01-01 to 9999-12-31 23:59:59 UTC.
const (
	minTimestamp int64 = -62135596800
	maxTimestamp int64 = 253402300799
)

// TimestampToGermanDate converts epoch seconds to a DD.MM.YYYY date in UTC.
// Values outside the four digit year range yield "unknown".
func TimestampToGermanDate(timestamp int64) string {
	if timestamp < minTimestamp || timestamp > maxTimestamp {
		return Unknown
	}
	return time.Unix(timestamp, 0).UTC().Format("02.01.2006")
}

// FormatDuration renders a duration as "{hours}:{minutes}". Minutes are not
// zero padded, so 65 minutes becomes "1:5".
func FormatDuration(duration *time.Duration) string {
	if duration == nil {
		return Unknown
	}
	totalSeconds := int64(duration.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	return fmt.Sprintf("%d:%d", hours, minutes)
}
