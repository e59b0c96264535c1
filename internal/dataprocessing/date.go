package dataprocessing

import (
	"regexp"
	"time"

	"sensorcli/pkg/contracts/domain"
)

// UnknownDate is the Date of a record whose filename carries no YYYY_MM_DD stamp.
const UnknownDate = "unknown date"

var filenameDatePattern = regexp.MustCompile(`(\d{4})_(\d{2})_(\d{2})`)

// ExtractDate finds the first YYYY_MM_DD substring in filename and returns it
// as DD/MM/YYYY. Filenames without a stamp yield UnknownDate.
func ExtractDate(filename string) string {
	m := filenameDatePattern.FindStringSubmatch(filename)
	if m == nil {
		return UnknownDate
	}
	return m[3] + "/" + m[2] + "/" + m[1]
}

// ParseRecordDate parses a DD/MM/YYYY record date.
func ParseRecordDate(date string) (time.Time, bool) {
	t, err := time.Parse(domain.RecordDateLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
