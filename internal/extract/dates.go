package extract

import (
	"errors"
	"strings"
	"time"
)

// dateLayout — формат даты в выходных записях (год-месяц-день без ведущих нулей).
const dateLayout = "2006-1-2"

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	// день без ведущего нуля.
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	// 2-значный год.
	"Mon, 02 Jan 06 15:04:05 -0700",
	"Mon, 02 Jan 06 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// parseDate пробует явный layout (если задан), затем набор популярных форматов.
// Возвращает время в UTC.
func parseDate(value, layout string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}

	if layout != "" {
		t, err := time.Parse(layout, value)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}

	var lastErr error
	for _, l := range pubDateLayouts {
		t, err := time.Parse(l, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, lastErr
}

// formatDate разбирает дату и приводит её к dateLayout; при ошибке — ok=false.
func formatDate(value, layout string) (string, bool) {
	t, err := parseDate(value, layout)
	if err != nil {
		return "", false
	}

	return t.Format(dateLayout), true
}
