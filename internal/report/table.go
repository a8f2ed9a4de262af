// report отрисовывает лог прогона в виде ASCII-таблицы фиксированной ширины.
package report

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/pribylovaa/go-feed-collector/internal/models"
)

// BannerTimeLayout — формат времени в строке-баннере.
const BannerTimeLayout = "2006-01-02 15:04:05.000000"

const bannerWidth = 100

// Format возвращает строки таблицы: баннер с временем at, шапку, строки лога
// с разделителями между ними и завершающую пустую строку.
//
// Ширина колонки = max(ширина заголовка, самое широкое значение) + 2;
// значения центрируются. Ширина считается в экранных колонках (runewidth),
// поэтому кириллица и CJK не ломают выравнивание.
// Результат детерминирован для одной и той же таблицы и at.
func Format(t *models.Table, at time.Time) []string {
	out := []string{
		strings.Repeat("=", bannerWidth),
		"TIME: " + at.Format(BannerTimeLayout),
	}

	fields := t.Fields()
	if len(fields) == 0 {
		return append(out, "")
	}

	cols := make([][]string, len(fields))
	widths := make([]int, len(fields))
	for j, f := range fields {
		cols[j] = t.Strings(f)

		w := runewidth.StringWidth(f)
		for _, v := range cols[j] {
			w = max(w, runewidth.StringWidth(v))
		}
		widths[j] = w + 2
	}

	sep := separator(widths)

	out = append(out, sep, row(fields, widths), sep)
	for i := 0; i < t.Len(); i++ {
		cells := make([]string, len(fields))
		for j := range fields {
			cells[j] = cols[j][i]
		}
		out = append(out, row(cells, widths), sep)
	}

	return append(out, "")
}

func separator(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w))
		b.WriteByte('+')
	}

	return b.String()
}

// row центрирует каждое значение в своей колонке; остаток отступа уходит вправо.
func row(cells []string, widths []int) string {
	var b strings.Builder
	for j, c := range cells {
		w := runewidth.StringWidth(c)
		left := (widths[j] - w) / 2

		b.WriteByte('|')
		b.WriteString(strings.Repeat(" ", left))
		b.WriteString(c)
		b.WriteString(strings.Repeat(" ", widths[j]-w-left))
	}
	b.WriteByte('|')

	return b.String()
}
