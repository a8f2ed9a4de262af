package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pribylovaa/go-feed-collector/internal/models"
)

// htmlExtractor извлекает записи со страницы по CSS-селекторам.
//
// item_selector задаёт блоки-записи (пусто — вся страница как одна запись),
// остальные селекторы ищутся внутри блока. Ссылки приводятся к абсолютным
// относительно адреса страницы.
type htmlExtractor struct {
	item       string
	title      string
	summary    string
	date       string
	dateLayout string
	link       string
	linkAttr   string
	typ        string
}

// NewHTML — фабрика HTML-экстрактора. title_selector обязателен.
func NewHTML(cfg map[string]string) (Extractor, error) {
	h := &htmlExtractor{
		item:       option(cfg, "item_selector", ""),
		title:      option(cfg, "title_selector", ""),
		summary:    option(cfg, "summary_selector", ""),
		date:       option(cfg, "date_selector", ""),
		dateLayout: option(cfg, "date_layout", ""),
		link:       option(cfg, "link_selector", ""),
		linkAttr:   option(cfg, "link_attr", "href"),
		typ:        option(cfg, "type_selector", ""),
	}

	if h.title == "" {
		return nil, fmt.Errorf("%w: title_selector is required", ErrInvalidConfig)
	}

	return h, nil
}

// Extract разбирает страницу; отсутствие совпадений даёт пустой результат, не ошибку.
func (h *htmlExtractor) Extract(resp Response, source string) (Batch, error) {
	const op = "extract.html.Extract"

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return Batch{}, fmt.Errorf("%s: parse: %w", op, err)
	}

	base, _ := url.Parse(resp.URL)

	items := doc.Selection
	if h.item != "" {
		items = doc.Find(h.item)
	}

	var records []models.Record
	items.Each(func(_ int, sel *goquery.Selection) {
		rec := models.Record{
			models.FieldTitle:   optional(textOf(sel, h.title)),
			models.FieldSummary: optional(textOf(sel, h.summary)),
			models.FieldType:    optional(textOf(sel, h.typ)),
			models.FieldLink:    optional(h.linkOf(sel, base)),
			models.FieldDate:    models.Null(),
		}
		if d, ok := formatDate(dateOf(sel, h.date), h.dateLayout); ok {
			rec[models.FieldDate] = models.Str(d)
		}

		records = append(records, stamp(rec, source, resp.FetchedAt))
	})

	return Batch{Records: records, Status: strconv.Itoa(resp.StatusCode)}, nil
}

func textOf(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}

	return collapseSpaces(sel.Find(selector).First().Text())
}

// dateOf предпочитает машиночитаемый атрибут datetime (<time datetime=...>).
func dateOf(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}

	node := sel.Find(selector).First()
	if v, ok := node.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
		return v
	}

	return collapseSpaces(node.Text())
}

func (h *htmlExtractor) linkOf(sel *goquery.Selection, base *url.URL) string {
	node := sel
	if h.link != "" {
		node = sel.Find(h.link).First()
	}

	raw, ok := node.Attr(h.linkAttr)
	if !ok {
		return ""
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || base == nil {
		return raw
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return base.ResolveReference(ref).String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
