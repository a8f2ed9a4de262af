package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pribylovaa/go-feed-collector/internal/models"

	"golang.org/x/net/html/charset"
)

// feedExtractor извлекает записи из RSS 2.0 / RDF / Atom 1.0.
//
// Теги задаются конфигурацией источника (title_tag, summary_tag, date_tag,
// link_tag, type_tag); ключ вида "name@attr" означает атрибут элемента.
// Если заданный тег пуст, пробуются запасные варианты формата Atom.
type feedExtractor struct {
	title   []string
	summary []string
	date    []string
	link    []string
	typ     []string
	layout  string
}

// NewFeed — фабрика экстрактора лент.
func NewFeed(cfg map[string]string) (Extractor, error) {
	return &feedExtractor{
		title:   []string{option(cfg, "title_tag", "title")},
		summary: []string{option(cfg, "summary_tag", "description"), "summary", "encoded", "content"},
		date:    []string{option(cfg, "date_tag", "pubDate"), "published", "updated", "date"},
		link:    []string{option(cfg, "link_tag", "link"), "link@href", "guid"},
		typ:     []string{option(cfg, "type_tag", "category"), "category@term"},
		layout:  option(cfg, "date_layout", ""),
	}, nil
}

// Extract разбирает ленту. Ошибка — только если документ не является лентой.
func (f *feedExtractor) Extract(resp Response, source string) (Batch, error) {
	const op = "extract.feed.Extract"

	entries, err := parseFeed(resp.Body)
	if err != nil {
		return Batch{}, fmt.Errorf("%s: %w", op, err)
	}

	records := make([]models.Record, 0, len(entries))
	for _, e := range entries {
		rec := models.Record{
			models.FieldTitle:   optional(e.first(f.title)),
			models.FieldSummary: optional(e.first(f.summary)),
			models.FieldLink:    optional(e.link(f.link)),
			models.FieldType:    optional(e.first(f.typ)),
			models.FieldDate:    models.Null(),
		}
		if d, ok := formatDate(e.first(f.date), f.layout); ok {
			rec[models.FieldDate] = models.Str(d)
		}

		records = append(records, stamp(rec, source, resp.FetchedAt))
	}

	return Batch{Records: records, Status: strconv.Itoa(resp.StatusCode)}, nil
}

// feedEntry — плоское представление <item>/<entry>: локальное имя дочернего
// элемента -> текст, "имя@атрибут" -> значение атрибута. Побеждает первое вхождение.
type feedEntry map[string]string

func (e feedEntry) first(keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(e[k]); v != "" {
			return v
		}
	}

	return ""
}

// link — как first, но guid принимается только если это полноценный URL.
func (e feedEntry) link(keys []string) string {
	for _, k := range keys {
		v := strings.TrimSpace(e[k])
		if v == "" {
			continue
		}
		if k == "guid" && !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			continue
		}
		return v
	}

	return ""
}

var errNotFeed = errors.New("unknown format (expected <rss>, <rdf> or <feed>)")

// parseFeed проходит документ токенами и собирает элементы ленты.
func parseFeed(body []byte) ([]feedEntry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	dec := xml.NewDecoder(bytes.NewReader(trimmed))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var (
		entries []feedEntry
		rooted  bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		name := strings.ToLower(se.Name.Local)
		if !rooted {
			if name != "rss" && name != "rdf" && name != "feed" {
				return nil, errNotFeed
			}
			rooted = true
			continue
		}

		if name != "item" && name != "entry" {
			continue
		}

		e, err := readEntry(dec)
		if err != nil {
			return nil, fmt.Errorf("decode entry %d: %w", len(entries)+1, err)
		}
		entries = append(entries, e)
	}

	if !rooted {
		return nil, errNotFeed
	}

	return entries, nil
}

// readEntry читает дочерние элементы текущего <item>/<entry> до его закрытия.
func readEntry(dec *xml.Decoder) (feedEntry, error) {
	e := make(feedEntry)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return e, nil
		case xml.StartElement:
			name := t.Name.Local

			// Atom: из нескольких <link> берём alternate (или без rel).
			skipAttrs := name == "link" && relOf(t) != "" && relOf(t) != "alternate"
			if !skipAttrs {
				for _, a := range t.Attr {
					key := name + "@" + a.Name.Local
					if _, seen := e[key]; !seen {
						e[key] = a.Value
					}
				}
			}

			text, err := readText(dec)
			if err != nil {
				return nil, err
			}
			if _, seen := e[name]; !seen || strings.TrimSpace(e[name]) == "" {
				e[name] = text
			}
		}
	}
}

// readText собирает весь текст (включая вложенные элементы) до закрытия текущего элемента.
func readText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}

	return b.String(), nil
}

func relOf(se xml.StartElement) string {
	for _, a := range se.Attr {
		if a.Name.Local == "rel" {
			return strings.ToLower(strings.TrimSpace(a.Value))
		}
	}

	return ""
}
