package proxies

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pribylovaa/go-feed-collector/internal/models"
)

// HTMLList — список прокси в HTML-таблице (free-proxy-list.net и похожие).
//
// Колонки определяются по заголовкам th: "IP"/"IP Address", "Port",
// "Https" (yes/no) и "Protocol"/"Type". Без заголовков: IP в первой колонке,
// порт во второй, схема http. Ячейка "ip:port" без колонки порта тоже понимается.
type HTMLList struct {
	name   string
	url    string
	client Doer
}

// NewHTMLList создаёт источник HTML-таблицы.
func NewHTMLList(name, url string, client Doer) *HTMLList {
	return &HTMLList{name: name, url: url, client: client}
}

func (s *HTMLList) Name() string { return s.name }

// Scrape скачивает страницу и разбирает первую таблицу с адресами.
func (s *HTMLList) Scrape(ctx context.Context) ([]models.Proxy, error) {
	const op = "proxies.HTMLList.Scrape"

	body, err := download(ctx, s.client, s.url)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, s.name, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: parse html: %w", op, s.name, err)
	}

	var out []models.Proxy
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		out = s.parseTable(table)
		return len(out) == 0
	})

	return out, nil
}

type columns struct {
	ip, port, https, proto int
}

func detectColumns(table *goquery.Selection) columns {
	cols := columns{ip: 0, port: 1, https: -1, proto: -1}

	table.Find("th").Each(func(i int, th *goquery.Selection) {
		switch h := strings.ToLower(strings.TrimSpace(th.Text())); {
		case h == "ip" || h == "ip address" || h == "ip адрес":
			cols.ip = i
		case h == "port" || h == "порт":
			cols.port = i
		case h == "https":
			cols.https = i
		case h == "protocol" || h == "type" || h == "тип":
			cols.proto = i
		}
	})

	return cols
}

func (s *HTMLList) parseTable(table *goquery.Selection) []models.Proxy {
	cols := detectColumns(table)

	var out []models.Proxy
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}

		cell := func(i int) string {
			if i < 0 || i >= tds.Length() {
				return ""
			}
			return strings.TrimSpace(tds.Eq(i).Text())
		}

		host, port := cell(cols.ip), cell(cols.port)
		if h, p, err := net.SplitHostPort(host); err == nil {
			host, port = h, p
		}
		if net.ParseIP(host) == nil {
			return
		}
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			return
		}

		scheme := "http"
		if strings.EqualFold(cell(cols.https), "yes") {
			scheme = "https"
		}
		if proto := strings.ToLower(cell(cols.proto)); proto != "" {
			switch {
			case strings.Contains(proto, "socks5"):
				scheme = "socks5"
			case strings.Contains(proto, "https"):
				scheme = "https"
			case strings.Contains(proto, "http"):
				scheme = "http"
			default:
				return
			}
		}

		out = append(out, models.Proxy{
			Address: scheme + "://" + net.JoinHostPort(host, port),
			Source:  s.name,
		})
	})

	return out
}
