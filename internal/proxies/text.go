package proxies

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/pribylovaa/go-feed-collector/internal/models"
)

// TextList — список прокси по одному на строку: "scheme://host:port" или "host:port".
// Пустые строки и строки с # пропускаются.
type TextList struct {
	name   string
	url    string
	client Doer
}

// NewTextList создаёт источник текстового списка.
func NewTextList(name, url string, client Doer) *TextList {
	return &TextList{name: name, url: url, client: client}
}

func (s *TextList) Name() string { return s.name }

func (s *TextList) Scrape(ctx context.Context) ([]models.Proxy, error) {
	const op = "proxies.TextList.Scrape"

	body, err := download(ctx, s.client, s.url)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, s.name, err)
	}

	return parseLines(body, s.name), nil
}

func parseLines(body []byte, source string) []models.Proxy {
	var out []models.Proxy

	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p := models.Proxy{Address: line, Source: source}
		u, err := p.URL()
		if err != nil || u.Host == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(u.Host); err != nil {
			continue
		}

		p.Address = u.Scheme + "://" + u.Host
		out = append(out, p)
	}

	return out
}
