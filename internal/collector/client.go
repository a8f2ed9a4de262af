package collector

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pribylovaa/go-feed-collector/internal/models"

	"golang.org/x/net/proxy"
)

// DefaultClients строит *http.Client для прокси p.
//
// Без прокси используется окружение (HTTP_PROXY и т.п.), http/https-прокси
// подключаются через Transport.Proxy, socks5 — через golang.org/x/net/proxy.
// Схема https в адресе означает обычный HTTP-прокси с поддержкой CONNECT
// (так помечают списки), поэтому соединение с самим прокси идёт без TLS.
// Таймаут на клиенте не ставится: каждая попытка ограничена своим контекстом.
func DefaultClients(p *models.Proxy) (Doer, error) {
	const op = "collector.DefaultClients"

	tr := http.DefaultTransport.(*http.Transport).Clone()

	if p != nil {
		u, err := p.URL()
		if err != nil {
			return nil, fmt.Errorf("%s: parse %q: %w", op, p.Address, err)
		}

		switch u.Scheme {
		case "http", "https":
			pu := *u
			pu.Scheme = "http"
			tr.Proxy = http.ProxyURL(&pu)
		case "socks5", "socks5h":
			d, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("%s: socks5 %q: %w", op, p.Address, err)
			}

			tr.Proxy = nil
			if cd, ok := d.(proxy.ContextDialer); ok {
				tr.DialContext = cd.DialContext
			} else {
				tr.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return d.Dial(network, addr)
				}
			}
		default:
			return nil, fmt.Errorf("%s: unsupported proxy scheme %q", op, u.Scheme)
		}
	}

	return &http.Client{Transport: tr}, nil
}
