package models

import (
	"net/url"
	"strings"
)

// Proxy — точка выхода через прокси.
type Proxy struct {
	// Address — адрес вида scheme://host:port; без схемы подразумевается http.
	// https — HTTP-прокси, умеющий CONNECT к https-адресам.
	Address string `yaml:"address"`
	// Source — откуда получен адрес (имя списка или "stored").
	Source string `yaml:"source,omitempty"`
}

// URL разбирает адрес прокси, дописывая схему http при её отсутствии.
func (p Proxy) URL() (*url.URL, error) {
	addr := strings.TrimSpace(p.Address)
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	return url.Parse(addr)
}

// Key — нормализованный ключ для дедупликации.
func (p Proxy) Key() string {
	u, err := p.URL()
	if err != nil {
		return strings.ToLower(strings.TrimSpace(p.Address))
	}

	return strings.ToLower(u.Scheme + "://" + u.Host)
}
