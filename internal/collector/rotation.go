package collector

import (
	"context"
	"log/slog"

	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/pkg/log"
)

// rotate проходит пул прокси по порядку и для каждого выполняет полный цикл retry.
//
// Первый прокси получает все элементы, следующий — только те, что остались
// неуспешными. Цикл останавливается, когда неуспешных не осталось или пул исчерпан.
// Прокси попадает в working, если через него загрузился хотя бы один элемент.
func (c *Collector) rotate(ctx context.Context, items []prepared, pending []int, opts Options, acc *aggregate) ([]models.Proxy, []int, error) {
	const op = "collector.rotate"

	lg := log.From(ctx)

	var working []models.Proxy
	for i := range opts.Proxies {
		p := opts.Proxies[i]

		client, err := c.clients(&p)
		if err != nil {
			lg.Warn("proxy_client_failed",
				slog.String("op", op),
				slog.String("proxy", p.Address),
				slog.String("err", err.Error()),
			)
			continue
		}

		pctx := log.With(ctx, slog.Int("proxy_id", i+1), slog.String("proxy", p.Address))

		before := len(pending)
		pending, err = c.retry(pctx, items, pending, cycle{client: client, proxyID: i + 1, proxy: &p}, opts, acc)
		if len(pending) < before {
			working = append(working, p)
		}

		log.From(pctx).Info("proxy_cycle_done",
			slog.String("op", op),
			slog.Int("succeeded", before-len(pending)),
			slog.Int("left", len(pending)),
		)

		if err != nil {
			return working, pending, err
		}

		if len(pending) == 0 {
			return working, nil, nil
		}
	}

	lg.Warn("proxy_pool_exhausted",
		slog.String("op", op),
		slog.Int("left", len(pending)),
	)

	return working, pending, nil
}
