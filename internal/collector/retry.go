package collector

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/pkg/log"

	"golang.org/x/sync/errgroup"
)

// cycle — контекст одного цикла повторов: клиент и (опционально) прокси.
type cycle struct {
	client  Doer
	proxyID int
	proxy   *models.Proxy
}

// retry выполняет не более opts.Tries раундов по pending.
//
// После каждого раунда pending сужается до элементов, признанных неуспешными
// (см. failed); пустое множество завершает цикл досрочно. Возвращает индексы,
// так и не получившие успеха. Ошибка — только models.ErrSchema или отмена ctx.
func (c *Collector) retry(ctx context.Context, items []prepared, pending []int, cy cycle, opts Options, acc *aggregate) ([]int, error) {
	const op = "collector.retry"

	lg := log.From(ctx)

	for try := 1; try <= opts.Tries && len(pending) > 0; try++ {
		steps := c.round(ctx, try, items, pending, cy.client, opts)

		var next []int
		for k, idx := range pending {
			st := steps[k]
			if !st.done {
				next = append(next, idx)
				continue
			}

			if cy.proxy != nil {
				st.row.ProxyID = strconv.Itoa(cy.proxyID)
				st.row.Proxy = cy.proxy.Address
			}

			if err := acc.add(st); err != nil {
				return nil, err
			}

			if failed(st.row) {
				next = append(next, idx)
			}
		}

		lg.Info("round_done",
			slog.String("op", op),
			slog.Int("try", try),
			slog.Int("pending", len(pending)),
			slog.Int("failed", len(next)),
		)

		pending = next

		if err := ctx.Err(); err != nil {
			return pending, err
		}
	}

	return pending, nil
}

// round — один проход по pending с барьером: возвращается, когда все попытки
// завершены. steps[k] соответствует pending[k], поэтому порядок строк в логе
// не зависит от числа воркеров. После каждого запроса выдерживается opts.Delay.
func (c *Collector) round(ctx context.Context, try int, items []prepared, pending []int, client Doer, opts Options) []step {
	steps := make([]step, len(pending))

	var g errgroup.Group
	g.SetLimit(max(opts.Workers, 1))

	for k, idx := range pending {
		if ctx.Err() != nil {
			break
		}

		k, idx := k, idx
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			steps[k] = c.fetch(ctx, try, items[idx], client, opts)
			_ = c.sleep(ctx, opts.Delay)

			return nil
		})
	}

	_ = g.Wait()

	return steps
}
