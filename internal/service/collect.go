package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-feed-collector/internal/collector"
	"github.com/pribylovaa/go-feed-collector/internal/config"
	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/pkg/log"
	"github.com/pribylovaa/go-feed-collector/internal/proxies"
	"github.com/pribylovaa/go-feed-collector/internal/storage"
)

// StartSchedule запускает периодические проходы с интервалом s.cfg.Interval.
//
// Особенности:
//   - первый проход выполняется сразу;
//   - Interval == 0 — ровно один проход, ошибка прохода возвращается;
//   - ошибка отдельного тика логируется и не останавливает расписание;
//   - останавливается по ctx.
func (s *Service) StartSchedule(ctx context.Context) error {
	const op = "service.collect.StartSchedule"

	interval := s.cfg.Interval
	lg := log.From(ctx)

	if interval <= 0 {
		_, err := s.CollectOnce(ctx)
		s.report(err)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	lg.Info("schedule_start",
		slog.String("op", op),
		slog.Int("sources", len(s.cfg.Sources)),
		slog.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			lg.Info("schedule_stop", slog.String("op", op))
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick — проход по расписанию: ошибка логируется и уходит в health-статус.
func (s *Service) tick(ctx context.Context) {
	const op = "service.collect.tick"

	_, err := s.CollectOnce(ctx)
	s.report(err)
	if err != nil {
		log.From(ctx).Warn("collect_tick_error", slog.String("op", op), slog.String("err", err.Error()))
	}
}

// CollectOnce — один проход: фаза без прокси, затем фаза через прокси.
//
// Результаты каждой фазы сохраняются сразу после неё. Пул прокси = сохранённые
// + собранные из источников; после фазы через прокси сохранённый пул заменяется
// рабочими прокси этого прогона. Пустой пул пропускает фазу, сохранённый пул не трогается.
func (s *Service) CollectOnce(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum, err := s.collectOnce(ctx)
	if s.obs != nil {
		s.obs.ObservePass(time.Since(start), len(sum.Pool), err)
	}

	return sum, err
}

func (s *Service) collectOnce(ctx context.Context) (*Summary, error) {
	const op = "service.collect.CollectOnce"

	lg := log.From(ctx)
	direct, proxied := s.cfg.Items()
	sum := &Summary{At: time.Now().UTC()}

	lg.Info("collect_start",
		slog.String("op", op),
		slog.Int("direct", len(direct)),
		slog.Int("proxied", len(proxied)),
	)

	if len(direct) > 0 {
		res, err := s.runPhase(ctx, PhaseDirect, direct, s.cfg.Direct, s.phaseOptions(s.cfg.Direct))
		sum.Direct = res
		if err != nil {
			return sum, fmt.Errorf("%s: direct: %w", op, err)
		}
	}

	if len(proxied) == 0 {
		return sum, nil
	}

	sum.Pool = s.acquireProxies(ctx)
	if len(sum.Pool) == 0 {
		lg.Warn("proxy_pool_empty",
			slog.String("op", op),
			slog.Int("skipped", len(proxied)),
		)
		return sum, nil
	}

	opts := s.phaseOptions(s.cfg.Proxy.PhaseConfig)
	opts.ProxyMode = true
	opts.Proxies = sum.Pool

	res, err := s.runPhase(ctx, PhaseProxy, proxied, s.cfg.Proxy.PhaseConfig, opts)
	sum.Proxy = res
	if err != nil {
		return sum, fmt.Errorf("%s: proxy: %w", op, err)
	}

	sctx, cancel := s.storageCtx(ctx)
	defer cancel()

	if err := s.storage.SaveProxies(sctx, res.WorkingProxies); err != nil {
		return sum, fmt.Errorf("%s: save_proxies: %w", op, err)
	}

	lg.Info("collect_done",
		slog.String("op", op),
		slog.Int("pool", len(sum.Pool)),
		slog.Int("working_proxies", len(res.WorkingProxies)),
	)

	return sum, nil
}

// runPhase выполняет прогон и сохраняет лог и данные под именами фазы.
// Частичный результат отменённого прогона тоже сохраняется.
func (s *Service) runPhase(ctx context.Context, label string, items []models.FetchItem, phase config.PhaseConfig, opts collector.Options) (*collector.Result, error) {
	const op = "service.collect.runPhase"

	res, runErr := s.runner.Run(ctx, items, opts)
	if res == nil {
		return nil, runErr
	}
	if s.obs != nil {
		s.obs.ObservePhase(label, res)
	}

	// Сохранение не должно зависеть от отмены прохода.
	sctx, cancel := s.storageCtx(context.WithoutCancel(ctx))
	defer cancel()

	if err := s.storage.SaveLog(sctx, res.RunID, phase.LogName, res.Log, res.Text); err != nil {
		return res, errors.Join(runErr, fmt.Errorf("save_log: %w", err))
	}
	if err := s.storage.SaveRecords(sctx, res.RunID, phase.DataName, res.Data); err != nil {
		return res, errors.Join(runErr, fmt.Errorf("save_records: %w", err))
	}

	log.From(ctx).Info("phase_saved",
		slog.String("op", op),
		slog.String("phase", label),
		slog.String("run_id", res.RunID.String()),
		slog.String("data_name", phase.DataName),
		slog.Int("records", res.Data.Len()),
		slog.Int("attempts", res.Log.Len()),
		slog.Int("failed", len(res.Failed)),
	)

	return res, runErr
}

// acquireProxies возвращает сохранённый пул, дополненный свежими адресами из источников.
// Ошибка чтения сохранённого пула логируется: фаза продолжается со свежими адресами.
func (s *Service) acquireProxies(ctx context.Context) []models.Proxy {
	const op = "service.collect.acquireProxies"

	lg := log.From(ctx)

	sctx, cancel := s.storageCtx(ctx)
	stored, err := s.storage.LoadProxies(sctx)
	cancel()

	switch {
	case errors.Is(err, storage.ErrNotFound):
		lg.Info("proxies_not_stored", slog.String("op", op))
	case err != nil:
		lg.Warn("proxies_load_failed", slog.String("op", op), slog.String("err", err.Error()))
	}

	gathered := proxies.Gather(ctx, s.sources)
	pool := proxies.Merge(stored, gathered)

	lg.Info("proxy_pool_ready",
		slog.String("op", op),
		slog.Int("stored", len(stored)),
		slog.Int("gathered", len(gathered)),
		slog.Int("pool", len(pool)),
	)

	return pool
}
