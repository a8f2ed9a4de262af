// service содержит оркестрацию проходов коллектора: фазу без прокси,
// получение пула прокси, фазу через прокси и сохранение результатов.
package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/go-feed-collector/internal/collector"
	"github.com/pribylovaa/go-feed-collector/internal/config"
	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/proxies"
	"github.com/pribylovaa/go-feed-collector/internal/storage"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthName — имя сервиса в grpc.health.v1.
const HealthName = "feed-collector"

// HealthSetter — приёмник статуса (реализуется *health.Server из grpc).
type HealthSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// Observer принимает итоги фаз и проходов (реализуется *metrics.Metrics).
type Observer interface {
	ObservePhase(phase string, res *collector.Result)
	ObservePass(d time.Duration, pool int, err error)
}

// Метки фаз для Observer.
const (
	PhaseDirect = "direct"
	PhaseProxy  = "proxy"
)

// Runner выполняет один прогон движка сбора (реализуется *collector.Collector).
type Runner interface {
	Run(ctx context.Context, items []models.FetchItem, opts collector.Options) (*collector.Result, error)
}

// Service — описывает оркестрацию коллектора.
type Service struct {
	storage storage.Storage
	cfg     config.Config
	runner  Runner
	sources []proxies.Source
	health  HealthSetter
	obs     Observer
	lastErr atomic.Pointer[error]
}

// New создает новый экземпляр Service.
func New(storage storage.Storage, cfg config.Config, runner Runner, sources []proxies.Source) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
		runner:  runner,
		sources: sources,
	}
}

// WithHealth включает публикацию статуса: SERVING после успешного прохода,
// NOT_SERVING после неуспешного.
func (s *Service) WithHealth(h HealthSetter) *Service {
	s.health = h
	return s
}

// WithObserver подключает учёт фаз и проходов.
func (s *Service) WithObserver(o Observer) *Service {
	s.obs = o
	return s
}

// Healthy — итог последнего прохода: true, если проход ещё не завершался
// или последний завершился без ошибки.
func (s *Service) Healthy() bool {
	return s.lastErr.Load() == nil
}

func (s *Service) report(err error) {
	if err != nil {
		s.lastErr.Store(&err)
	} else {
		s.lastErr.Store(nil)
	}

	if s.health == nil {
		return
	}

	st := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(HealthName, st)
}

// phaseOptions переводит настройки фазы в параметры прогона.
func (s *Service) phaseOptions(p config.PhaseConfig) collector.Options {
	return collector.Options{
		Tries:       p.NumberOfTries,
		WaitingTime: p.WaitingTime,
		Delay:       p.TimeoutBetweenRequests,
		Workers:     p.Workers,
		DataFields:  s.cfg.DataFields,
		CountFields: s.cfg.LogFields,
	}
}

// storageCtx ограничивает операцию хранилища таймаутом сервиса.
func (s *Service) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeouts.Service <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.cfg.Timeouts.Service)
}

// Summary — итог одного прохода; nil-фаза не выполнялась.
type Summary struct {
	Direct *collector.Result
	Proxy  *collector.Result
	// Pool — пул прокси, с которым запускалась фаза через прокси.
	Pool []models.Proxy
	At   time.Time
}
