// interceptors предоставляет unary-интерсепторы health-сервера коллектора.
package interceptors

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/pribylovaa/go-feed-collector/internal/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// healthPrefix — методы grpc.health.v1; пробы оркестратора частые, их лог уходит в debug.
const healthPrefix = "/grpc.health.v1.Health/"

// ServerOptions собирает цепочку: Recover -> Metrics -> Logging -> WithTimeout.
func ServerOptions(base *slog.Logger, timeout time.Duration) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			Recover(base),
			grpc_prometheus.UnaryServerInterceptor,
			UnaryLoggingInterceptor(base),
			WithTimeout(timeout),
		),
	}
}

// RegisterMetrics инициализирует grpc-метрики сервера в prometheus.DefaultRegisterer.
// Вызывается после регистрации всех сервисов.
func RegisterMetrics(srv *grpc.Server) {
	grpc_prometheus.EnableHandlingTimeHistogram()
	grpc_prometheus.Register(srv)
}

// UnaryLoggingInterceptor пишет одну строку на вызов и кладёт логгер с request_id в ctx.
//
// request_id берётся из metadata x-request-id, иначе генерируется UUID.
// Успешные health-пробы логируются на уровне Debug, остальное — Info,
// ошибки с кодом Internal/Unknown — Warn.
func UnaryLoggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		var rid string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
				rid = v[0]
			}
		}
		if rid == "" {
			rid = uuid.NewString()
		}

		peerStr := "-"
		if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
			peerStr = p.Addr.String()
		}

		l := base.With(
			slog.String("request_id", rid),
			slog.String("method", info.FullMethod),
			slog.String("peer", peerStr),
		)
		ctx = log.Into(ctx, l)

		resp, err := handler(ctx, req)
		code := status.Code(err)

		lvl := slog.LevelInfo
		switch {
		case code == codes.Internal || code == codes.Unknown:
			lvl = slog.LevelWarn
		case code == codes.OK && strings.HasPrefix(info.FullMethod, healthPrefix):
			lvl = slog.LevelDebug
		}

		l.Log(ctx, lvl, "grpc",
			slog.String("code", code.String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}

// Recover перехватывает панику обработчика: лог уровня Error со стеком,
// клиенту — codes.Internal без деталей.
func Recover(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		l := log.From(ctx)
		if l == slog.Default() && base != nil {
			l = base
		}

		defer func() {
			if r := recover(); r != nil {
				l.Error("panic_recovered",
					slog.String("method", info.FullMethod),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)

				err = status.Error(codes.Internal, "internal server error")
				resp = nil
			}
		}()

		return handler(ctx, req)
	}
}

// WithTimeout навешивает таймаут d, если у запроса нет своего дедлайна; d <= 0 — без изменений.
func WithTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}

		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}

		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		return handler(ctx, req)
	}
}
