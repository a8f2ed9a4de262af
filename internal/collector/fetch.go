package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pribylovaa/go-feed-collector/internal/extract"
	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/pkg/log"
)

// maxBodyBytes ограничивает размер читаемого ответа.
const maxBodyBytes = 10 << 20

// Outcome — классификация одной попытки.
// Решение о повторе принимается не по нему, а по счётчику title (см. failed).
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeEmpty — ответ получен и разобран, но заголовков нет.
	OutcomeEmpty
	OutcomeHTTPError
	OutcomeTransportError
	OutcomeExtractError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeExtractError:
		return "extract_error"
	default:
		return "unknown"
	}
}

// step — результат одной попытки: дельта данных и строка лога.
type step struct {
	data    *models.Table
	row     models.LogRow
	outcome Outcome
	done    bool
}

// fetch выполняет одну попытку загрузки элемента it через client.
//
// Порядок классификации:
//  1. ошибка транспорта/таймаут -> ERROR, STATUS_CODE пуст;
//  2. HTTP 4xx/5xx -> STATUS_CODE, данных нет;
//  3. ошибка экстрактора -> STATUS_CODE и ERROR, данных нет;
//  4. иначе -> счётчики непустых значений по CountFields.
//
// source и TRY заполняются всегда. Сетевых эффектов, кроме запроса, нет.
func (c *Collector) fetch(ctx context.Context, try int, it prepared, client Doer, opts Options) step {
	const op = "collector.fetch"

	lg := log.From(ctx).With(
		slog.String("source", it.item.Source),
		slog.Int("try", try),
	)

	st := step{
		data: models.NewTable(opts.DataFields...),
		row: models.LogRow{
			Source: it.item.Source,
			Try:    strconv.Itoa(try),
			Counts: make(map[string]string, len(opts.CountFields)),
		},
		done: true,
	}

	reqCtx := ctx
	if opts.WaitingTime > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, opts.WaitingTime)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, it.item.URL, nil)
	if err != nil {
		st.row.Error = err.Error()
		st.outcome = OutcomeTransportError
		lg.Warn("fetch_failed", slog.String("op", op), slog.String("err", err.Error()))
		return st
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := client.Do(req)
	if err != nil {
		st.row.Error = err.Error()
		st.outcome = OutcomeTransportError
		lg.Warn("fetch_failed", slog.String("op", op), slog.String("err", err.Error()))
		return st
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		st.row.StatusCode = strconv.Itoa(resp.StatusCode)
		st.outcome = OutcomeHTTPError
		lg.Warn("fetch_http_error", slog.String("op", op), slog.Int("status", resp.StatusCode))
		return st
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		st.row.Error = fmt.Sprintf("read body: %v", err)
		st.outcome = OutcomeTransportError
		lg.Warn("fetch_failed", slog.String("op", op), slog.String("err", st.row.Error))
		return st
	}

	batch, err := safeExtract(it.extractor, extract.Response{
		URL:        it.item.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FetchedAt:  c.now(),
	}, it.item.Source)
	if err != nil {
		st.row.StatusCode = strconv.Itoa(resp.StatusCode)
		st.row.Error = err.Error()
		st.outcome = OutcomeExtractError
		lg.Warn("extract_failed", slog.String("op", op), slog.String("err", err.Error()))
		return st
	}

	st.row.StatusCode = batch.Status
	if st.row.StatusCode == "" {
		st.row.StatusCode = strconv.Itoa(resp.StatusCode)
	}

	for _, f := range opts.CountFields {
		st.row.Counts[f] = strconv.Itoa(countValid(batch.Records, f))
	}
	st.data = models.FromRecords(opts.DataFields, batch.Records)

	st.outcome = OutcomeOK
	if failed(st.row) {
		st.outcome = OutcomeEmpty
	}

	lg.Debug("fetch_done",
		slog.String("op", op),
		slog.String("status", st.row.StatusCode),
		slog.Int("records", len(batch.Records)),
		slog.String("outcome", st.outcome.String()),
	)

	return st
}

// safeExtract не даёт панике экстрактора прервать прогон.
func safeExtract(ex extract.Extractor, resp extract.Response, source string) (b extract.Batch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()

	return ex.Extract(resp, source)
}

func countValid(records []models.Record, field string) int {
	n := 0
	for _, r := range records {
		if r[field].Valid {
			n++
		}
	}

	return n
}

// failed — единственный критерий неуспеха попытки: счётчик title пуст или "0".
// Ответ 200 без заголовков повторяется так же, как сетевая ошибка.
func failed(row models.LogRow) bool {
	n := row.Counts[models.FieldTitle]
	return n == "" || n == "0"
}
