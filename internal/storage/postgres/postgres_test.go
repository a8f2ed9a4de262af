package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты для пакета postgres (postgres.go):
// — поднимают реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// — применяют миграции из ./migrations;
// — проверяют:
//    SaveRecords: строки в JSONB с null для пустых полей, фиксация схемы и models.ErrSchema;
//    SaveLog: строки лога и текст, дописывание текста в рамках одного run_id, фиксация колонок лога;
//    LoadProxies/SaveProxies: ErrNotFound до первого сохранения, полная замена, порядок;
//    rowJSON/joinLines/classify без БД.

// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile — определяет корень репозитория относительно текущего файла тестов.
func repoRootFromThisFile() string {
	// internal/storage/postgres/... -> подняться на 3 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// readMigration — читает содержимое SQL-миграции из подкаталога ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(repoRootFromThisFile(), "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres — поднимает PostgreSQL, применяет миграции и возвращает хранилище и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, readMigration(t, "1_init_collector.up.sql"))
	require.NoError(t, err)

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func TestIntegration_SaveRecords_And_Schema(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	run := uuid.New()

	tb := models.FromRecords([]string{"title", "link"}, []models.Record{
		{"title": models.Str("A"), "link": models.Str("https://x/a")},
		{"title": models.Str("B")},
	})
	require.NoError(t, st.SaveRecords(ctx, run, "rss", tb))

	rows, err := st.db.Query(ctx, `SELECT data FROM records WHERE run_id = $1 ORDER BY position`, run)
	require.NoError(t, err)
	defer rows.Close()

	var docs []map[string]*string
	for rows.Next() {
		var raw []byte
		require.NoError(t, rows.Scan(&raw))

		var doc map[string]*string
		require.NoError(t, json.Unmarshal(raw, &doc))
		docs = append(docs, doc)
	}
	require.NoError(t, rows.Err())
	require.Len(t, docs, 2)
	require.Equal(t, "A", *docs[0]["title"])
	require.Nil(t, docs[1]["link"])

	// Та же схема в другом порядке — допустима.
	other := models.NewTable("link", "title")
	require.NoError(t, st.SaveRecords(ctx, uuid.New(), "rss", other))

	// Другая схема — ошибка.
	bad := models.NewTable("title", "date")
	err = st.SaveRecords(ctx, uuid.New(), "rss", bad)
	require.True(t, errors.Is(err, models.ErrSchema))
}

func TestIntegration_SaveLog_AppendsText(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	run := uuid.New()

	schema := models.LogSchema{WithProxy: true, CountFields: []string{"title"}}
	lt := schema.Table(models.LogRow{Source: "s", StatusCode: "500", Try: "1", ProxyID: "1", Proxy: "https://p:1"})

	require.NoError(t, st.SaveLog(ctx, run, "log_proxy", lt, []string{"a", "b"}))
	require.NoError(t, st.SaveLog(ctx, run, "log_proxy", lt, []string{"c"}))

	var n int
	require.NoError(t, st.db.QueryRow(ctx, `SELECT count(*) FROM fetch_log WHERE run_id = $1`, run).Scan(&n))
	require.Equal(t, 2, n)

	var body string
	require.NoError(t, st.db.QueryRow(ctx,
		`SELECT body FROM fetch_log_text WHERE run_id = $1 AND log_name = $2`, run, "log_proxy").Scan(&body))
	require.Equal(t, "a\nb\nc\n", body)
}

func TestIntegration_SaveLog_SchemaLocked(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	direct := models.LogSchema{CountFields: []string{"title"}}
	proxied := models.LogSchema{WithProxy: true, CountFields: []string{"title"}}

	require.NoError(t, st.SaveLog(ctx, uuid.New(), "log", direct.Table(models.LogRow{Source: "s", Try: "1"}), nil))

	// Колонки PROXY_ID/PROXY под тем же именем лога — ошибка, строки не пишутся.
	err := st.SaveLog(ctx, uuid.New(), "log",
		proxied.Table(models.LogRow{Source: "s", Try: "1", ProxyID: "1", Proxy: "http://p:1"}), []string{"x"})
	require.ErrorIs(t, err, models.ErrSchema)

	var n int
	require.NoError(t, st.db.QueryRow(ctx, `SELECT count(*) FROM fetch_log WHERE log_name = 'log'`).Scan(&n))
	require.Equal(t, 1, n)

	// Набор данных с тем же именем имеет свою схему.
	data := models.NewTable("title")
	data.AppendRecord(models.Record{"title": models.Str("t")})
	require.NoError(t, st.SaveRecords(ctx, uuid.New(), "log", data))
}

func TestIntegration_Proxies_ReplaceAndOrder(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	_, err := st.LoadProxies(ctx)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, st.SaveProxies(ctx, []models.Proxy{
		{Address: "https://b:1", Source: "fpl"},
		{Address: "https://a:1", Source: "stored"},
	}))

	got, err := st.LoadProxies(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.Proxy{
		{Address: "https://b:1", Source: "fpl"},
		{Address: "https://a:1", Source: "stored"},
	}, got)

	require.NoError(t, st.SaveProxies(ctx, nil))

	got, err = st.LoadProxies(ctx)
	require.NoError(t, err, "пустой пул после сохранения — не ErrNotFound")
	require.Empty(t, got)
}

func Test_rowJSON(t *testing.T) {
	t.Parallel()

	b, err := rowJSON(models.Record{"title": models.Str("T"), "date": models.Null()})
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"T","date":null}`, string(b))
}

func Test_joinLines(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", joinLines(nil))
	require.Equal(t, "a\nb\n", joinLines([]string{"a", "b"}))
}

func Test_classify(t *testing.T) {
	undefined := &pgconn.PgError{Code: pgerrcode.UndefinedTable, Message: `relation "proxies" does not exist`}

	err := classify(fmt.Errorf("query: %w", undefined))
	require.ErrorIs(t, err, storage.ErrNotMigrated)
	require.ErrorAs(t, err, &undefined)

	other := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	require.Same(t, error(other), classify(other))
	require.NotErrorIs(t, classify(other), storage.ErrNotMigrated)
}
