// postgres предоставляет реализацию storage.Storage на базе PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/storage"
)

type Storage struct {
	db *pgxpool.Pool
}

// New создает и инициализирует пул соединений к PostgreSQL.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Close закрывает пул соединений.
// Должен вызываться при остановке приложения.
func (s *Storage) Close() {
	s.db.Close()
}

// SaveRecords дописывает строки набора name одной транзакцией.
// Каждая строка хранится как JSONB-объект поле -> значение (null для отсутствующих).
// Первая запись набора фиксирует его схему; несовпадение — models.ErrSchema.
func (s *Storage) SaveRecords(ctx context.Context, runID uuid.UUID, name string, t *models.Table) error {
	const op = "storage.postgres.SaveRecords"

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := checkSchema(ctx, tx, name, t.Fields()); err != nil {
			return err
		}

		return insertRows(ctx, tx,
			`INSERT INTO records (run_id, dataset, position, data) VALUES ($1, $2, $3, $4)`,
			runID, name, t)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	return nil
}

// logSchemaPrefix отделяет схемы логов от схем наборов данных в dataset_schemas.
const logSchemaPrefix = "log:"

// SaveLog дописывает строки лога и текстовое представление прогона.
// Колонки лога фиксируются так же, как схема набора; несовпадение — models.ErrSchema.
func (s *Storage) SaveLog(ctx context.Context, runID uuid.UUID, name string, t *models.Table, text []string) error {
	const op = "storage.postgres.SaveLog"

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := checkSchema(ctx, tx, logSchemaPrefix+name, t.Fields()); err != nil {
			return err
		}
		if err := insertRows(ctx, tx,
			`INSERT INTO fetch_log (run_id, log_name, position, data) VALUES ($1, $2, $3, $4)`,
			runID, name, t); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
		INSERT INTO fetch_log_text (run_id, log_name, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, log_name) DO UPDATE
		SET body = fetch_log_text.body || EXCLUDED.body
		`, runID, name, joinLines(text))
		if err != nil {
			return fmt.Errorf("text: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	return nil
}

// LoadProxies возвращает сохранённый пул по позиции.
// Если пул ни разу не сохранялся — storage.ErrNotFound.
func (s *Storage) LoadProxies(ctx context.Context) ([]models.Proxy, error) {
	const op = "storage.postgres.LoadProxies"

	var saved bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM proxies_meta)`).Scan(&saved); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	if !saved {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	rows, err := s.db.Query(ctx, `SELECT address, source FROM proxies ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Proxy, error) {
		var p models.Proxy
		err := row.Scan(&p.Address, &p.Source)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: scan: %w", op, err)
	}

	return out, nil
}

// SaveProxies заменяет пул целиком в одной транзакции.
func (s *Storage) SaveProxies(ctx context.Context, list []models.Proxy) error {
	const op = "storage.postgres.SaveProxies"

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM proxies`); err != nil {
			return fmt.Errorf("delete: %w", err)
		}

		batch := &pgx.Batch{}
		for i, p := range list {
			batch.Queue(`
			INSERT INTO proxies (address, source, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (address) DO NOTHING
			`, p.Address, p.Source, i)
		}
		batch.Queue(`
		INSERT INTO proxies_meta (id, updated_at) VALUES (TRUE, now())
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		`)

		return execBatch(ctx, tx, batch)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	return nil
}

// checkSchema фиксирует поля набора при первой записи и сверяет их при последующих.
func checkSchema(ctx context.Context, tx pgx.Tx, dataset string, fields []string) error {
	if _, err := tx.Exec(ctx, `
	INSERT INTO dataset_schemas (dataset, fields) VALUES ($1, $2)
	ON CONFLICT (dataset) DO NOTHING
	`, dataset, fields); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	var stored []string
	if err := tx.QueryRow(ctx, `SELECT fields FROM dataset_schemas WHERE dataset = $1`, dataset).Scan(&stored); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	a, b := slices.Clone(stored), slices.Clone(fields)
	slices.Sort(a)
	slices.Sort(b)
	if !slices.Equal(a, b) {
		return fmt.Errorf("%w: dataset %q has %v, table has %v", models.ErrSchema, dataset, stored, fields)
	}

	return nil
}

func insertRows(ctx context.Context, tx pgx.Tx, query string, runID uuid.UUID, name string, t *models.Table) error {
	if t.Len() == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := 0; i < t.Len(); i++ {
		doc, err := rowJSON(t.Row(i))
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		batch.Queue(query, runID, name, i, doc)
	}

	return execBatch(ctx, tx, batch)
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	br := tx.SendBatch(ctx, batch)

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}

	return br.Close()
}

// rowJSON кодирует запись; невалидные значения становятся null.
func rowJSON(r models.Record) ([]byte, error) {
	doc := make(map[string]*string, len(r))
	for k, v := range r {
		if v.Valid {
			s := v.String
			doc[k] = &s
		} else {
			doc[k] = nil
		}
	}

	return json.Marshal(doc)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}

// classify помечает ошибки отсутствующей схемы как storage.ErrNotMigrated.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return fmt.Errorf("%w: %w", storage.ErrNotMigrated, err)
	}

	return err
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Storage = (*Storage)(nil)
