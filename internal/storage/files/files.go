// files — хранилище на локальной файловой системе: CSV для данных и лога,
// TXT для текстового лога, YAML для пула прокси.
package files

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/proxies"
	"github.com/pribylovaa/go-feed-collector/internal/storage"

	"gopkg.in/yaml.v3"
)

// Storage пишет файлы в dataDir/logDir; пул прокси — в proxiesFile.
type Storage struct {
	mu          sync.Mutex
	dataDir     string
	logDir      string
	proxiesFile string
}

// proxyFile — формат файла пула: список адресов под ключом items.
type proxyFile struct {
	Items []string `yaml:"items"`
}

// New создаёт каталоги для данных и лога.
func New(dataDir, logDir, proxiesFile string) (*Storage, error) {
	const op = "storage.files.New"

	for _, dir := range []string{dataDir, logDir, filepath.Dir(proxiesFile)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: mkdir %s: %w", op, dir, err)
		}
	}

	return &Storage{dataDir: dataDir, logDir: logDir, proxiesFile: proxiesFile}, nil
}

// SaveRecords дописывает строки в dataDir/name.csv.
func (s *Storage) SaveRecords(_ context.Context, _ uuid.UUID, name string, t *models.Table) error {
	const op = "storage.files.SaveRecords"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := appendCSV(filepath.Join(s.dataDir, name+".csv"), t); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveLog дописывает logDir/name.csv и logDir/name.txt.
func (s *Storage) SaveLog(_ context.Context, _ uuid.UUID, name string, t *models.Table, text []string) error {
	const op = "storage.files.SaveLog"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := appendCSV(filepath.Join(s.logDir, name+".csv"), t); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := appendLines(filepath.Join(s.logDir, name+".txt"), text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// LoadProxies читает пул из YAML.
func (s *Storage) LoadProxies(_ context.Context) ([]models.Proxy, error) {
	const op = "storage.files.LoadProxies"

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.proxiesFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var pf proxyFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", op, s.proxiesFile, err)
	}

	out := make([]models.Proxy, 0, len(pf.Items))
	for _, a := range pf.Items {
		out = append(out, models.Proxy{Address: a, Source: proxies.StoredSource})
	}

	return out, nil
}

// SaveProxies атомарно заменяет файл пула.
func (s *Storage) SaveProxies(_ context.Context, list []models.Proxy) error {
	const op = "storage.files.SaveProxies"

	s.mu.Lock()
	defer s.mu.Unlock()

	pf := proxyFile{Items: make([]string, 0, len(list))}
	for _, p := range list {
		pf.Items = append(pf.Items, p.Address)
	}

	b, err := yaml.Marshal(pf)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	tmp := s.proxiesFile + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}
	if err := os.Rename(tmp, s.proxiesFile); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%s: rename: %w", op, err)
	}

	return nil
}

// Close ничего не держит открытым.
func (s *Storage) Close() {}

// appendCSV дописывает таблицу; шапка пишется, если файла нет или он пуст.
// Если шапка есть и не совпадает с полями таблицы — models.ErrSchema.
func appendCSV(path string, t *models.Table) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fields := t.Fields()

	header, err := csv.NewReader(f).Read()
	switch {
	case errors.Is(err, io.EOF):
		header = nil
	case err != nil:
		return fmt.Errorf("read header %s: %w", path, err)
	case !slices.Equal(header, fields):
		return fmt.Errorf("%s: %w: file has %v, table has %v", path, models.ErrSchema, header, fields)
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if header == nil {
		if err := w.Write(fields); err != nil {
			return fmt.Errorf("write header %s: %w", path, err)
		}
	}

	rec := make([]string, len(fields))
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		for j, fld := range fields {
			rec[j] = row[fld].String
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return nil
}

func appendLines(path string, lines []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	for _, l := range lines {
		if _, err := io.WriteString(f, l+"\n"); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	return nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Storage = (*Storage)(nil)
