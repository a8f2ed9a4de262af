package models

import "slices"

// Служебные колонки лога.
const (
	LogSource     = "source"
	LogStatusCode = "STATUS_CODE"
	LogError      = "ERROR"
	LogTry        = "TRY"
	LogProxyID    = "PROXY_ID"
	LogProxy      = "PROXY"
	LogTime       = "TIME"
)

// IsLogColumn сообщает, что имя занято служебной колонкой лога.
func IsLogColumn(name string) bool {
	switch name {
	case LogSource, LogStatusCode, LogError, LogTry, LogProxyID, LogProxy, LogTime:
		return true
	}

	return false
}

// LogRow — диагностика одной попытки загрузки одного элемента.
type LogRow struct {
	Source     string
	StatusCode string
	Error      string
	// Try — номер попытки, начиная с 1.
	Try string
	// ProxyID — позиция прокси в пуле, начиная с 1; пусто без прокси.
	ProxyID string
	Proxy   string
	// Counts — число непустых значений по каждому учитываемому полю.
	// Пустая строка означает, что подсчёт не выполнялся (ошибка загрузки).
	Counts map[string]string
}

// LogSchema описывает набор колонок лога для прогона.
type LogSchema struct {
	// WithProxy добавляет колонки PROXY_ID и PROXY.
	WithProxy bool
	// CountFields — поля записи, для которых ведётся счётчик.
	// Имена служебных колонок пропускаются: их значения задаёт сама попытка.
	CountFields []string
}

// Fields возвращает колонки лога в порядке вывода.
func (s LogSchema) Fields() []string {
	fields := []string{LogSource, LogStatusCode, LogError, LogTry}
	if s.WithProxy {
		fields = append(fields, LogProxyID, LogProxy)
	}

	return append(fields, s.counted()...)
}

// counted возвращает учитываемые поля без служебных колонок и повторов.
func (s LogSchema) counted() []string {
	out := make([]string, 0, len(s.CountFields))
	for _, f := range s.CountFields {
		if IsLogColumn(f) || slices.Contains(out, f) {
			continue
		}
		out = append(out, f)
	}

	return out
}

// NewTable создаёт пустую таблицу лога.
func (s LogSchema) NewTable() *Table {
	return NewTable(s.Fields()...)
}

// Table превращает строку лога в таблицу из одной строки.
// Все значения лога заполнены (возможно, пустой строкой).
func (s LogSchema) Table(row LogRow) *Table {
	t := s.NewTable()

	rec := Record{
		LogSource:     Str(row.Source),
		LogStatusCode: Str(row.StatusCode),
		LogError:      Str(row.Error),
		LogTry:        Str(row.Try),
	}
	if s.WithProxy {
		rec[LogProxyID] = Str(row.ProxyID)
		rec[LogProxy] = Str(row.Proxy)
	}
	for _, f := range s.counted() {
		rec[f] = Str(row.Counts[f])
	}
	t.AppendRecord(rec)

	return t
}
