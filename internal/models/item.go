// models содержит доменные сущности feed-collector.
// Эти типы используются движком сбора, хранилищами и оркестратором.
package models

// Поля записи, которые проставляют все экстракторы.
const (
	FieldTitle     = "title"
	FieldSummary   = "summary"
	FieldDate      = "date"
	FieldLink      = "link"
	FieldType      = "type"
	FieldSource    = "source"
	FieldFetchedAt = "fetched_at"
)

// FetchItem — единица работы: источник, адрес и правила извлечения.
//
// Особенности:
//   - идентифицируется позицией во входном списке;
//   - не меняется в течение прогона.
type FetchItem struct {
	// Source - имя источника (попадает в каждую запись и строку лога).
	Source string
	// URL - адрес ленты/страницы.
	URL string
	// ExtractorType - имя экстрактора в реестре (rss, html, ...).
	ExtractorType string
	// ExtractorConfig - параметры экстрактора (теги, селекторы).
	ExtractorConfig map[string]string
	// RequiresProxy - источник доступен только через прокси.
	RequiresProxy bool
}
