package models

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrSchema — попытка объединить таблицы с разными наборами полей.
// Это ошибка программирования: прогон прерывается, повторов нет.
var ErrSchema = errors.New("schema mismatch")

// Value — опциональное строковое значение ячейки.
// Valid == false соответствует отсутствующему значению (null).
type Value struct {
	String string
	Valid  bool
}

// Str возвращает заполненное значение.
func Str(s string) Value {
	return Value{String: s, Valid: true}
}

// Null возвращает пустое (null) значение.
func Null() Value {
	return Value{}
}

// Record — одна строка результата: поле -> значение.
// Отсутствующий ключ эквивалентен null.
type Record map[string]Value

// Table — колоночная таблица (Dataset или LogTable).
//
// Инвариант: все колонки имеют одинаковую длину, равную Len().
// Порядок полей фиксируется при создании и используется при выводе.
type Table struct {
	fields []string
	cols   map[string][]Value
	rows   int
}

// NewTable создаёт пустую таблицу с заданным набором полей.
// Повторы в fields схлопываются, порядок первого вхождения сохраняется.
func NewTable(fields ...string) *Table {
	t := &Table{cols: make(map[string][]Value, len(fields))}
	for _, f := range fields {
		if _, ok := t.cols[f]; ok {
			continue
		}
		t.fields = append(t.fields, f)
		t.cols[f] = []Value{}
	}

	return t
}

// FromRecords собирает таблицу с полями fields из набора записей.
// Поля, отсутствующие в записи, заполняются null; лишние ключи записи игнорируются.
func FromRecords(fields []string, records []Record) *Table {
	t := NewTable(fields...)
	for _, r := range records {
		t.AppendRecord(r)
	}

	return t
}

// Fields возвращает копию списка полей в порядке объявления.
func (t *Table) Fields() []string {
	return slices.Clone(t.fields)
}

// Len возвращает число строк.
func (t *Table) Len() int {
	return t.rows
}

// Has сообщает, объявлено ли поле в таблице.
func (t *Table) Has(field string) bool {
	_, ok := t.cols[field]
	return ok
}

// Column возвращает копию колонки field (nil, если поля нет).
func (t *Table) Column(field string) []Value {
	col, ok := t.cols[field]
	if !ok {
		return nil
	}

	return slices.Clone(col)
}

// Strings возвращает колонку как строки; null превращается в "".
func (t *Table) Strings(field string) []string {
	col := t.cols[field]
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = v.String
	}

	return out
}

// Row возвращает i-ю строку как Record.
func (t *Table) Row(i int) Record {
	r := make(Record, len(t.fields))
	for _, f := range t.fields {
		r[f] = t.cols[f][i]
	}

	return r
}

// AppendRecord добавляет одну строку.
func (t *Table) AppendRecord(r Record) {
	for _, f := range t.fields {
		t.cols[f] = append(t.cols[f], r[f])
	}
	t.rows++
}

// AddColumn добавляет новое поле, заполненное значением v для каждой строки.
// Если поле уже есть, его значения перезаписываются.
func (t *Table) AddColumn(field string, v Value) {
	col := make([]Value, t.rows)
	for i := range col {
		col[i] = v
	}

	if _, ok := t.cols[field]; !ok {
		t.fields = append(t.fields, field)
	}
	t.cols[field] = col
}

// Append дописывает строки other в конец t поколоночно.
// Наборы полей обязаны совпадать (порядок не важен), иначе ErrSchema.
func (t *Table) Append(other *Table) error {
	if err := sameSchema(t, other); err != nil {
		return err
	}

	for _, f := range t.fields {
		t.cols[f] = append(t.cols[f], other.cols[f]...)
	}
	t.rows += other.rows

	return nil
}

// Clone возвращает глубокую копию таблицы.
func (t *Table) Clone() *Table {
	c := &Table{
		fields: slices.Clone(t.fields),
		cols:   make(map[string][]Value, len(t.cols)),
		rows:   t.rows,
	}
	for f, col := range t.cols {
		c.cols[f] = slices.Clone(col)
	}

	return c
}

// Merge — чистая функция объединения: возвращает новую таблицу a+b, не меняя входы.
func Merge(a, b *Table) (*Table, error) {
	out := a.Clone()
	if err := out.Append(b); err != nil {
		return nil, err
	}

	return out, nil
}

func sameSchema(a, b *Table) error {
	if len(a.fields) == len(b.fields) {
		ok := true
		for _, f := range a.fields {
			if !b.Has(f) {
				ok = false
				break
			}
		}
		if ok {
			return nil
		}
	}

	left, right := a.Fields(), b.Fields()
	sort.Strings(left)
	sort.Strings(right)

	return fmt.Errorf("%w: %v vs %v", ErrSchema, left, right)
}
