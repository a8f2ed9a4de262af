package collector

import "github.com/pribylovaa/go-feed-collector/internal/models"

// aggregate накапливает дельты попыток: данные и лог растут только дописыванием.
type aggregate struct {
	data   *models.Table
	log    *models.Table
	schema models.LogSchema
}

func newAggregate(dataFields []string, schema models.LogSchema) *aggregate {
	return &aggregate{
		data:   models.NewTable(dataFields...),
		log:    schema.NewTable(),
		schema: schema,
	}
}

// add дописывает дельту попытки. Несовпадение схем — models.ErrSchema.
func (a *aggregate) add(st step) error {
	if err := a.data.Append(st.data); err != nil {
		return err
	}

	return a.log.Append(a.schema.Table(st.row))
}
