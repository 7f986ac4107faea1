package models

import "maps"

// EntityTypeOperacion единственный тип сущности, который обрабатывает outbox
const EntityTypeOperacion = "operacion"

// OpType тип операции в outbox
type OpType string

const (
	OpUpsert OpType = "upsert"
	OpDelete OpType = "delete"
)

// Reserved payload keys. They belong to the local bookkeeping or to the
// server and are never taken from caller-supplied data.
const (
	FieldID             = "id"
	FieldDirty          = "dirty"
	FieldDeleted        = "deleted"
	FieldUpdatedAtLocal = "updatedAtLocal"
	FieldUpdatedAt      = "updatedAt"
)

var reservedFields = []string{FieldID, FieldDirty, FieldDeleted, FieldUpdatedAtLocal, FieldUpdatedAt}

// Operacion представляет операцию импорта в локальном хранилище.
// Data содержит бизнес-поля (proveedor, activo, finanzas, logistica, documentos, historial),
// которые для ядра синхронизации непрозрачны.
type Operacion struct {
	Data           map[string]any `json:"data"`             // Data бизнес-поля операции
	ID             string         `json:"id"`               // ID задается вызывающим, неизменяемый
	UpdatedAtLocal int64          `json:"updated_at_local"` // UpdatedAtLocal время последнего локального изменения (epoch ms)
	Deleted        bool           `json:"deleted"`          // Deleted флаг soft delete
	Dirty          bool           `json:"dirty"`            // Dirty есть несинхронизированные изменения
}

// OutboxJob представляет одно ожидающее удаленное действие.
// Key присваивается хранилищем (порядок вставки).
type OutboxJob struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Op         OpType `json:"op"`
	Key        uint64 `json:"key"`
	CreatedAt  int64  `json:"created_at"`
}

// CollapseKey identifies the entity a job refers to.
func (j *OutboxJob) CollapseKey() string {
	return j.EntityType + ":" + j.EntityID
}

// Clone создает глубокую копию операции (payload копируется поверхностно по ключам).
func (o *Operacion) Clone() *Operacion {
	c := *o
	c.Data = maps.Clone(o.Data)
	if c.Data == nil {
		c.Data = map[string]any{}
	}
	return &c
}

// Get returns a payload field.
func (o *Operacion) Get(key string) (any, bool) {
	if o.Data == nil {
		return nil, false
	}
	v, ok := o.Data[key]
	return v, ok
}

// String returns a string payload field or "".
func (o *Operacion) String(key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

// Float returns a numeric payload field or 0.
func (o *Operacion) Float(key string) float64 {
	v, _ := o.Get(key)
	return toFloat(v)
}

// CleanPayload returns a copy of data without reserved keys.
func CleanPayload(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, k := range reservedFields {
		delete(out, k)
	}
	return out
}

// MergeOperacion накладывает поля next поверх prev (shallow merge).
//
// Field precedence: keys present in next override keys in prev, keys only in
// prev are kept. Reserved keys are dropped from both sides. The local flags
// are always recomputed: Deleted=false, Dirty=true, UpdatedAtLocal=now.
// prev may be nil.
func MergeOperacion(prev, next *Operacion, now int64) *Operacion {
	data := map[string]any{}
	if prev != nil {
		maps.Copy(data, CleanPayload(prev.Data))
	}
	maps.Copy(data, CleanPayload(next.Data))

	return &Operacion{
		ID:             next.ID,
		Data:           data,
		Deleted:        false,
		Dirty:          true,
		UpdatedAtLocal: now,
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case jsonNumber:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

type jsonNumber interface {
	Float64() (float64, error)
}
