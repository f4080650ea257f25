package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidDocument возвращается, если документ нарушает инварианты модели
var ErrInvalidDocument = errors.New("invalid document")

// Зарезервированные ключи плоского JSON представления документа.
// Все остальные ключи верхнего уровня относятся к Payload.
const (
	FieldID            = "id"
	FieldOwnerID       = "ownerId"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
	FieldDeleted       = "deleted"
	FieldSchemaVersion = "schemaVersion"
)

// ReservedFields перечисляет поля, которые есть у каждого документа
var ReservedFields = []string{
	FieldID,
	FieldOwnerID,
	FieldCreatedAt,
	FieldUpdatedAt,
	FieldDeleted,
	FieldSchemaVersion,
}

// Fields хранит пользовательские поля документа в сыром JSON виде
type Fields map[string]json.RawMessage

// Clone создает глубокую копию полей
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		raw := make(json.RawMessage, len(v))
		copy(raw, v)
		out[k] = raw
	}
	return out
}

// Keys возвращает отсортированный список ключей
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document is a versioned document inside a collection.
// UpdatedAt and CreatedAt are logical timestamps (milliseconds); UpdatedAt
// never decreases across writes of the same document.
type Document struct {
	Payload       Fields // Payload пользовательские поля документа
	ID            string // ID уникальный ключ внутри коллекции
	OwnerID       string // OwnerID владелец документа (опционально)
	CreatedAt     int64  // CreatedAt логическое время создания
	UpdatedAt     int64  // UpdatedAt логическое время последней записи
	SchemaVersion int    // SchemaVersion версия схемы payload
	Deleted       bool   // Deleted tombstone флаг (soft delete)
}

// NewDocument создает документ и проверяет инварианты модели
func NewDocument(id, ownerID string, updatedAt int64, payload Fields) (*Document, error) {
	doc := &Document{
		ID:        id,
		OwnerID:   ownerID,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
		Payload:   payload,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate проверяет инварианты: непустой id, updatedAt > 0, schemaVersion >= 0
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDocument)
	}
	if d.UpdatedAt <= 0 {
		return fmt.Errorf("%w: updatedAt must be positive, got %d", ErrInvalidDocument, d.UpdatedAt)
	}
	if d.SchemaVersion < 0 {
		return fmt.Errorf("%w: negative schemaVersion %d", ErrInvalidDocument, d.SchemaVersion)
	}
	for key := range d.Payload {
		if IsReserved(key) {
			return fmt.Errorf("%w: payload uses reserved field %q", ErrInvalidDocument, key)
		}
	}
	return nil
}

// Clone создает глубокую копию документа
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Payload = d.Payload.Clone()
	return &clone
}

// Tombstone возвращает удаленную копию документа с новым updatedAt.
// Payload сохраняется, чтобы удаление можно было распространить на другие реплики.
func (d *Document) Tombstone(updatedAt int64) *Document {
	t := d.Clone()
	t.Deleted = true
	t.UpdatedAt = updatedAt
	return t
}

// Equal сравнивает два документа по всем полям, включая payload
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.ID != other.ID || d.OwnerID != other.OwnerID ||
		d.CreatedAt != other.CreatedAt || d.UpdatedAt != other.UpdatedAt ||
		d.Deleted != other.Deleted || d.SchemaVersion != other.SchemaVersion {
		return false
	}
	if len(d.Payload) != len(other.Payload) {
		return false
	}
	for k, v := range d.Payload {
		ov, ok := other.Payload[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return true
}

// MarshalJSON кодирует документ в плоский JSON объект:
// зарезервированные поля и payload находятся на одном уровне.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Payload)+len(ReservedFields))
	for k, v := range d.Payload {
		out[k] = v
	}

	set := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		out[key] = raw
		return nil
	}

	if err := set(FieldID, d.ID); err != nil {
		return nil, err
	}
	if d.OwnerID != "" {
		if err := set(FieldOwnerID, d.OwnerID); err != nil {
			return nil, err
		}
	}
	if err := set(FieldCreatedAt, d.CreatedAt); err != nil {
		return nil, err
	}
	if err := set(FieldUpdatedAt, d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := set(FieldDeleted, d.Deleted); err != nil {
		return nil, err
	}
	if err := set(FieldSchemaVersion, d.SchemaVersion); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

// UnmarshalJSON разбирает плоский JSON объект в документ
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}

	doc := Document{}
	get := func(key string, dst any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		if string(v) == "null" {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrInvalidDocument, key, err)
		}
		return nil
	}

	if err := get(FieldID, &doc.ID); err != nil {
		return err
	}
	if err := get(FieldOwnerID, &doc.OwnerID); err != nil {
		return err
	}
	if err := get(FieldCreatedAt, &doc.CreatedAt); err != nil {
		return err
	}
	if err := get(FieldUpdatedAt, &doc.UpdatedAt); err != nil {
		return err
	}
	if err := get(FieldDeleted, &doc.Deleted); err != nil {
		return err
	}
	if err := get(FieldSchemaVersion, &doc.SchemaVersion); err != nil {
		return err
	}

	if len(raw) > 0 {
		doc.Payload = make(Fields, len(raw))
		for k, v := range raw {
			// Приводим значения к компактной форме, чтобы сравнение было побайтовым
			var buf bytes.Buffer
			if err := json.Compact(&buf, v); err != nil {
				return fmt.Errorf("%w: field %s: %v", ErrInvalidDocument, k, err)
			}
			doc.Payload[k] = json.RawMessage(buf.Bytes())
		}
	}

	*d = doc
	return nil
}

// IsReserved сообщает, что ключ зарезервирован моделью документа
func IsReserved(key string) bool {
	for _, f := range ReservedFields {
		if f == key {
			return true
		}
	}
	return false
}
