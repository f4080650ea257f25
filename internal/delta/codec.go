// Package delta computes and applies structural diffs between two versions
// of the same document. A diff that is not worth sending is replaced with
// the full document.
package delta

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/crypto/blake2b"

	"github.com/iudanet/docsync/internal/models"
)

// DefaultThreshold доля размера полного документа, после которой дельта не выгодна
const DefaultThreshold = 0.6

var (
	// ErrDeltaApply дельта не может быть применена к данной базовой версии
	ErrDeltaApply = errors.New("delta apply failed")

	// ErrUnrelatedDocuments дельта запрошена для разных логических документов
	ErrUnrelatedDocuments = errors.New("delta between unrelated documents")
)

// Kind тип единицы передачи
type Kind int

const (
	// KindFull передается документ целиком
	KindFull Kind = iota
	// KindDelta передается дельта относительно базовой версии
	KindDelta
)

func (k Kind) String() string {
	if k == KindDelta {
		return "delta"
	}
	return "full"
}

// Delta структурная разница между двумя версиями документа.
// Гранулярность: поля верхнего уровня payload; строковые поля могут
// передаваться как diff-match-patch патч.
type Delta struct {
	Set           models.Fields     `json:"set,omitempty"`
	TextPatches   map[string]string `json:"patches,omitempty"`
	DocumentID    string            `json:"id"`
	BaseRevision  string            `json:"baseRevision"`
	OwnerID       string            `json:"ownerId,omitempty"`
	Unset         []string          `json:"unset,omitempty"`
	BaseVersion   int64             `json:"baseVersion"`
	CreatedAt     int64             `json:"createdAt"`
	UpdatedAt     int64             `json:"updatedAt"`
	SchemaVersion int               `json:"schemaVersion"`
	Deleted       bool              `json:"deleted"`
}

// TransferUnit либо полный документ, либо дельта
type TransferUnit struct {
	Document *models.Document
	Delta    *Delta
	Kind     Kind
}

// Full оборачивает документ в единицу передачи
func Full(doc *models.Document) TransferUnit {
	return TransferUnit{Kind: KindFull, Document: doc}
}

// Codec вычисляет и применяет дельты
type Codec struct {
	dmp       *diffmatchpatch.DiffMatchPatch
	threshold float64
}

// Option настраивает Codec
type Option func(*Codec)

// WithThreshold задает порог выгодности дельты (доля от полного размера)
func WithThreshold(threshold float64) Option {
	return func(c *Codec) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

// NewCodec создает кодек с порогом по умолчанию 0.6
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		dmp:       diffmatchpatch.New(),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Threshold возвращает текущий порог
func (c *Codec) Threshold() float64 {
	return c.threshold
}

// ShouldSendFull сообщает, что дельта размера deltaSize не выгодна
// по сравнению с полным документом размера fullSize.
func (c *Codec) ShouldSendFull(deltaSize, fullSize int) bool {
	return float64(deltaSize) > c.threshold*float64(fullSize)
}

// ComputeTransferUnit строит дельту current относительно previous.
// Возвращает Full(current), если previous отсутствует или дельта не выгодна.
func (c *Codec) ComputeTransferUnit(previous, current *models.Document) (TransferUnit, error) {
	if current == nil {
		return TransferUnit{}, errors.New("compute transfer unit: nil current document")
	}
	if previous == nil {
		return Full(current), nil
	}
	if previous.ID != current.ID {
		return TransferUnit{}, fmt.Errorf("%w: %q vs %q", ErrUnrelatedDocuments, previous.ID, current.ID)
	}

	revision, err := Revision(previous)
	if err != nil {
		return TransferUnit{}, err
	}

	d := &Delta{
		DocumentID:    current.ID,
		OwnerID:       current.OwnerID,
		BaseVersion:   previous.UpdatedAt,
		BaseRevision:  revision,
		CreatedAt:     current.CreatedAt,
		UpdatedAt:     current.UpdatedAt,
		SchemaVersion: current.SchemaVersion,
		Deleted:       current.Deleted,
	}

	for _, key := range current.Payload.Keys() {
		value := current.Payload[key]
		old, existed := previous.Payload[key]
		if existed && bytes.Equal(old, value) {
			continue
		}
		if existed {
			if patch, ok := c.textPatch(old, value); ok {
				if d.TextPatches == nil {
					d.TextPatches = make(map[string]string)
				}
				d.TextPatches[key] = patch
				continue
			}
		}
		if d.Set == nil {
			d.Set = make(models.Fields)
		}
		d.Set[key] = value
	}

	for _, key := range previous.Payload.Keys() {
		if _, ok := current.Payload[key]; !ok {
			d.Unset = append(d.Unset, key)
		}
	}

	fullBytes, err := json.Marshal(current)
	if err != nil {
		return TransferUnit{}, fmt.Errorf("failed to marshal document: %w", err)
	}
	deltaBytes, err := json.Marshal(d)
	if err != nil {
		return TransferUnit{}, fmt.Errorf("failed to marshal delta: %w", err)
	}

	if c.ShouldSendFull(len(deltaBytes), len(fullBytes)) {
		return Full(current), nil
	}

	return TransferUnit{Kind: KindDelta, Delta: d}, nil
}

// Apply восстанавливает документ из base и единицы передачи.
// Full возвращает копию своего документа, Delta проверяет базовую версию.
func (c *Codec) Apply(base *models.Document, unit TransferUnit) (*models.Document, error) {
	switch unit.Kind {
	case KindFull:
		if unit.Document == nil {
			return nil, fmt.Errorf("%w: full unit without document", ErrDeltaApply)
		}
		return unit.Document.Clone(), nil
	case KindDelta:
		return c.ApplyDelta(base, unit.Delta)
	default:
		return nil, fmt.Errorf("%w: unknown unit kind %d", ErrDeltaApply, unit.Kind)
	}
}

// ApplyDelta применяет дельту к base
func (c *Codec) ApplyDelta(base *models.Document, d *Delta) (*models.Document, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil delta", ErrDeltaApply)
	}
	if base == nil {
		return nil, fmt.Errorf("%w: no base for document %q", ErrDeltaApply, d.DocumentID)
	}
	if base.ID != d.DocumentID {
		return nil, fmt.Errorf("%w: base %q does not match delta %q", ErrDeltaApply, base.ID, d.DocumentID)
	}
	if base.UpdatedAt != d.BaseVersion {
		return nil, fmt.Errorf("%w: base version %d, delta expects %d", ErrDeltaApply, base.UpdatedAt, d.BaseVersion)
	}
	revision, err := Revision(base)
	if err != nil {
		return nil, err
	}
	if revision != d.BaseRevision {
		return nil, fmt.Errorf("%w: base revision mismatch for %q", ErrDeltaApply, d.DocumentID)
	}

	payload := base.Payload.Clone()
	if payload == nil {
		payload = make(models.Fields)
	}
	for _, key := range d.Unset {
		delete(payload, key)
	}
	for key, value := range d.Set {
		raw := make(json.RawMessage, len(value))
		copy(raw, value)
		payload[key] = raw
	}

	keys := make([]string, 0, len(d.TextPatches))
	for key := range d.TextPatches {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, err := c.applyTextPatch(payload[key], d.TextPatches[key])
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrDeltaApply, key, err)
		}
		payload[key] = value
	}

	if len(payload) == 0 {
		payload = nil
	}

	return &models.Document{
		ID:            d.DocumentID,
		OwnerID:       d.OwnerID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		SchemaVersion: d.SchemaVersion,
		Deleted:       d.Deleted,
		Payload:       payload,
	}, nil
}

// Revision возвращает тег ревизии документа: BLAKE2b-256 от канонического JSON
func Revision(doc *models.Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document for revision: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// textPatch строит патч для строкового поля, если он короче нового значения
// и восстанавливает его байт в байт.
func (c *Codec) textPatch(oldRaw, newRaw json.RawMessage) (string, bool) {
	var oldText, newText string
	if json.Unmarshal(oldRaw, &oldText) != nil || json.Unmarshal(newRaw, &newText) != nil {
		return "", false
	}

	diffs := c.dmp.DiffMain(oldText, newText, false)
	patches := c.dmp.PatchMake(oldText, diffs)
	text := c.dmp.PatchToText(patches)
	if len(text) >= len(newRaw) {
		return "", false
	}

	applied, ok := c.dmp.PatchApply(patches, oldText)
	for _, okPatch := range ok {
		if !okPatch {
			return "", false
		}
	}
	encoded, err := json.Marshal(applied)
	if err != nil || !bytes.Equal(encoded, newRaw) {
		return "", false
	}

	return text, true
}

func (c *Codec) applyTextPatch(baseRaw json.RawMessage, patchText string) (json.RawMessage, error) {
	var baseText string
	if err := json.Unmarshal(baseRaw, &baseText); err != nil {
		return nil, fmt.Errorf("base value is not a string: %w", err)
	}

	patches, err := c.dmp.PatchFromText(patchText)
	if err != nil {
		return nil, fmt.Errorf("invalid patch: %w", err)
	}

	applied, results := c.dmp.PatchApply(patches, baseText)
	for i, ok := range results {
		if !ok {
			return nil, fmt.Errorf("patch %d did not apply", i)
		}
	}

	encoded, err := json.Marshal(applied)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patched value: %w", err)
	}
	return encoded, nil
}
