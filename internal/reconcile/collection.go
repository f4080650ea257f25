package reconcile

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/resolver"
	"github.com/iudanet/docsync/internal/validation"
)

// DefaultFields поля, которые есть у каждого документа любой коллекции
var DefaultFields = []string{
	models.FieldID,
	models.FieldCreatedAt,
	models.FieldUpdatedAt,
	models.FieldDeleted,
	models.FieldSchemaVersion,
}

// Validator collection-level check run after the ownership check
type Validator func(doc *models.Document, actorID string) bool

// Transform rewrites an outgoing document for the actor. Returning nil
// hides the document from the actor.
type Transform func(doc *models.Document, actorID string) *models.Document

// ConflictHandler merges competing versions. Returning nil declines the merge.
type ConflictHandler func(server, client *models.Document, actorID string) *models.Document

// Collection описание коллекции: политика конфликтов, владение, валидация
type Collection struct {
	validator   Validator
	transform   Transform
	handler     ConflictHandler
	name        string
	fields      []string
	required    []string
	strategy    resolver.Strategy
	ownerScoped bool
}

// Name returns the collection name
func (c *Collection) Name() string { return c.name }

// Fields returns the default fields plus the required payload fields
func (c *Collection) Fields() []string { return append([]string(nil), c.fields...) }

// OwnerScoped reports whether actors only see and write their own documents
func (c *Collection) OwnerScoped() bool { return c.ownerScoped }

// Policy returns the conflict policy
func (c *Collection) Policy() resolver.Policy { return c.strategy.Policy }

// Strategy returns the resolver strategy with the conflict handler bound to the actor
func (c *Collection) Strategy(actorID string) resolver.Strategy {
	s := c.strategy
	if c.handler != nil {
		handler := c.handler
		s.Merge = func(server, client *models.Document) (*models.Document, bool) {
			merged := handler(server, client, actorID)
			return merged, merged != nil
		}
	}
	return s
}

func (c *Collection) validate(doc *models.Document, actorID string) error {
	for _, field := range c.required {
		if _, ok := doc.Payload[field]; !ok && !doc.Deleted {
			return fmt.Errorf("%w: missing required field %q", ErrValidationFailed, field)
		}
	}
	if c.validator != nil && !c.validator(doc, actorID) {
		return fmt.Errorf("%w: rejected by collection %q", ErrValidationFailed, c.name)
	}
	return nil
}

func (c *Collection) outgoing(doc *models.Document, actorID string) *models.Document {
	if c.transform == nil {
		return doc
	}
	return c.transform(doc.Clone(), actorID)
}

// CollectionBuilder собирает Collection
type CollectionBuilder struct {
	c Collection
}

// NewCollection starts a builder for a server-wins collection
func NewCollection(name string) *CollectionBuilder {
	return &CollectionBuilder{c: Collection{
		name:     name,
		strategy: resolver.Strategy{Policy: resolver.PolicyServerWins},
	}}
}

// WithStrategy sets the conflict policy
func (b *CollectionBuilder) WithStrategy(policy resolver.Policy) *CollectionBuilder {
	b.c.strategy.Policy = policy
	return b
}

// TiesFavorServer makes equal updatedAt a conflict instead of a client win
func (b *CollectionBuilder) TiesFavorServer() *CollectionBuilder {
	b.c.strategy.TiesFavorServer = true
	return b
}

// OwnerScoped restricts actors to their own documents
func (b *CollectionBuilder) OwnerScoped() *CollectionBuilder {
	b.c.ownerScoped = true
	return b
}

// RequireFields declares payload fields every live document must carry
func (b *CollectionBuilder) RequireFields(fields ...string) *CollectionBuilder {
	b.c.required = append(b.c.required, fields...)
	return b
}

func (b *CollectionBuilder) WithValidator(v Validator) *CollectionBuilder {
	b.c.validator = v
	return b
}

func (b *CollectionBuilder) WithTransform(t Transform) *CollectionBuilder {
	b.c.transform = t
	return b
}

// WithConflictHandler sets the merge handler and switches the policy to custom
func (b *CollectionBuilder) WithConflictHandler(h ConflictHandler) *CollectionBuilder {
	b.c.handler = h
	b.c.strategy.Policy = resolver.PolicyCustom
	return b
}

// Build validates the description and returns the collection
func (b *CollectionBuilder) Build() (*Collection, error) {
	c := b.c
	if err := validation.ValidateCollectionName(c.name); err != nil {
		return nil, err
	}
	if _, err := resolver.ParsePolicy(string(c.strategy.Policy)); err != nil {
		return nil, fmt.Errorf("collection %q: %w", c.name, err)
	}
	if c.strategy.Policy == resolver.PolicyCustom && c.handler == nil {
		return nil, fmt.Errorf("collection %q: custom policy requires a conflict handler", c.name)
	}

	fields := append([]string(nil), DefaultFields...)
	if c.ownerScoped {
		fields = append(fields, models.FieldOwnerID)
	}
	seen := make(map[string]bool, len(c.required))
	required := make([]string, 0, len(c.required))
	for _, f := range c.required {
		if models.IsReserved(f) {
			return nil, fmt.Errorf("collection %q: required field %q is reserved", c.name, f)
		}
		if !seen[f] {
			seen[f] = true
			required = append(required, f)
		}
	}
	sort.Strings(required)
	c.required = required
	c.fields = append(fields, required...)

	return &c, nil
}

// Registry набор коллекций сервера
type Registry struct {
	collections map[string]*Collection
	mu          sync.RWMutex
}

// NewRegistry creates a registry with the given collections
func NewRegistry(collections ...*Collection) (*Registry, error) {
	r := &Registry{collections: make(map[string]*Collection)}
	for _, c := range collections {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a collection; names must be unique
func (r *Registry) Register(c *Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.collections[c.name]; exists {
		return fmt.Errorf("collection %q already registered", c.name)
	}
	r.collections[c.name] = c
	return nil
}

// Get returns the collection by name
func (r *Registry) Get(name string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[name]
	return c, ok
}

// Names returns registered collection names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.collections))
	for name := range r.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
