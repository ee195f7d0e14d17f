package goresource

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Relationship declares a foreign-key reference from this resource's model
// to another registered resource.
type Relationship struct {
	// Resource is the registry name of the target resource.
	Resource string
	// Name is the model's association field, e.g. "Owner".
	Name string
	// FieldName is the message field carrying the target entity id, e.g. "owner".
	FieldName string
}

// Resource binds a GORM model struct to entity operations: get, create,
// field-mask update, delete and cursor-paginated listing. Entities are
// rendered into response messages with relationship fields resolved through
// the registry.
type Resource[T any] struct {
	db       *gorm.DB
	registry *Registry
	schema   *schema.Schema

	name       string
	modelName  string
	pluralName string

	idField        *schema.Field
	requestIDParam string

	relationships map[string]Relationship
	hiddenColumns map[string]struct{}
	readOnly      map[string]struct{}

	defaultOrdering Orderings
	defaultPageSize int
	maximumPageSize int
}

type resourceConfig struct {
	name            string
	modelName       string
	pluralName      string
	relationships   []Relationship
	readOnly        []string
	defaultOrdering Orderings
	defaultPageSize int
	maximumPageSize int
}

type ResourceOption func(*resourceConfig)

// WithName overrides the registry name of the resource.
func WithName(name string) ResourceOption {
	return func(c *resourceConfig) { c.name = name }
}

// WithModelName overrides the derived singular/plural names used in routes
// and messages.
func WithModelName(modelName, pluralName string) ResourceOption {
	return func(c *resourceConfig) {
		c.modelName = modelName
		c.pluralName = pluralName
	}
}

// WithRelationships declares foreign-key references to other resources.
func WithRelationships(relationships ...Relationship) ResourceOption {
	return func(c *resourceConfig) {
		c.relationships = append(c.relationships, relationships...)
	}
}

// WithReadOnlyColumns marks additional columns that create and update must
// never write. The primary key column is always read-only.
func WithReadOnlyColumns(columns ...string) ResourceOption {
	return func(c *resourceConfig) {
		c.readOnly = append(c.readOnly, columns...)
	}
}

// WithDefaultOrdering overrides the ordering used by list operations when
// the request does not specify one. Defaults to the primary key, ascending.
func WithDefaultOrdering(orderBy ...OrderBy) ResourceOption {
	return func(c *resourceConfig) { c.defaultOrdering = orderBy }
}

// WithPageSizes overrides the default and maximum page sizes of list
// operations.
func WithPageSizes(defaultPageSize, maximumPageSize int) ResourceOption {
	return func(c *resourceConfig) {
		c.defaultPageSize = defaultPageSize
		c.maximumPageSize = maximumPageSize
	}
}

// NewResource introspects the model type T and registers the resource in
// the registry. The model must have a primary key; every declared
// relationship must name an association field that exists on the model.
func NewResource[T any](db *gorm.DB, registry *Registry, opts ...ResourceOption) (*Resource[T], error) {
	s, err := schema.Parse(new(T), _schemaCache, schema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("cannot parse model schema: %w", err)
	}

	if s.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("model '%s' has no primary key", s.Name)
	}

	cfg := resourceConfig{
		modelName:       schema.NamingStrategy{}.ColumnName("", s.Name),
		pluralName:      s.Table,
		defaultPageSize: DefaultPageSize,
		maximumPageSize: MaximumPageSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		cfg.name = cfg.modelName
	}

	idField := s.PrioritizedPrimaryField

	r := &Resource[T]{
		db:              db,
		registry:        registry,
		schema:          s,
		name:            cfg.name,
		modelName:       cfg.modelName,
		pluralName:      cfg.pluralName,
		idField:         idField,
		requestIDParam:  fmt.Sprintf("%s_%s", cfg.modelName, idField.DBName),
		relationships:   make(map[string]Relationship, len(cfg.relationships)),
		hiddenColumns:   make(map[string]struct{}),
		readOnly:        map[string]struct{}{idField.DBName: {}},
		defaultOrdering: cfg.defaultOrdering,
		defaultPageSize: cfg.defaultPageSize,
		maximumPageSize: cfg.maximumPageSize,
	}

	if len(r.defaultOrdering) == 0 {
		r.defaultOrdering = Orderings{{Column: idField.DBName, Direction: DirectionASC}}
	}

	for _, column := range cfg.readOnly {
		r.readOnly[column] = struct{}{}
	}

	for _, relationship := range cfg.relationships {
		association, ok := s.Relationships.Relations[relationship.Name]
		if !ok {
			return nil, fmt.Errorf("model '%s' has no association '%s'", s.Name, relationship.Name)
		}

		// Foreign-key columns are managed through the relationship field and
		// stay out of formatted messages.
		for _, reference := range association.References {
			if reference.ForeignKey != nil {
				r.hiddenColumns[reference.ForeignKey.DBName] = struct{}{}
			}
		}

		r.relationships[relationship.FieldName] = relationship
	}

	if err = registry.Add(r); err != nil {
		return nil, err
	}

	return r, nil
}

// Name - implements EntityResource.
func (r *Resource[T]) Name() string { return r.name }

// ModelName returns the singular message name of the model.
func (r *Resource[T]) ModelName() string { return r.modelName }

// PluralName returns the plural name used as the route segment.
func (r *Resource[T]) PluralName() string { return r.pluralName }

// IDColumn returns the primary key column name.
func (r *Resource[T]) IDColumn() string { return r.idField.DBName }

// RequestIDParam returns the id parameter name used in request paths,
// "{model}_{id_column}".
func (r *Resource[T]) RequestIDParam() string { return r.requestIDParam }

// Get loads an entity by primary key. A missing entity is reported as
// ErrNotFound; other database failures propagate unchanged.
func (r *Resource[T]) Get(ctx context.Context, id any) (T, error) {
	var entity T

	err := r.preloadQuery(ctx).
		Where(fmt.Sprintf("%s = ?", r.idField.DBName), id).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity, fmt.Errorf("%w: %s '%v'", ErrNotFound, r.modelName, id)
	} else if err != nil {
		return entity, err
	}

	return entity, nil
}

// GetEntity - implements EntityResource.
func (r *Resource[T]) GetEntity(ctx context.Context, id any) (any, error) {
	return r.Get(ctx, id)
}

// EntityID - implements EntityResource.
func (r *Resource[T]) EntityID(entity any) any {
	rv := reflect.Indirect(reflect.ValueOf(entity))
	if !rv.IsValid() {
		return nil
	}

	value, _ := r.idField.ValueOf(context.Background(), rv)

	return value
}

// Create builds a new entity from message properties and inserts it.
// Read-only columns are skipped; relationship fields are resolved through
// the registry and must reference existing entities. A uniqueness violation
// is reported as ErrConflict.
func (r *Resource[T]) Create(ctx context.Context, properties map[string]any) (T, error) {
	var entity T

	rv := reflect.ValueOf(&entity).Elem()
	for _, fieldName := range sortedKeys(properties) {
		if _, ok := r.readOnly[fieldName]; ok {
			continue
		}

		if relationship, ok := r.relationships[fieldName]; ok {
			if err := r.setRelationship(ctx, rv, relationship, properties[fieldName]); err != nil {
				return entity, err
			}
			continue
		}

		field := r.schema.LookUpField(fieldName)
		if field == nil || field.DBName == "" {
			continue
		}

		if err := field.Set(ctx, rv, properties[fieldName]); err != nil {
			return entity, fmt.Errorf("cannot set field '%s': %w", fieldName, err)
		}
	}

	err := r.db.WithContext(ctx).Create(&entity).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return entity, fmt.Errorf("%w: %s already exists", ErrConflict, r.modelName)
	} else if err != nil {
		return entity, err
	}

	return entity, nil
}

// Update applies a field-mask driven partial update to an entity and saves
// it. With a non-empty mask, every masked writable field is set: fields
// missing from changes are reset to their zero value. With an empty mask
// only the fields present in changes are written.
func (r *Resource[T]) Update(ctx context.Context, entity T, changes map[string]any, mask FieldMask) (T, error) {
	rv := reflect.ValueOf(&entity).Elem()

	for _, field := range r.schema.Fields {
		if field.DBName == "" {
			continue
		}
		if _, ok := r.readOnly[field.DBName]; ok {
			continue
		}
		if _, ok := r.hiddenColumns[field.DBName]; ok {
			continue
		}
		if !mask.Matches(field.DBName) {
			continue
		}

		value, present := changes[field.DBName]
		if !present {
			if mask.IsEmpty() {
				continue
			}

			field.ReflectValueOf(ctx, rv).Set(reflect.Zero(field.FieldType))
			continue
		}

		if value == nil {
			field.ReflectValueOf(ctx, rv).Set(reflect.Zero(field.FieldType))
			continue
		}

		if err := field.Set(ctx, rv, value); err != nil {
			return entity, fmt.Errorf("cannot set field '%s': %w", field.DBName, err)
		}
	}

	for fieldName, relationship := range r.relationships {
		if !mask.Matches(fieldName) {
			continue
		}

		value, present := changes[fieldName]
		if !present && mask.IsEmpty() {
			continue
		}

		if err := r.setRelationship(ctx, rv, relationship, value); err != nil {
			return entity, err
		}
	}

	err := r.db.WithContext(ctx).Save(&entity).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return entity, fmt.Errorf("%w: %s already exists", ErrConflict, r.modelName)
	} else if err != nil {
		return entity, err
	}

	return entity, nil
}

// Delete removes an entity.
func (r *Resource[T]) Delete(ctx context.Context, entity T) error {
	return r.db.WithContext(ctx).Delete(&entity).Error
}

// List fetches one page of entities and formats them into a list response.
func (r *Resource[T]) List(ctx context.Context, request ListEntitiesRequest) (*ListEntitiesResponse, error) {
	page, err := r.Page(ctx, request)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(page.Items))
	for _, entity := range page.Items {
		message, err := r.Format(ctx, entity)
		if err != nil {
			return nil, err
		}

		items = append(items, message)
	}

	nextPageToken, err := page.NextPageToken()
	if err != nil {
		return nil, err
	}

	return &ListEntitiesResponse{
		NextPageToken: nextPageToken,
		Items:         items,
	}, nil
}

// Page fetches one page of entities: request filters and ordering applied,
// page size clamped to the resource maximum, pagination driven by the
// request page token.
func (r *Resource[T]) Page(ctx context.Context, request ListEntitiesRequest) (*PageResult[T], error) {
	pageSize := r.defaultPageSize
	if request.PageSize > 0 {
		pageSize = min(request.PageSize, r.maximumPageSize)
	}

	ordering := any(r.defaultOrdering)
	if len(request.Order) > 0 {
		ordering = request.Order
	}

	paginator, err := NewCursorPaginator[T](pageSize, ordering)
	if err != nil {
		return nil, err
	}

	query := r.preloadQuery(ctx)
	for _, column := range sortedKeys(request.Filters) {
		field := r.schema.LookUpField(column)
		if field == nil || field.DBName == "" {
			return nil, fmt.Errorf("%w: unknown filter column '%s'", ErrInvalidFilter, column)
		}

		query = query.Where(fmt.Sprintf("%s = ?", field.DBName), request.Filters[column])
	}

	return paginator.Paginate(query, request.PageToken)
}

// Format renders an entity into a response message: every visible column
// keyed by its database name, plus relationship fields rendered as the
// target entity's id.
func (r *Resource[T]) Format(ctx context.Context, entity T) (map[string]any, error) {
	message := make(map[string]any)

	rv := reflect.Indirect(reflect.ValueOf(entity))
	for _, field := range r.schema.Fields {
		if field.DBName == "" {
			continue
		}
		if _, ok := r.hiddenColumns[field.DBName]; ok {
			continue
		}

		value, _ := field.ValueOf(ctx, rv)
		message[field.DBName] = value
	}

	for fieldName, relationship := range r.relationships {
		association := r.schema.LookUpField(relationship.Name)
		if association == nil {
			return nil, fmt.Errorf("model '%s' has no association '%s'", r.schema.Name, relationship.Name)
		}

		value, zero := association.ValueOf(ctx, rv)
		if zero {
			continue
		}

		target, err := r.registry.Resolve(relationship.Resource)
		if err != nil {
			return nil, err
		}

		message[fieldName] = target.EntityID(value)
	}

	return message, nil
}

// FormatEntity - implements EntityResource.
func (r *Resource[T]) FormatEntity(ctx context.Context, entity any) (map[string]any, error) {
	typed, ok := entity.(T)
	if !ok {
		return nil, fmt.Errorf("unexpected entity type %T for resource '%s'", entity, r.name)
	}

	return r.Format(ctx, typed)
}

// columnMapping exposes the model's columns as sort aliases for ParseSort.
func (r *Resource[T]) columnMapping() ColumnMapping {
	mapping := make(ColumnMapping)
	for _, field := range r.schema.Fields {
		if field.DBName != "" {
			mapping[field.DBName] = field.DBName
		}
	}

	return mapping
}

func (r *Resource[T]) preloadQuery(ctx context.Context) *gorm.DB {
	query := r.db.WithContext(ctx)
	for _, relationship := range r.relationships {
		query = query.Preload(relationship.Name)
	}

	return query
}

// setRelationship resolves a referenced entity id through the registry and
// assigns it to the model's association field. A nil id clears the
// association.
func (r *Resource[T]) setRelationship(ctx context.Context, rv reflect.Value, relationship Relationship, id any) error {
	association := r.schema.LookUpField(relationship.Name)
	if association == nil {
		return fmt.Errorf("model '%s' has no association '%s'", r.schema.Name, relationship.Name)
	}

	if lo.IsNil(id) {
		association.ReflectValueOf(ctx, rv).Set(reflect.Zero(association.FieldType))

		// gorm does not null foreign keys for a cleared association on save,
		// so reset them explicitly.
		if relation, ok := r.schema.Relationships.Relations[relationship.Name]; ok {
			for _, reference := range relation.References {
				if reference.ForeignKey != nil {
					reference.ForeignKey.ReflectValueOf(ctx, rv).Set(reflect.Zero(reference.ForeignKey.FieldType))
				}
			}
		}

		return nil
	}

	target, err := r.registry.Resolve(relationship.Resource)
	if err != nil {
		return err
	}

	related, err := target.GetEntity(ctx, id)
	if err != nil {
		return err
	}

	return association.Set(ctx, rv, related)
}

func sortedKeys(m map[string]any) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)

	return keys
}
