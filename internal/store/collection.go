package store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"bookshare/internal/changefeed"
)

// Filter holds equality conditions keyed by column name. A slice value
// matches any of its elements.
type Filter map[string]any

// Fields is a partial record keyed by column name.
type Fields map[string]any

// Collection is a typed view over one table.
type Collection[T any] struct {
	s       *Store
	name    string
	preload []string
}

func (c Collection[T]) Name() string {
	return c.name
}

// Preload returns a copy of c that loads the named associations on reads.
func (c Collection[T]) Preload(assoc ...string) Collection[T] {
	c.preload = append(append([]string(nil), c.preload...), assoc...)
	return c
}

func (c Collection[T]) read(ctx context.Context) *gorm.DB {
	q := c.s.db.WithContext(ctx)
	for _, assoc := range c.preload {
		q = q.Preload(assoc)
	}
	return q
}

func (c Collection[T]) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("collection", c.name))
	return c.s.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error) error {
	err = classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Create inserts doc. Ids are assigned by the model's BeforeCreate hook.
func (c Collection[T]) Create(ctx context.Context, doc *T) error {
	ctx, span := c.span(ctx, "create")
	defer span.End()

	return c.s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.WithContext(ctx).Create(doc).Error; err != nil {
			return fmt.Errorf("create %s: %w", c.name, fail(span, err))
		}
		id := documentID(doc)
		span.SetAttributes(attribute.String("document.id", id))
		tx.record(tx.change(c.name, changefeed.OpCreate, id, nil, doc))
		return nil
	})
}

func (c Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	var doc T
	if err := c.read(ctx).Where("id = ?", id).Take(&doc).Error; err != nil {
		return nil, fmt.Errorf("get %s %s: %w", c.name, id, classify(err))
	}
	return &doc, nil
}

// Query returns every document matching filter, ordered by the given
// clauses (e.g. "timestamp DESC").
func (c Collection[T]) Query(ctx context.Context, filter Filter, order ...string) ([]T, error) {
	ctx, span := c.span(ctx, "query", attribute.Int("filter.count", len(filter)))
	defer span.End()

	q := c.read(ctx)
	if len(filter) > 0 {
		q = q.Where(map[string]any(filter))
	}
	for _, o := range order {
		q = q.Order(o)
	}

	docs := []T{}
	if err := q.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, fail(span, err))
	}
	return docs, nil
}

func (c Collection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	var n int64
	q := c.s.db.WithContext(ctx).Model(new(T))
	if len(filter) > 0 {
		q = q.Where(map[string]any(filter))
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, classify(err))
	}
	return n, nil
}

// Update applies a partial record to the document with the given id.
func (c Collection[T]) Update(ctx context.Context, id string, fields Fields) error {
	_, err := c.update(ctx, id, "", nil, fields)
	return err
}

// UpdateIf applies fields only when the document also satisfies cond. It
// reports whether the update happened. A missing document is ErrNotFound.
func (c Collection[T]) UpdateIf(ctx context.Context, id string, cond string, args []any, fields Fields) (bool, error) {
	return c.update(ctx, id, cond, args, fields)
}

func (c Collection[T]) update(ctx context.Context, id, cond string, args []any, fields Fields) (bool, error) {
	ctx, span := c.span(ctx, "update", attribute.String("document.id", id), attribute.Int("field.count", len(fields)))
	defer span.End()

	applied := false
	err := c.s.Transaction(ctx, func(tx *Store) error {
		var before T
		if err := tx.db.WithContext(ctx).Where("id = ?", id).Take(&before).Error; err != nil {
			return fmt.Errorf("update %s %s: %w", c.name, id, fail(span, err))
		}

		q := tx.db.WithContext(ctx).Model(new(T)).Where("id = ?", id)
		if cond != "" {
			q = q.Where(cond, args...)
		}
		res := q.Updates(map[string]any(fields))
		if res.Error != nil {
			return fmt.Errorf("update %s %s: %w", c.name, id, fail(span, res.Error))
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var after T
		if err := tx.db.WithContext(ctx).Where("id = ?", id).Take(&after).Error; err != nil {
			return fmt.Errorf("reload %s %s: %w", c.name, id, fail(span, err))
		}
		tx.record(tx.change(c.name, changefeed.OpUpdate, id, &before, &after))
		applied = true
		return nil
	})
	span.SetAttributes(attribute.Bool("update.applied", applied))
	return applied, err
}

func (c Collection[T]) Delete(ctx context.Context, id string) error {
	ctx, span := c.span(ctx, "delete", attribute.String("document.id", id))
	defer span.End()

	return c.s.Transaction(ctx, func(tx *Store) error {
		var before T
		if err := tx.db.WithContext(ctx).Where("id = ?", id).Take(&before).Error; err != nil {
			return fmt.Errorf("delete %s %s: %w", c.name, id, fail(span, err))
		}
		if err := tx.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error; err != nil {
			return fmt.Errorf("delete %s %s: %w", c.name, id, fail(span, err))
		}
		tx.record(tx.change(c.name, changefeed.OpDelete, id, &before, nil))
		return nil
	})
}

func documentID(doc any) string {
	if d, ok := doc.(interface{ DocumentID() string }); ok {
		return d.DocumentID()
	}
	return ""
}
