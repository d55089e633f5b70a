package memory

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"thakajabe/shared/dto"
)

// Constraint checks a candidate row against the other rows of its table.
// skip is the index of the row being replaced, or -1 for an insert.
type Constraint[T any] func(rows []T, candidate T, skip int) error

// Table holds rows of T in insertion order and offers the generic repository method set.
type Table[T any] struct {
	store       *Store
	entity      string
	rows        []T
	index       map[string][]int
	constraints []Constraint[T]
}

func NewTable[T any](store *Store, entity string, constraints ...Constraint[T]) *Table[T] {
	var zero T

	table := &Table[T]{
		store:       store,
		entity:      entity,
		index:       fieldIndex(reflect.TypeOf(zero)),
		constraints: constraints,
	}

	store.register(table)

	return table
}

func (t *Table[T]) snapshot() func() {
	saved := slices.Clone(t.rows)

	return func() {
		t.rows = saved
	}
}

func (t *Table[T]) check(candidate T, skip int) error {
	for _, constraint := range t.constraints {
		if err := constraint(t.rows, candidate, skip); err != nil {
			return err
		}
	}

	return nil
}

func (t *Table[T]) filter(filter dto.FilterGroup) ([]int, error) {
	matched := []int{}

	for i := range t.rows {
		ok, err := matchGroup(reflect.ValueOf(t.rows[i]), t.index, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to filter data (%s): %w", t.entity, err)
		}

		if ok {
			matched = append(matched, i)
		}
	}

	return matched, nil
}

func (t *Table[T]) Insert(ctx context.Context, model T) error {
	defer t.store.acquire(ctx)()

	if err := t.check(model, -1); err != nil {
		return fmt.Errorf("failed to insert data (%s): %w", t.entity, err)
	}

	t.rows = append(t.rows, model)

	return nil
}

// Get returns the zero value of T when nothing matches.
func (t *Table[T]) Get(ctx context.Context, filter dto.FilterGroup, _ ...string) (T, error) {
	defer t.store.acquire(ctx)()

	var zero T

	matched, err := t.filter(filter)
	if err != nil || len(matched) == 0 {
		return zero, err
	}

	return t.rows[matched[0]], nil
}

// GetForUpdate behaves like Get inside a unit of work; the store lock already excludes other writers.
func (t *Table[T]) GetForUpdate(ctx context.Context, filter dto.FilterGroup) (T, error) {
	var zero T

	if !t.store.held(ctx) {
		return zero, fmt.Errorf("failed to lock data (%s): %w", t.entity, errRequiredTx)
	}

	return t.Get(ctx, filter)
}

func (t *Table[T]) GetAll(ctx context.Context, params dto.QueryParams, filter dto.FilterGroup, _ ...string) ([]T, error) {
	defer t.store.acquire(ctx)()

	matched, err := t.filter(filter)
	if err != nil {
		return nil, err
	}

	models := make([]T, 0, len(matched))
	for _, i := range matched {
		models = append(models, t.rows[i])
	}

	if path, ok := t.index[params.SortBy]; ok && params.SortDir != "" {
		desc := strings.EqualFold(params.SortDir, dto.SortDirDesc)

		slices.SortStableFunc(models, func(a, b T) int {
			cmp, _ := compare(reflect.ValueOf(a).FieldByIndex(path), reflect.ValueOf(b).FieldByIndex(path))
			if desc {
				return -cmp
			}

			return cmp
		})
	}

	if params.Limit > 0 {
		offset := 0
		if params.Page > 0 {
			offset = (params.Page - 1) * params.Limit
		}

		if offset >= len(models) {
			return []T{}, nil
		}

		models = models[offset:min(offset+params.Limit, len(models))]
	}

	return models, nil
}

func (t *Table[T]) Exist(ctx context.Context, filter dto.FilterGroup) (bool, error) {
	count, err := t.Count(ctx, filter)

	return count > 0, err
}

func (t *Table[T]) Count(ctx context.Context, filter dto.FilterGroup) (int, error) {
	defer t.store.acquire(ctx)()

	matched, err := t.filter(filter)

	return len(matched), err
}

func (t *Table[T]) Sum(ctx context.Context, column string, filter dto.FilterGroup) (int64, error) {
	defer t.store.acquire(ctx)()

	path, ok := t.index[column]
	if !ok {
		return 0, fmt.Errorf("failed to sum data (%s): unknown column %s", t.entity, column)
	}

	matched, err := t.filter(filter)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, i := range matched {
		total += reflect.ValueOf(t.rows[i]).FieldByIndex(path).Int()
	}

	return total, nil
}

func (t *Table[T]) Update(ctx context.Context, mod map[string]any, filter dto.FilterGroup) error {
	_, err := t.UpdateCount(ctx, mod, filter)

	return err
}

// UpdateCount applies mod to every matching row and reports how many matched.
// Either all matching rows are updated or none are.
func (t *Table[T]) UpdateCount(ctx context.Context, mod map[string]any, filter dto.FilterGroup) (int64, error) {
	defer t.store.acquire(ctx)()

	if len(filter.Filters) == 0 {
		return 0, fmt.Errorf("failed to update data (%s): required filter", t.entity)
	}

	matched, err := t.filter(filter)
	if err != nil {
		return 0, err
	}

	updated := make([]T, len(matched))

	for n, i := range matched {
		row := t.rows[i]
		value := reflect.ValueOf(&row).Elem()

		for column, newValue := range mod {
			path, ok := t.index[column]
			if !ok {
				return 0, fmt.Errorf("failed to update data (%s): unknown column %s", t.entity, column)
			}

			if err := assign(value.FieldByIndex(path), newValue); err != nil {
				return 0, fmt.Errorf("failed to update data (%s): %s: %w", t.entity, column, err)
			}
		}

		if err := t.check(row, i); err != nil {
			return 0, fmt.Errorf("failed to update data (%s): %w", t.entity, err)
		}

		updated[n] = row
	}

	for n, i := range matched {
		t.rows[i] = updated[n]
	}

	return int64(len(matched)), nil
}
