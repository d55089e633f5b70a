package memory

import (
	"fmt"
	"reflect"
	"strings"
	"thakajabe/shared/dto"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// fieldIndex maps db tags to struct field paths, descending into embedded structs.
func fieldIndex(t reflect.Type) map[string][]int {
	index := map[string][]int{}

	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		for i := range t.NumField() {
			field := t.Field(i)
			path := append(append([]int{}, prefix...), i)

			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				walk(field.Type, path)

				continue
			}

			// joined columns are aliased with the column tag and never stored
			if tag := field.Tag.Get("db"); tag != "" && field.Tag.Get("table") == "" {
				index[tag] = path
			}
		}
	}

	walk(t, nil)

	return index
}

// matchGroup evaluates a FilterGroup the way its SQL rendering would. An empty group matches everything.
func matchGroup(row reflect.Value, index map[string][]int, group dto.FilterGroup) (bool, error) {
	if len(group.Filters) == 0 {
		return true, nil
	}

	isOr := strings.EqualFold(group.Operator, dto.FilterGroupOperatorOr)

	for _, item := range group.Filters {
		var (
			ok  bool
			err error
		)

		switch filter := item.(type) {
		case dto.Filter:
			ok, err = matchFilter(row, index, filter)
		case dto.FilterGroup:
			ok, err = matchGroup(row, index, filter)
		default:
			return false, fmt.Errorf("unsupported filter %T", item)
		}

		if err != nil {
			return false, err
		}

		if isOr && ok {
			return true, nil
		}

		if !isOr && !ok {
			return false, nil
		}
	}

	return !isOr, nil
}

func matchFilter(row reflect.Value, index map[string][]int, filter dto.Filter) (bool, error) {
	path, found := index[filter.Field]
	if !found {
		return false, fmt.Errorf("unknown column %s", filter.Field)
	}

	field := row.FieldByIndex(path)

	if field.Kind() == reflect.Pointer {
		isNull := field.IsNil()

		switch filter.Operator {
		case dto.FilterIsNull:
			return isNull, nil
		case dto.FilterIsNotNull:
			return !isNull, nil
		}

		// NULL never satisfies a comparison
		if isNull {
			return false, nil
		}

		field = field.Elem()
	}

	switch filter.Operator {
	case dto.FilterIsNull:
		return false, nil
	case dto.FilterIsNotNull:
		return true, nil
	case dto.FilterOperatorIn:
		values := reflect.ValueOf(filter.Value)
		if values.Kind() != reflect.Slice && values.Kind() != reflect.Array {
			return false, fmt.Errorf("operator in on %s needs a slice", filter.Field)
		}

		for i := range values.Len() {
			cmp, err := compare(field, reflect.ValueOf(values.Index(i).Interface()))
			if err != nil {
				return false, err
			}

			if cmp == 0 {
				return true, nil
			}
		}

		return false, nil
	case dto.FilterOperatorLike:
		return strings.Contains(strings.ToLower(field.String()), strings.ToLower(fmt.Sprint(filter.Value))), nil
	}

	cmp, err := compare(field, reflect.ValueOf(filter.Value))
	if err != nil {
		return false, err
	}

	switch filter.Operator {
	case dto.FilterOperatorEq:
		return cmp == 0, nil
	case dto.FilterOperatorNotEq:
		return cmp != 0, nil
	case dto.FilterOperatorLess:
		return cmp < 0, nil
	case dto.FilterOperatorGreater:
		return cmp > 0, nil
	case dto.FilterOperatorLessEq:
		return cmp <= 0, nil
	case dto.FilterOperatorGreaterEq:
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("unsupported operator %s", filter.Operator)
	}
}

// compare orders two scalar values of compatible kinds: strings, integers, booleans or time.Time.
func compare(a, b reflect.Value) (int, error) {
	if b.Kind() == reflect.Pointer {
		if b.IsNil() {
			return 0, fmt.Errorf("cannot compare with nil")
		}

		b = b.Elem()
	}

	switch {
	case a.Type() == timeType && b.Type() == timeType:
		at, _ := a.Interface().(time.Time)
		bt, _ := b.Interface().(time.Time)

		return at.Compare(bt), nil
	case a.Kind() == reflect.String && b.Kind() == reflect.String:
		return strings.Compare(a.String(), b.String()), nil
	case isInt(a) && isInt(b):
		return cmpInt(a.Int(), b.Int()), nil
	case a.Kind() == reflect.Bool && b.Kind() == reflect.Bool:
		if a.Bool() == b.Bool() {
			return 0, nil
		}

		if !a.Bool() {
			return -1, nil
		}

		return 1, nil
	default:
		return 0, fmt.Errorf("cannot compare %s with %s", a.Type(), b.Type())
	}
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// assign sets a column from an update map value, allocating pointers for nullable columns.
func assign(field reflect.Value, value any) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))

		return nil
	}

	v := reflect.ValueOf(value)

	if field.Kind() == reflect.Pointer && v.Kind() != reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		if err := assign(ptr.Elem(), value); err != nil {
			return err
		}

		field.Set(ptr)

		return nil
	}

	if !v.Type().ConvertibleTo(field.Type()) {
		return fmt.Errorf("cannot assign %s to %s", v.Type(), field.Type())
	}

	field.Set(v.Convert(field.Type()))

	return nil
}
