package goresource

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

func (o Direction) ForOperator() Operator {
	switch o {
	case DirectionASC:
		return OperatorGT
	case DirectionDESC:
		return OperatorLT
	default:
		panic(fmt.Errorf("cannot map direction '%s' to operator", o))
	}
}

// Reversed flips ASC to DESC and vice versa.
func (o Direction) Reversed() Direction {
	switch o {
	case DirectionASC:
		return DirectionDESC
	case DirectionDESC:
		return DirectionASC
	default:
		panic(fmt.Errorf("cannot reverse direction '%s'", o))
	}
}

type (
	Orderings []OrderBy
	OrderBy   struct {
		Column    string
		Direction Direction
	}

	ColumnAlias = string

	// ColumnMapping maps external column aliases to fully qualified column names.
	// Use it when bare column names could cause an "ambiguous column name" error.
	// Key is an external alias, value is an internal column name.
	ColumnMapping = map[ColumnAlias]string
)

var _availableColumnNameSymbols = append([]rune("_.'`\""), lo.AlphanumericCharset...)

func (o OrderBy) validate() error {
	if !o.Direction.Valid() {
		return fmt.Errorf("invalid ordering direction '%s'", o.Direction)
	}

	// Guard against SQL injection by restricting allowed characters in column names.
	if !lo.Every(_availableColumnNameSymbols, []rune(o.Column)) {
		return fmt.Errorf("ordering column name contains forbidden symbols '%s'", o.Column)
	}

	return nil
}

// ToSQLSlice converts Orderings to a slice of strings in the form
// "<order_column> <order_direction>" suitable for SQL query builders.
//
// Example: for Orderings: [{"a", "ASC"}, {"b", "DESC"}] returns ["a ASC", "b DESC"].
func (o Orderings) ToSQLSlice() []string {
	ret := make([]string, 0, len(o))
	for _, ordering := range o {
		ret = append(ret, fmt.Sprintf("%s %s", ordering.Column, ordering.Direction))
	}

	return ret
}

// ToSQL converts Orderings to a single string
// "<order_column_1> <order_direction_1>, <order_column_2> <order_direction_2>"
// suitable for embedding into an SQL query.
// Example: for [{"a", "ASC"}, {"b", "DESC"}] returns "a ASC, b DESC".
func (o Orderings) ToSQL() string {
	return strings.Join(o.ToSQLSlice(), ", ")
}

// Apply applies the ordering to a gorm query.
func (o Orderings) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(o.ToSQL())
}

// Reversed returns a new Orderings with every direction flipped and the
// column order preserved. Reversing the ordering lets "previous page" run as
// the normal forward algorithm against the reverse-sorted dataset.
func (o Orderings) Reversed() Orderings {
	ret := make(Orderings, 0, len(o))
	for _, ordering := range o {
		ret = append(ret, OrderBy{
			Column:    ordering.Column,
			Direction: ordering.Direction.Reversed(),
		})
	}

	return ret
}

func (o Orderings) validate() error {
	if len(o) == 0 {
		return fmt.Errorf("empty ordering list")
	}

	var err error
	for _, ordering := range o {
		err = ordering.validate()
		if err != nil {
			return err
		}
	}

	return nil
}

// orderingEntry is the wire form of a single ordering clause as it arrives
// in list requests: {"field": "name", "ascending": true}. Ascending is a
// pointer so that an omitted flag can be told apart from an explicit false.
type orderingEntry struct {
	Field     string
	Ascending *bool
}

// parseOrderingSpec normalizes an ordering specification into a list of
// entries. It accepts a single OrderBy, Orderings, a single wire-form
// mapping, or a sequence of either. A single mapping is normalized into a
// one-element sequence. Any other type is a configuration error.
func parseOrderingSpec(spec any) ([]orderingEntry, error) {
	switch v := spec.(type) {
	case OrderBy:
		return []orderingEntry{orderByEntry(v)}, nil
	case []OrderBy:
		return lo.Map(v, func(o OrderBy, _ int) orderingEntry { return orderByEntry(o) }), nil
	case Orderings:
		return lo.Map(v, func(o OrderBy, _ int) orderingEntry { return orderByEntry(o) }), nil
	case map[string]any:
		return []orderingEntry{mapEntry(v)}, nil
	case []map[string]any:
		return lo.Map(v, func(m map[string]any, _ int) orderingEntry { return mapEntry(m) }), nil
	case []any:
		ret := make([]orderingEntry, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected a mapping, got %T", ErrInvalidOrdering, item)
			}
			ret = append(ret, mapEntry(m))
		}

		return ret, nil
	default:
		return nil, fmt.Errorf("%w: expected a mapping or a sequence of mappings, got %T", ErrInvalidOrdering, spec)
	}
}

func orderByEntry(o OrderBy) orderingEntry {
	return orderingEntry{
		Field:     o.Column,
		Ascending: lo.ToPtr(o.Direction == DirectionASC),
	}
}

func mapEntry(m map[string]any) orderingEntry {
	entry := orderingEntry{}
	if field, ok := m["field"].(string); ok {
		entry.Field = field
	}
	if ascending, ok := m["ascending"].(bool); ok {
		entry.Ascending = lo.ToPtr(ascending)
	}

	return entry
}

// ParseSort builds Orderings from a list of strings in the format
// "column asc|desc". Column aliases are resolved via ColumnMapping.
// Returns an error if an alias is not found in the mapping.
func ParseSort(stringsOrderings []string, columnMapping ColumnMapping) (Orderings, error) {
	ret := make([]OrderBy, 0, len(stringsOrderings))
	aliases := lo.Keys(columnMapping)

	for _, stringOrdering := range stringsOrderings {
		cutStringOrdering := strings.Split(strings.TrimSpace(stringOrdering), " ")
		if len(cutStringOrdering) != 2 {
			return nil, fmt.Errorf("invalid ordering string format '%s'", stringOrdering)
		}

		columnAlias := cutStringOrdering[0]
		direction := Direction(strings.ToUpper(cutStringOrdering[1]))
		columnName := columnMapping[columnAlias]
		if columnName == "" {
			return nil, fmt.Errorf("invalid column alias. closest: '%s'", closestAlias(columnAlias, aliases))
		}

		ret = append(ret, OrderBy{
			Column:    columnName,
			Direction: direction,
		})
	}

	return ret, nil
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
