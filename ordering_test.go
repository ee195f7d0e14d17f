package goresource

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Direction_Valid_And_ForOperator(t *testing.T) {
	tests := []struct {
		name     string
		in       Direction
		valid    bool
		operator Operator
	}{
		{"ASC valid maps to GT", DirectionASC, true, OperatorGT},
		{"DESC valid maps to LT", DirectionDESC, true, OperatorLT},
	}
	for _, tt := range tests {
		if got := tt.in.Valid(); got != tt.valid {
			t.Errorf("%s: Valid=%v want %v", tt.name, got, tt.valid)
		}
		if got := tt.in.ForOperator(); got != tt.operator {
			t.Errorf("%s: ForOperator=%v want %v", tt.name, got, tt.operator)
		}
	}
}

func Test_Direction_Reversed(t *testing.T) {
	assert.Equal(t, DirectionDESC, DirectionASC.Reversed())
	assert.Equal(t, DirectionASC, DirectionDESC.Reversed())
}

func Test_Operator_ForOrdering(t *testing.T) {
	assert.Equal(t, DirectionASC, OperatorGT.ForOrdering())
	assert.Equal(t, DirectionDESC, OperatorLT.ForOrdering())
}

func Test_Orderings_ToSQL(t *testing.T) {
	orderings := Orderings{
		{Column: "a", Direction: DirectionASC},
		{Column: "b", Direction: DirectionDESC},
	}

	assert.Equal(t, []string{"a ASC", "b DESC"}, orderings.ToSQLSlice())
	assert.Equal(t, "a ASC, b DESC", orderings.ToSQL())
}

func Test_Orderings_Reversed(t *testing.T) {
	orderings := Orderings{
		{Column: "created_at", Direction: DirectionDESC},
		{Column: "id", Direction: DirectionASC},
	}

	require.Equal(t, Orderings{
		{Column: "created_at", Direction: DirectionASC},
		{Column: "id", Direction: DirectionDESC},
	}, orderings.Reversed())

	// Reversing twice restores the original.
	require.Equal(t, orderings, orderings.Reversed().Reversed())
}

func Test_Orderings_validate(t *testing.T) {
	tests := []struct {
		name      string
		orderings Orderings
		wantErr   bool
	}{
		{
			name: "standard case, ok",
			orderings: Orderings{
				{Column: "id", Direction: DirectionASC},
			},
			wantErr: false,
		},
		{
			name:      "empty list is invalid",
			orderings: Orderings{},
			wantErr:   true,
		},
		{
			name: "invalid direction",
			orderings: Orderings{
				{Column: "id", Direction: Direction("SIDEWAYS")},
			},
			wantErr: true,
		},
		{
			name: "forbidden symbols in column name",
			orderings: Orderings{
				{Column: "id; DROP TABLE pets", Direction: DirectionASC},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if gotErr := tt.orderings.validate(); (gotErr != nil) != tt.wantErr {
				t.Errorf("%s: got error = %v, want error = %v", tt.name, gotErr, tt.wantErr)
			}
		})
	}
}

func Test_parseOrderingSpec(t *testing.T) {
	ascending := lo.ToPtr(true)

	tests := []struct {
		name    string
		spec    any
		want    []orderingEntry
		wantErr bool
	}{
		{
			name: "single OrderBy",
			spec: OrderBy{Column: "name", Direction: DirectionASC},
			want: []orderingEntry{{Field: "name", Ascending: ascending}},
		},
		{
			name: "OrderBy list",
			spec: []OrderBy{{Column: "name", Direction: DirectionDESC}},
			want: []orderingEntry{{Field: "name", Ascending: lo.ToPtr(false)}},
		},
		{
			name: "single mapping",
			spec: map[string]any{"field": "name", "ascending": true},
			want: []orderingEntry{{Field: "name", Ascending: ascending}},
		},
		{
			name: "mapping sequence",
			spec: []map[string]any{{"field": "name", "ascending": true}},
			want: []orderingEntry{{Field: "name", Ascending: ascending}},
		},
		{
			name: "mapping without ascending flag",
			spec: []map[string]any{{"field": "name"}},
			want: []orderingEntry{{Field: "name", Ascending: nil}},
		},
		{
			name: "untyped sequence",
			spec: []any{map[string]any{"field": "name", "ascending": false}},
			want: []orderingEntry{{Field: "name", Ascending: lo.ToPtr(false)}},
		},
		{
			name:    "untyped sequence with non-mapping entry",
			spec:    []any{"name"},
			wantErr: true,
		},
		{
			name:    "nil spec",
			spec:    nil,
			wantErr: true,
		},
		{
			name:    "bare string spec",
			spec:    "name",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOrderingSpec(tt.spec)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidOrdering)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func Test_ParseSort(t *testing.T) {
	mapping := ColumnMapping{
		"name":    "pets.name",
		"created": "pets.created_at",
	}

	orderings, err := ParseSort([]string{"name asc", "created DESC"}, mapping)
	require.NoError(t, err)
	require.Equal(t, Orderings{
		{Column: "pets.name", Direction: DirectionASC},
		{Column: "pets.created_at", Direction: DirectionDESC},
	}, orderings)
}

func Test_ParseSort_Errors(t *testing.T) {
	mapping := ColumnMapping{"name": "name", "created_at": "created_at"}

	_, err := ParseSort([]string{"name"}, mapping)
	require.Error(t, err)

	_, err = ParseSort([]string{"nmae asc"}, mapping)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closest: 'name'")
}
