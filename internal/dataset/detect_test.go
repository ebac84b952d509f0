package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDetectSalesColumn tests the sales column heuristic
func TestDetectSalesColumn(t *testing.T) {
	t.Run("Exact match", func(t *testing.T) {
		table := NewTable([]string{"Item", "Sales"}, nil)
		idx, err := DetectSalesColumn(table)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("Substring match is case-insensitive", func(t *testing.T) {
		table := NewTable([]string{"Item_ID", "Item_Outlet_Sales", "Outlet_Type"}, nil)
		idx, err := DetectSalesColumn(table)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("First match wins", func(t *testing.T) {
		table := NewTable([]string{"Sales_2023", "Sales_2024"}, nil)
		idx, err := DetectSalesColumn(table)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})

	t.Run("No match lists the available columns", func(t *testing.T) {
		table := NewTable([]string{"Item", "Price"}, nil)
		_, err := DetectSalesColumn(table)
		assert.ErrorIs(t, err, ErrSalesColumnNotFound)
		assert.Contains(t, err.Error(), "Item, Price")
	})
}

// TestDetectYearColumn tests the establishment year heuristic
func TestDetectYearColumn(t *testing.T) {
	t.Run("Matches year and establish together", func(t *testing.T) {
		table := NewTable([]string{"Item", "Outlet_Establishment_Year", "Sales"}, nil)
		idx, err := DetectYearColumn(table)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("Year alone is not enough", func(t *testing.T) {
		table := NewTable([]string{"Year", "Sales"}, nil)
		_, err := DetectYearColumn(table)
		assert.ErrorIs(t, err, ErrYearColumnNotFound)
	})

	t.Run("Establish alone is not enough", func(t *testing.T) {
		table := NewTable([]string{"Established", "Sales"}, nil)
		_, err := DetectYearColumn(table)
		assert.ErrorIs(t, err, ErrYearColumnNotFound)
	})
}
