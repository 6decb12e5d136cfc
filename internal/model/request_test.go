package model

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsTotal(t *testing.T) {
	req := Request{
		Items: []RequestItem{
			{Quantity: 2, UnitPrice: decimal.RequireFromString("150.00")},
			{Quantity: 1, UnitPrice: decimal.RequireFromString("250.00")},
		},
	}
	assert.True(t, req.ItemsTotal().Equal(decimal.RequireFromString("550.00")))
}

func TestSelectedQuote(t *testing.T) {
	req := Request{
		Quotes: []PriceQuote{
			{VendorName: "A", Amount: decimal.RequireFromString("980.00")},
			{VendorName: "B", Amount: decimal.RequireFromString("920.00"), IsSelected: true},
		},
	}
	selected := req.SelectedQuote()
	require.NotNil(t, selected)
	assert.Equal(t, "B", selected.VendorName)

	assert.Nil(t, Request{}.SelectedQuote())
}

// Deleting a request must take its children with it; a submitted request
// always has history rows, so without cascading constraints the delete
// would trip the foreign keys.
func TestRequestChildAssociationsCascade(t *testing.T) {
	typ := reflect.TypeOf(Request{})
	for _, name := range []string{"Items", "ProjectDetail", "Quotes", "History", "Attachments"} {
		field, ok := typ.FieldByName(name)
		require.True(t, ok, "field %s", name)
		assert.True(t, strings.Contains(field.Tag.Get("gorm"), "constraint:OnDelete:CASCADE"),
			"association %s must cascade on delete", name)
	}

	milestones, ok := reflect.TypeOf(ProjectDetail{}).FieldByName("Milestones")
	require.True(t, ok)
	assert.True(t, strings.Contains(milestones.Tag.Get("gorm"), "constraint:OnDelete:CASCADE"))
}
