package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryFromProvider(t *testing.T) {
	tests := []struct {
		label string
		want  Category
	}{
		{"FOOD_AND_DRINK", FoodAndDrink},
		{"food_and_drink", FoodAndDrink},
		{"Food and Drink", FoodAndDrink},
		{"RENT_AND_UTILITIES", RentAndUtilities},
		{"Recreation", Entertainment},
		{"Healthcare", Medical},
		{"TRANSFER_OUT", TransferOut},
		{"GOVERNMENT_AND_NON_PROFIT", GovernmentAndNonProfit},
		{"", DefaultCategory},
		{"SPACE_TOURISM", DefaultCategory},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryFromProvider(tt.label))
		})
	}
}

func TestEveryMemberHasAliasAndDisplayName(t *testing.T) {
	require.Len(t, Categories, 16)
	for _, c := range Categories {
		assert.True(t, c.IsMember(), c)
		assert.Equal(t, c, CategoryFromProvider(string(c)))
		assert.NotEmpty(t, c.DisplayName())
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Food & Drink", FoodAndDrink.DisplayName())
	assert.Equal(t, "Rent & Utilities", RentAndUtilities.DisplayName())
	assert.Equal(t, "Coffee Beans", Category("coffee_beans").DisplayName())
}

func TestParseCategoryOverride(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"food_and_drink", FoodAndDrink, false},
		{" Food & Drink ", FoodAndDrink, false},
		{"travel", Travel, false},
		{"transfers out", TransferOut, false},
		{"shopping", Category("shopping"), false},
		{"Date Night!", Category("date_night"), false},
		{"  ", "", true},
		{"!!!", "", true},
		{"this label is far too long to be a sensible category name", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategoryOverride(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMember(t *testing.T) {
	c, err := ParseMember("Medical")
	require.NoError(t, err)
	assert.Equal(t, Medical, c)

	_, err = ParseMember("shopping")
	assert.Error(t, err)
}

func TestLoadAliasesRejectsUnknownMember(t *testing.T) {
	_, err := loadAliases([]byte("snacks:\n  - chips\n"))
	assert.Error(t, err)

	_, err = loadAliases([]byte("travel:\n  - trip\nmedical:\n  - trip\n"))
	assert.Error(t, err)
}
