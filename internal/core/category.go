package core

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Category is a spending category. Members of the closed set are listed in
// Categories; any other value is a free-form label supplied by the user.
type Category string

const (
	Income                 Category = "income"
	TransferIn             Category = "transfer_in"
	TransferOut            Category = "transfer_out"
	LoanPayments           Category = "loan_payments"
	BankFees               Category = "bank_fees"
	Entertainment          Category = "entertainment"
	FoodAndDrink           Category = "food_and_drink"
	GeneralMerchandise     Category = "general_merchandise"
	HomeImprovement        Category = "home_improvement"
	Medical                Category = "medical"
	PersonalCare           Category = "personal_care"
	GeneralServices        Category = "general_services"
	GovernmentAndNonProfit Category = "government_and_non_profit"
	Transportation         Category = "transportation"
	Travel                 Category = "travel"
	RentAndUtilities       Category = "rent_and_utilities"

	// DefaultCategory receives provider records whose label is unknown.
	DefaultCategory = GeneralMerchandise
)

// Categories lists the closed set in display order.
var Categories = []Category{
	FoodAndDrink,
	GeneralMerchandise,
	RentAndUtilities,
	Transportation,
	Entertainment,
	Travel,
	Medical,
	PersonalCare,
	HomeImprovement,
	GeneralServices,
	GovernmentAndNonProfit,
	LoanPayments,
	BankFees,
	TransferOut,
	TransferIn,
	Income,
}

var displayNames = map[Category]string{
	Income:                 "Income",
	TransferIn:             "Transfers In",
	TransferOut:            "Transfers Out",
	LoanPayments:           "Loan Payments",
	BankFees:               "Bank Fees",
	Entertainment:          "Entertainment",
	FoodAndDrink:           "Food & Drink",
	GeneralMerchandise:     "General Merchandise",
	HomeImprovement:        "Home Improvement",
	Medical:                "Medical",
	PersonalCare:           "Personal Care",
	GeneralServices:        "General Services",
	GovernmentAndNonProfit: "Government & Non-Profit",
	Transportation:         "Transportation",
	Travel:                 "Travel",
	RentAndUtilities:       "Rent & Utilities",
}

//go:embed category_aliases.yaml
var aliasFile []byte

// providerAliases maps normalized provider labels to members. Built once at init
// from the embedded alias table.
var providerAliases = mustLoadAliases(aliasFile)

var titleCaser = cases.Title(language.English)

func mustLoadAliases(data []byte) map[string]Category {
	aliases, err := loadAliases(data)
	if err != nil {
		panic(fmt.Sprintf("load category aliases: %v", err))
	}
	return aliases
}

func loadAliases(data []byte) (map[string]Category, error) {
	var table map[string][]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}
	out := make(map[string]Category)
	for member, labels := range table {
		c := Category(member)
		if !c.IsMember() {
			return nil, fmt.Errorf("alias table names unknown category %q", member)
		}
		out[string(c)] = c
		for _, label := range labels {
			key := normalizeLabel(label)
			if prev, ok := out[key]; ok && prev != c {
				return nil, fmt.Errorf("label %q mapped to both %s and %s", label, prev, c)
			}
			out[key] = c
		}
	}
	return out, nil
}

// IsMember reports whether c belongs to the closed category set.
func (c Category) IsMember() bool {
	_, ok := displayNames[c]
	return ok
}

// DisplayName returns the human label used in messages.
func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return titleCaser.String(strings.ReplaceAll(string(c), "_", " "))
}

func (c Category) String() string { return string(c) }

// CategoryFromProvider maps a provider category label onto the closed set.
// Unknown or empty labels map to DefaultCategory.
func CategoryFromProvider(label string) Category {
	if c, ok := providerAliases[normalizeLabel(label)]; ok {
		return c
	}
	return DefaultCategory
}

// ParseCategoryOverride interprets the category segment of a user reply. A
// segment naming a member (by key or display name) returns that member; any
// other non-empty segment becomes a free-form label.
func ParseCategoryOverride(s string) (Category, error) {
	key := normalizeLabel(s)
	if key == "" {
		return "", fmt.Errorf("empty category")
	}
	if len(key) > maxLabelLength {
		return "", fmt.Errorf("category label longer than %d characters", maxLabelLength)
	}
	c := Category(key)
	if c.IsMember() {
		return c, nil
	}
	for member, name := range displayNames {
		if normalizeLabel(name) == key {
			return member, nil
		}
	}
	return c, nil
}

// ParseMember returns the member named by s, or an error for anything outside
// the closed set. Budget limits can only be set on members.
func ParseMember(s string) (Category, error) {
	c := Category(normalizeLabel(s))
	if !c.IsMember() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

const maxLabelLength = 40

// normalizeLabel lower-cases s and folds separators to single underscores:
// "Food & Drink" and "FOOD_AND_DRINK" both become "food_and_drink".
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", " and ")
	var b strings.Builder
	underscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore && b.Len() > 0 {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
