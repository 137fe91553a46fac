package domain

import "time"

// BazarEntry is a shopping/grocery expense submitted by a household
// member. The request layer treats it as opaque payload; the fields
// matter only to the services and the UI.
type BazarEntry struct {
	ID     string    `json:"id,omitempty"`
	UserID string    `json:"userId,omitempty"`
	Items  []string  `json:"items"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note,omitempty"`
}

// MealEntry records one member's meals for a day.
type MealEntry struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Date      time.Time `json:"date"`
	Breakfast bool      `json:"breakfast"`
	Lunch     bool      `json:"lunch"`
	Dinner    bool      `json:"dinner"`
}

// MonthSummary is the aggregated view a member sees for a month.
type MonthSummary struct {
	Month       string  `json:"month"` // YYYY-MM
	TotalBazar  float64 `json:"totalBazar"`
	TotalMeals  int     `json:"totalMeals"`
	MealRate    float64 `json:"mealRate"`
	UserBalance float64 `json:"userBalance"`
}
