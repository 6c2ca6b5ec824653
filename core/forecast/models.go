package forecast

import (
	"context"
	"errors"
)

var (
	// errors
	ErrDateLocked    = errors.New("date is inside the lock window")
	ErrUnknownDate   = errors.New("date is outside the forecast window")
	ErrUnknownMeal   = errors.New("unknown meal")
	ErrSessionClosed = errors.New("forecast session is closed")
	ErrStaleSession  = errors.New("forecast session superseded")
)

// Meal identifies one of the four daily meals served by a unit's mess.
type Meal string

const (
	MealCafe   Meal = "cafe"
	MealAlmoco Meal = "almoco"
	MealJanta  Meal = "janta"
	MealCeia   Meal = "ceia"
)

// Meals lists all meals in serving order.
var Meals = [4]Meal{MealCafe, MealAlmoco, MealJanta, MealCeia}

var mealRank = map[Meal]int{MealCafe: 0, MealAlmoco: 1, MealJanta: 2, MealCeia: 3}

func (m Meal) Valid() bool {
	_, ok := mealRank[m]
	return ok
}

// DayMeals is one user's forecast for one calendar date. It is an immutable
// snapshot: mutations go through With, which returns a new value, so change
// detection can rely on plain equality.
type DayMeals struct {
	Cafe   bool `json:"cafe"`
	Almoco bool `json:"almoco"`
	Janta  bool `json:"janta"`
	Ceia   bool `json:"ceia"`
}

func (dm DayMeals) Get(m Meal) bool {
	switch m {
	case MealCafe:
		return dm.Cafe
	case MealAlmoco:
		return dm.Almoco
	case MealJanta:
		return dm.Janta
	case MealCeia:
		return dm.Ceia
	}
	return false
}

// With returns a copy of dm with meal m set to v.
func (dm DayMeals) With(m Meal, v bool) DayMeals {
	switch m {
	case MealCafe:
		dm.Cafe = v
	case MealAlmoco:
		dm.Almoco = v
	case MealJanta:
		dm.Janta = v
	case MealCeia:
		dm.Ceia = v
	}
	return dm
}

// Union returns the fill-missing merge of dm and tpl: a meal is selected if
// it is selected in either. Never deselects an already selected meal.
func (dm DayMeals) Union(tpl DayMeals) DayMeals {
	return DayMeals{
		Cafe:   dm.Cafe || tpl.Cafe,
		Almoco: dm.Almoco || tpl.Almoco,
		Janta:  dm.Janta || tpl.Janta,
		Ceia:   dm.Ceia || tpl.Ceia,
	}
}

func (dm DayMeals) Any() bool {
	return dm.Cafe || dm.Almoco || dm.Janta || dm.Ceia
}

// Selected returns the selected meals in serving order.
func (dm DayMeals) Selected() []Meal {
	sel := make([]Meal, 0, len(Meals))
	for _, m := range Meals {
		if dm.Get(m) {
			sel = append(sel, m)
		}
	}
	return sel
}

// PendingChange is one not-yet-durable mutation: meal `Meal` on date `Date`
// goes to `Value`, attributed to unit `Unit`. At most one PendingChange per
// (date, meal) pair is ever queued; the latest wins.
type PendingChange struct {
	Date  string `json:"date"`
	Meal  Meal   `json:"meal"`
	Value bool   `json:"value"`
	Unit  string `json:"unidade"`
}

func (pc PendingChange) key() string { return pc.Date + "|" + string(pc.Meal) }

// Record is one persisted forecast row. "Not attending" is represented by
// the absence of a row, never by WillAttend=false.
type Record struct {
	Date       string `json:"date"`
	Unit       string `json:"unidade"`
	Meal       Meal   `json:"refeicao"`
	WillAttend bool   `json:"vai_comer"`
}

// Store is the persisted forecast store a session flushes to.
type Store interface {
	// ListRange returns all rows for userID with start <= date <= end.
	ListRange(ctx context.Context, userID, start, end string) ([]Record, error)
	// DeleteDay drops every row for (userID, date).
	DeleteDay(ctx context.Context, userID, date string) error
	// InsertRows inserts the given rows for userID.
	InsertRows(ctx context.Context, userID string, rows []Record) error
}
