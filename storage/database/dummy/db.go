package dummydb

import (
	"sync"

	"github.com/userNanni/sisub-sub000/core/forecast"
	"github.com/userNanni/sisub-sub000/core/unit"
	"github.com/userNanni/sisub-sub000/core/user"
)

type (
	DB struct {
		user     *userTable
		unit     *unitTable
		forecast *forecastTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	unitTable struct {
		sync.RWMutex
		table map[string]*unit.Unit
	}

	forecastTable struct {
		sync.RWMutex
		// rows per user
		table map[string][]forecast.Record
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		unit:     &unitTable{table: make(map[string]*unit.Unit)},
		forecast: &forecastTable{table: make(map[string][]forecast.Record)},
	}
	return db, nil
}
