package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/user"
)

type (
	// DB is an in-memory store used by service tests.
	DB struct {
		user *userTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
	}
}
