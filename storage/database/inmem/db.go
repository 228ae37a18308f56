package inmemdb

import (
	"sync"

	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
)

type (
	DB struct {
		sheet *sheetTable
	}

	sheetTable struct {
		t     map[string]*gradesheet.Record
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		sheet: &sheetTable{t: make(map[string]*gradesheet.Record)},
	}
	return db, nil
}
