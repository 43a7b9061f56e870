package dummydb

import (
	"sync"

	"github.com/trezcool/masomo/core/record"
)

type (
	DB struct {
		folder *folderTable
		record *recordTable
		row    *rowTable
	}

	folderTable struct {
		sync.RWMutex
		table map[string]*record.Folder
	}

	recordTable struct {
		sync.RWMutex
		table map[string]*record.Record
	}

	rowTable struct {
		sync.RWMutex
		table map[string][]record.Row // by record ID
	}
)

func Open() (*DB, error) {
	db := &DB{
		folder: &folderTable{table: make(map[string]*record.Folder)},
		record: &recordTable{table: make(map[string]*record.Record)},
		row:    &rowTable{table: make(map[string][]record.Row)},
	}
	return db, nil
}
