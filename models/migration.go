package models

import (
	"log"

	"github.com/mmdatafocus/bom_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&ProductUnit{}, &ProductModifier{},
		&RawItem{},
		&CompositeItem{}, &CompositeLine{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
