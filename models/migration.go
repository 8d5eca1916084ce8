package models

import (
	"log"

	"github.com/seedleaf/store_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Order{}, &RetailerOrder{},
		&Affiliate{}, &AffiliateConversion{},
		&Referral{},
		&ProcessingRecord{},
		&EmailLog{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
