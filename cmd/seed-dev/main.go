// seed-dev populates a development database with a couple of pending orders
// and one active affiliate so webhook deliveries can be exercised end to end.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-dev
//
// Pair it with webhook.ComputeSignatureHeader to craft signed test deliveries.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/seedleaf/store_backend/config"
	"github.com/seedleaf/store_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	now := time.Now()
	orders := []models.Order{
		{
			ID:            "ord_dev_001",
			CustomerId:    "cus_dev_001",
			CustomerEmail: "dev-customer@example.com",
			Status:        models.OrderStatusPending,
			Amount:        decimal.NewFromFloat(48.50),
			Subtotal:      decimal.NewFromFloat(40.00),
		},
		{
			ID:            "ord_dev_002",
			CustomerId:    "cus_dev_001",
			CustomerEmail: "dev-customer@example.com",
			Status:        models.OrderStatusPending,
			Amount:        decimal.NewFromFloat(23.75),
			Subtotal:      decimal.NewFromFloat(19.99),
		},
	}
	retailerOrders := []models.RetailerOrder{
		{
			ID:           "rord_dev_001",
			RetailerId:   "ret_dev_001",
			CompanyName:  "Green Grocer Co",
			ContactEmail: "orders@greengrocer.example.com",
			Status:       models.OrderStatusPending,
			Amount:       decimal.NewFromFloat(512.00),
			Subtotal:     decimal.NewFromFloat(480.00),
		},
	}
	affiliates := []models.Affiliate{
		{
			ID:       "aff_dev_001",
			Code:     "AFF1",
			Email:    "affiliate@example.com",
			Name:     "Dev Affiliate",
			Status:   models.AffiliateStatusActive,
			TierRate: decimal.NewFromFloat(0.20),
			ActivatedAt: func() *time.Time {
				t := now.Add(-24 * time.Hour)
				return &t
			}(),
		},
		{
			ID:     "aff_dev_002",
			Code:   "AFF2",
			Email:  "pending-affiliate@example.com",
			Name:   "Pending Affiliate",
			Status: models.AffiliateStatusInactive,
			// Not activated: a starter-kit webhook for aff_dev_002 exercises
			// the activation path.
			TierRate: decimal.NewFromFloat(0.15),
		},
	}

	seed := func(what string, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed %s: %v\n", what, err)
			os.Exit(1)
		}
		fmt.Printf("seeded %s\n", what)
	}

	upsert := func(dest interface{}) error {
		return db.Clauses(clause.OnConflict{DoNothing: true}).Create(dest).Error
	}

	seed("orders", upsert(&orders))
	seed("retailer orders", upsert(&retailerOrders))
	seed("affiliates", upsert(&affiliates))

	var counts struct {
		Orders     int64
		Affiliates int64
	}
	if err := db.Model(&models.Order{}).Count(&counts.Orders).Error; err != nil && err != gorm.ErrRecordNotFound {
		fmt.Fprintf(os.Stderr, "count check failed: %v\n", err)
		os.Exit(1)
	}
	db.Model(&models.Affiliate{}).Count(&counts.Affiliates)
	fmt.Printf("done: %d orders, %d affiliates in database\n", counts.Orders, counts.Affiliates)
}
