package db

import (
	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Session{},
		&model.Product{},
		&model.CartItem{},
		&model.Address{},
		&model.PaymentMethodInfo{},
		&model.Order{},
		&model.OrderItem{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed inserts the starter catalog when the products table is empty.
func Seed() error {
	return SeedCatalog(DB)
}

// DefaultCatalog is the starter product list used by Seed and local setups.
func DefaultCatalog() []model.Product {
	return []model.Product{
		{Name: "Endpoint Guard", Description: "Antivirus and anti-malware for workstations", Category: model.CategoryAntivirus, Price: 9.99, StockQuantity: 1000},
		{Name: "Tunnel VPN", Description: "Zero-log VPN with 60 exit countries", Category: model.CategoryVPN, Price: 6.50, StockQuantity: 1000},
		{Name: "Perimeter Firewall", Description: "Managed next-generation firewall", Category: model.CategoryFirewall, Price: 49.00, StockQuantity: 200},
		{Name: "Sentinel EDR", Description: "Endpoint detection and response with 30 day retention", Category: model.CategoryEDR, Price: 19.99, StockQuantity: 500},
	}
}

// SeedCatalog inserts DefaultCatalog into db unless products already exist.
func SeedCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Catalog already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	products := DefaultCatalog()
	if err := db.Create(&products).Error; err != nil {
		logger.Error("Failed to seed catalog", err)
		return err
	}

	logger.Info("Catalog seeded successfully", map[string]interface{}{
		"total_products": len(products),
	})
	return nil
}
