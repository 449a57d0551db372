package database

import (
	"log"

	"gorm.io/gorm"

	"jostrid/models"
)

// SeedDatabase creates the default expense categories on first boot
func SeedDatabase(db *gorm.DB) error {
	var categoryCount int64
	db.Model(&models.ExpenseCategory{}).Count(&categoryCount)
	if categoryCount > 0 {
		log.Println("Database already seeded, skipping...")
		return nil
	}

	log.Println("Seeding default expense categories...")

	categories := []models.ExpenseCategory{
		{Name: "Groceries"},
		{Name: "Dining out"},
		{Name: "Rent"},
		{Name: "Utilities"},
		{Name: "Travel"},
		{Name: "Entertainment"},
		{Name: "Household"},
		{Name: "Other"},
	}

	for _, category := range categories {
		if err := db.Create(&category).Error; err != nil {
			return err
		}
	}

	log.Printf("Seeded %d expense categories", len(categories))
	return nil
}
