package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Seeds the first admin account. Run with ADMIN_EMAIL and ADMIN_PASSWORD set:
//
//	go run ./scripts
func main() {
	godotenv.Load()
	storage.InitializeDB()

	email := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	var existing models.User
	found := storage.DB.Where("email = ?", email).Limit(1).Find(&existing)
	if found.Error != nil {
		log.Fatalf("Error looking up user: %v", found.Error)
	}

	if found.RowsAffected > 0 {
		if existing.Role == "admin" {
			fmt.Printf("Admin %s already exists (ID %d)\n", email, existing.ID)
			return
		}
		existing.Role = "admin"
		if err := storage.DB.Save(&existing).Error; err != nil {
			log.Fatalf("Error promoting user: %v", err)
		}
		fmt.Printf("Promoted %s to admin (ID %d)\n", email, existing.ID)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Error hashing password: %v", err)
	}

	admin := models.User{
		FirstName: "Platform",
		LastName:  "Admin",
		Email:     email,
		Password:  string(hashed),
		Role:      "admin",
		Status:    "active",
	}
	if err := storage.DB.Create(&admin).Error; err != nil {
		log.Fatalf("Error creating admin: %v", err)
	}

	fmt.Printf("Admin %s created (ID %d)\n", email, admin.ID)
}
