package database

import (
	"fmt"
	"log"
	"os"

	"certmint/models"
	certModels "certmint/models/cert"
	courseModels "certmint/models/course"
	examModels "certmint/models/exam"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb establishes a connection to PostgreSQL
func ConnectDb() {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		os.Exit(2)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)

	RunMigrations(db)

	Database = DbInstance{Db: db}
}

// RunMigrations performs database migrations
func RunMigrations(db *gorm.DB) {
	log.Println("Running Migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&courseModels.Course{},
		&examModels.ExamSession{},
		&examModels.ExamResult{},
		&certModels.Certificate{},
		&certModels.DedupFinding{},
		&certModels.AuditEntry{},
		&certModels.IssueAttempt{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// At most one live certificate per exam result. Enforced in the storage
	// layer because two nodes could both observe locked=false and race.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_certificates_live_exam_result " +
			"ON certificates (exam_result_id) WHERE revoked = false AND is_deleted = false",
	).Error; err != nil {
		log.Fatalf("Failed to create live-certificate unique index: %v", err)
	}

	log.Println("Migrations completed successfully.")
}
