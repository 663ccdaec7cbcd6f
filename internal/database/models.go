package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Application struct {
	ID             uuid.UUID
	Name           string
	Phone          string
	Experience     int32
	Position       string
	Salary         int64
	ExpectedSalary int64
	RequestID      sql.NullString
	CreatedAt      time.Time
}

type Resume struct {
	ID               uuid.UUID
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	StorageProvider  string
	ObjectKey        string
	StorageUrl       string
	UploadStatus     string
	ResumeText       sql.NullString
	CreatedAt        time.Time
	ApplicationID    uuid.UUID
}
