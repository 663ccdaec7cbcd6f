package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const createApplication = `-- name: CreateApplication :one
INSERT INTO applications (
id, name, phone, experience, position, salary, expected_salary, request_id)
VALUES ( $1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
RETURNING id, name, phone, experience, position, salary, expected_salary, request_id, created_at
`

type CreateApplicationParams struct {
	ID             uuid.UUID
	Name           string
	Phone          string
	Experience     int32
	Position       string
	Salary         int64
	ExpectedSalary int64
	RequestID      sql.NullString
}

func (q *Queries) CreateApplication(ctx context.Context, arg CreateApplicationParams) (Application, error) {
	row := q.db.QueryRowContext(ctx, createApplication,
		arg.ID,
		arg.Name,
		arg.Phone,
		arg.Experience,
		arg.Position,
		arg.Salary,
		arg.ExpectedSalary,
		arg.RequestID,
	)
	var i Application
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Phone,
		&i.Experience,
		&i.Position,
		&i.Salary,
		&i.ExpectedSalary,
		&i.RequestID,
		&i.CreatedAt,
	)
	return i, err
}
