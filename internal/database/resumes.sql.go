package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const createResume = `-- name: CreateResume :one
INSERT INTO resumes (
original_filename, mime, size_bytes, storage_provider, object_key, storage_url, upload_status, application_id)
VALUES ( $1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (object_key) DO UPDATE SET object_key = EXCLUDED.object_key
RETURNING id, original_filename, mime, size_bytes, storage_provider, object_key, storage_url, upload_status, resume_text, created_at, application_id
`

type CreateResumeParams struct {
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	StorageProvider  string
	ObjectKey        string
	StorageUrl       string
	UploadStatus     string
	ApplicationID    uuid.UUID
}

func (q *Queries) CreateResume(ctx context.Context, arg CreateResumeParams) (Resume, error) {
	row := q.db.QueryRowContext(ctx, createResume,
		arg.OriginalFilename,
		arg.Mime,
		arg.SizeBytes,
		arg.StorageProvider,
		arg.ObjectKey,
		arg.StorageUrl,
		arg.UploadStatus,
		arg.ApplicationID,
	)
	var i Resume
	err := row.Scan(
		&i.ID,
		&i.OriginalFilename,
		&i.Mime,
		&i.SizeBytes,
		&i.StorageProvider,
		&i.ObjectKey,
		&i.StorageUrl,
		&i.UploadStatus,
		&i.ResumeText,
		&i.CreatedAt,
		&i.ApplicationID,
	)
	return i, err
}

const getResumesByApplication = `-- name: GetResumesByApplication :many
SELECT id, original_filename, mime, size_bytes, storage_provider, object_key, storage_url, upload_status, resume_text, created_at, application_id FROM resumes WHERE application_id=$1
ORDER BY created_at
`

func (q *Queries) GetResumesByApplication(ctx context.Context, applicationID uuid.UUID) ([]Resume, error) {
	rows, err := q.db.QueryContext(ctx, getResumesByApplication, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Resume
	for rows.Next() {
		var i Resume
		if err := rows.Scan(
			&i.ID,
			&i.OriginalFilename,
			&i.Mime,
			&i.SizeBytes,
			&i.StorageProvider,
			&i.ObjectKey,
			&i.StorageUrl,
			&i.UploadStatus,
			&i.ResumeText,
			&i.CreatedAt,
			&i.ApplicationID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateResumeStatus = `-- name: UpdateResumeStatus :exec
UPDATE resumes
SET upload_status=$1
WHERE id=$2
`

type UpdateResumeStatusParams struct {
	UploadStatus string
	ID           uuid.UUID
}

func (q *Queries) UpdateResumeStatus(ctx context.Context, arg UpdateResumeStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateResumeStatus, arg.UploadStatus, arg.ID)
	return err
}

const updateResumeText = `-- name: UpdateResumeText :exec
UPDATE resumes
SET resume_text=$1, upload_status=$2
WHERE id=$3
`

type UpdateResumeTextParams struct {
	ResumeText   sql.NullString
	UploadStatus string
	ID           uuid.UUID
}

func (q *Queries) UpdateResumeText(ctx context.Context, arg UpdateResumeTextParams) error {
	_, err := q.db.ExecContext(ctx, updateResumeText, arg.ResumeText, arg.UploadStatus, arg.ID)
	return err
}
