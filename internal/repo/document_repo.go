package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/askdoc/askdoc/internal/model"
	"github.com/askdoc/askdoc/internal/pkg/dbutil"
	apperr "github.com/askdoc/askdoc/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":            doc.ID,
		"original_name": doc.OriginalName,
		"storage_path":  doc.StoragePath,
		"content_type":  doc.ContentType,
		"size_bytes":    doc.SizeBytes,
		"uploaded_at":   doc.UploadedAt,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil && dbutil.IsConflict(err) {
		return apperr.ErrConflict
	}
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*model.Document, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where,
		[]string{"id", "original_name", "storage_path", "content_type", "size_bytes", "uploaded_at"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var doc model.Document
	if err := row.Scan(&doc.ID, &doc.OriginalName, &doc.StoragePath, &doc.ContentType, &doc.SizeBytes, &doc.UploadedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}
