package repository

import (
	"context"
	"errors"
	"time"

	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/pagination"
	"github.com/brainnote/paperbase/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles persistence of document records.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

const documentColumns = `id, object_key, filename, status, title, authors, journal_name, year, doi, abstract, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.ObjectKey, nullableString(d.Filename), d.Status,
		d.Title, d.Authors, d.JournalName, d.Year, d.DOI, d.Abstract,
		d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocumentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// FindByObjectKey returns the most recently created document for an object
// key. Keys are not unique: repeated ingestion of the same key produces
// independent rows, and this picks the newest.
func (r *DocumentRepository) FindByObjectKey(ctx context.Context, objectKey string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE object_key = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		objectKey)
	doc, err := scanDocumentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) UpdateMetadata(ctx context.Context, id string, m domain.Metadata) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET title = $1, authors = $2, journal_name = $3, year = $4, doi = $5, abstract = $6, updated_at = $7
		 WHERE id = $8`,
		m.Title, m.Authors, m.JournalName, m.Year, m.DOI, m.Abstract, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+` FROM documents
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+` FROM documents
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	nextCursor := pagination.CreateNextCursor(items, limit,
		func(d *domain.Document) string { return d.ID },
		func(d *domain.Document) time.Time { return d.CreatedAt },
	)
	if !hasMore {
		nextCursor = ""
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func scanDocumentRow(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var filename *string
	if err := row.Scan(
		&d.ID, &d.ObjectKey, &filename, &d.Status,
		&d.Title, &d.Authors, &d.JournalName, &d.Year, &d.DOI, &d.Abstract,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if filename != nil {
		d.Filename = *filename
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var items []*domain.Document
	for rows.Next() {
		var d domain.Document
		var filename *string
		if err := rows.Scan(
			&d.ID, &d.ObjectKey, &filename, &d.Status,
			&d.Title, &d.Authors, &d.JournalName, &d.Year, &d.DOI, &d.Abstract,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if filename != nil {
			d.Filename = *filename
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}
