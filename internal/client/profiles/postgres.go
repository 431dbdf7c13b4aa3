package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/profiles/migrations"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore keeps every document as a JSONB row of the documents table.
// A batch runs in one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects with the pgx driver and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

const (
	selectDocument = `SELECT fields FROM documents WHERE collection = $1 AND key = $2`

	upsertDocument = `INSERT INTO documents (collection, key, fields, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, key) DO UPDATE SET fields = excluded.fields, updated_at = now()`

	mergeDocument = `INSERT INTO documents (collection, key, fields, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, key) DO UPDATE SET fields = documents.fields || excluded.fields, updated_at = now()`

	deleteDocument = `DELETE FROM documents WHERE collection = $1 AND key = $2`
)

func (s *PostgresStore) GetDocument(ctx context.Context, collection, key string) (models.Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, selectDocument, collection, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	d := models.Document{}
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return d, nil
}

func (s *PostgresStore) BatchWrite(ctx context.Context, ops []models.WriteOp) error {
	if err := validateBatch(ops); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, op := range ops {
			if err := applyOp(ctx, tx, op); err != nil {
				return fmt.Errorf("%s %s/%s: %w", op.Mode, op.Collection, op.Key, err)
			}
		}
		return nil
	})
}

func applyOp(ctx context.Context, tx dbx.DBTX, op models.WriteOp) error {
	if op.Mode == models.ModeDelete {
		_, err := tx.ExecContext(ctx, deleteDocument, op.Collection, op.Key)
		return err
	}

	fields := op.Fields
	if fields == nil {
		fields = models.Document{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	query := upsertDocument
	if op.Mode == models.ModeMerge {
		query = mergeDocument
	}
	_, err = tx.ExecContext(ctx, query, op.Collection, op.Key, string(raw))
	return err
}
