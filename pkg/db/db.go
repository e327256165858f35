package db

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	// use the sqlite db driver.
	_ "github.com/mattn/go-sqlite3"
)

//go:embed base.sql
var baseSQL string

const (
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 20
)

// Database is a document store backed by sqlite. Every document belongs to a named
// collection and holds its fields as a JSON object; subscribers are told about every
// committed write to the collections they watch.
type Database struct {
	conn  *sqlx.DB
	now   func() time.Time
	newID func() string

	mu           sync.Mutex
	listeners    map[uint64]*listener
	nextListener uint64
	closed       bool
}

// NewDatabase connects to the sqlite database at the given filename and initializes the
// structure if not present.
func NewDatabase(ctx context.Context, filename string) (*Database, error) {
	conn, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", filename))
	if err != nil {
		return nil, fmt.Errorf("error connecting to sqlite db at %s: %w", filename, err)
	}

	// one connection serializes writers and subscription queries
	conn.SetMaxOpenConns(1)

	database, err := newDatabase(ctx, conn)
	if err != nil {
		conn.Close()

		return nil, err
	}

	return database, nil
}

func newDatabase(ctx context.Context, conn *sqlx.DB) (*Database, error) {
	newID, err := nanoid.CustomASCII(idAlphabet, idLength)
	if err != nil {
		return nil, fmt.Errorf("error creating id generator: %w", err)
	}

	database := &Database{
		conn:      conn,
		now:       time.Now,
		newID:     newID,
		listeners: map[uint64]*listener{},
	}

	if err := database.initialize(ctx); err != nil {
		return nil, err
	}

	return database, nil
}

func (d *Database) initialize(ctx context.Context) error {
	// run idempotent setup sql to create empty tables if they don't exist
	if _, err := d.conn.ExecContext(ctx, baseSQL); err != nil {
		return fmt.Errorf("error running base sql: %w", err)
	}

	return nil
}

// Close stops every subscription and closes the database connection.
func (d *Database) Close() error {
	d.mu.Lock()
	d.closed = true
	listeners := d.listeners
	d.listeners = map[uint64]*listener{}
	d.mu.Unlock()

	for _, l := range listeners {
		l.stop()
	}

	return d.conn.Close()
}

// Create stores a new document in the collection and returns its store-assigned id.
func (d *Database) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	data, err := encodeFields(fields, d.now())
	if err != nil {
		return "", err
	}

	id := d.newID()

	query, args, err := squirrel.Insert("document").
		Columns("collection", "id", "data").
		Values(collection, id, data).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("error building insert: %w", err)
	}

	if _, err := d.conn.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("error creating document in %s: %w", collection, err)
	}

	log.Debug().Str("collection", collection).Str("id", id).Msg("created document")

	d.notify(collection)

	return id, nil
}

// UpdatePartial merges the given fields into an existing document. Fields that are not
// named are left untouched; a nil value removes the field.
func (d *Database) UpdatePartial(ctx context.Context, collection, id string, fields Fields) error {
	data, err := encodeFields(fields, d.now())
	if err != nil {
		return err
	}

	query, args, err := squirrel.Update("document").
		Set("data", squirrel.Expr("json_patch(data, ?)", data)).
		Where(squirrel.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building update: %w", err)
	}

	result, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating document %s/%s: %w", collection, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating document %s/%s: %w", collection, id, err)
	}

	if affected == 0 {
		return fmt.Errorf("error updating document %s/%s: %w", collection, id, ErrNotFound)
	}

	d.notify(collection)

	return nil
}

// Remove deletes a document. Removing a document that does not exist is not an error.
func (d *Database) Remove(ctx context.Context, collection, id string) error {
	query, args, err := squirrel.Delete("document").
		Where(squirrel.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building delete: %w", err)
	}

	if _, err := d.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error removing document %s/%s: %w", collection, id, err)
	}

	d.notify(collection)

	return nil
}

// Find returns the documents of the collection matching the filter, ordered by id.
func (d *Database) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	builder := squirrel.Select("id", "data").
		From("document").
		Where(squirrel.Eq{"collection": collection}).
		OrderBy("id")

	if filter.Field != "" {
		cond, err := filter.sqlizer()
		if err != nil {
			return nil, err
		}

		builder = builder.Where(cond)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	var rows []documentRow
	if err := d.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error loading documents from %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(rows))

	for _, row := range rows {
		doc, err := row.decode()
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}
