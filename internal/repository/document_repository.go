package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// NotifyChannel is the channel the documents trigger notifies on.
// The payload is "<collection>/<doc_id>".
const NotifyChannel = "document_changes"

// Listener is the subset of *pq.Listener used for subscriptions.
type Listener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
}

type documentRow struct {
	Collection string    `db:"collection"`
	DocID      string    `db:"doc_id"`
	Data       []byte    `db:"data"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type documentRepository struct {
	db          *sqlx.DB
	newListener func() Listener
	logger      *slog.Logger
}

func NewDocumentRepository(db *sqlx.DB, newListener func() Listener, logger *slog.Logger) DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, newListener: newListener, logger: logger}
}

func (r *documentRepository) Get(ctx context.Context, collection, id string) (*Document, error) {
	query := `SELECT collection, doc_id, data, updated_at FROM documents WHERE collection = $1 AND doc_id = $2`

	var row documentRow
	err := r.db.GetContext(ctx, &row, query, collection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении документа: %w", err)
	}

	return &Document{Collection: row.Collection, ID: row.DocID, Data: row.Data, Exists: true}, nil
}

func (r *documentRepository) List(ctx context.Context, collection string) ([]*Document, error) {
	query := `SELECT collection, doc_id, data, updated_at FROM documents WHERE collection = $1 ORDER BY doc_id`

	var rows []documentRow
	err := r.db.SelectContext(ctx, &rows, query, collection)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении коллекции %s: %w", collection, err)
	}

	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, &Document{Collection: row.Collection, ID: row.DocID, Data: row.Data, Exists: true})
	}

	return docs, nil
}

func (r *documentRepository) UpdateField(ctx context.Context, collection, id, path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка сериализации значения поля: %w", err)
	}

	query := `
		UPDATE documents SET
			data = jsonb_set(data, $3::text[], $4::jsonb, true),
			updated_at = NOW()
		WHERE collection = $1 AND doc_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, collection, id, pq.Array(parts), string(data))
	if err != nil {
		return fmt.Errorf("ошибка при обновлении поля %s: %w", path, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
	}

	return nil
}

func (r *documentRepository) Put(ctx context.Context, collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ошибка сериализации документа: %w", err)
	}

	query := `
		INSERT INTO documents (collection, doc_id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, doc_id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("ошибка при сохранении документа: %w", err)
	}

	return nil
}

func (r *documentRepository) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND doc_id = $2`

	result, err := r.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении документа: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке удаленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
	}

	return nil
}

func (r *documentRepository) Subscribe(ctx context.Context, collection, id string, fn func(*Document, error)) (func(), error) {
	listener := r.newListener()
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("ошибка подписки на изменения документа: %w", err)
	}

	// current snapshot first
	r.deliver(ctx, collection, id, fn)

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	key := collection + "/" + id

	go func() {
		defer close(done)
		for {
			select {
			case <-subCtx.Done():
				return
			case n, ok := <-listener.NotificationChannel():
				if !ok {
					return
				}
				// nil is sent after a reconnect, changes may have been missed
				if n == nil || n.Extra == key {
					r.deliver(subCtx, collection, id, fn)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			if err := listener.Close(); err != nil {
				r.logger.Warn("Failed to close listener", "key", key, "error", err)
			}
		})
	}, nil
}

func (r *documentRepository) deliver(ctx context.Context, collection, id string, fn func(*Document, error)) {
	doc, err := r.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			fn(&Document{Collection: collection, ID: id}, nil)
			return
		}
		if ctx.Err() != nil {
			return
		}
		fn(nil, err)
		return
	}
	fn(doc, nil)
}

// splitPath turns a dotted field path into its segments.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: пустой путь", ErrInvalidPath)
	}
	parts := strings.Split(path, ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return parts, nil
}
