package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
)

const maxUpdateAttempts = 5

// kvRepository stores each document under "<collection>.<id>" in a JetStream KV bucket.
type kvRepository struct {
	kv     jetstream.KeyValue
	logger *slog.Logger
}

func NewKVDocumentRepository(kv jetstream.KeyValue, logger *slog.Logger) DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &kvRepository{kv: kv, logger: logger}
}

func kvKey(collection, id string) string {
	return collection + "." + id
}

func (r *kvRepository) Get(ctx context.Context, collection, id string) (*Document, error) {
	entry, err := r.kv.Get(ctx, kvKey(collection, id))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении документа: %w", err)
	}

	return &Document{Collection: collection, ID: id, Data: entry.Value(), Exists: true}, nil
}

func (r *kvRepository) List(ctx context.Context, collection string) ([]*Document, error) {
	lister, err := r.kv.ListKeysFiltered(ctx, collection+".>")
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении коллекции %s: %w", collection, err)
	}
	defer lister.Stop()

	var ids []string
	for key := range lister.Keys() {
		ids = append(ids, strings.TrimPrefix(key, collection+"."))
	}
	sort.Strings(ids)

	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		doc, err := r.Get(ctx, collection, id)
		if err != nil {
			if errors.Is(err, ErrDocumentNotFound) {
				continue
			}
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// UpdateField rewrites the document with compare-and-set on its revision,
// retrying when a concurrent writer got there first.
func (r *kvRepository) UpdateField(ctx context.Context, collection, id, path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	key := kvKey(collection, id)
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		entry, err := r.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				return fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
			}
			return fmt.Errorf("ошибка при получении документа: %w", err)
		}

		var data map[string]any
		if err := json.Unmarshal(entry.Value(), &data); err != nil {
			return fmt.Errorf("неверный формат документа %s: %w", key, err)
		}

		if err := setPath(data, parts, value); err != nil {
			return fmt.Errorf("%w: %s", err, path)
		}

		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("ошибка сериализации документа: %w", err)
		}

		_, err = r.kv.Update(ctx, key, raw, entry.Revision())
		if err == nil {
			return nil
		}
		if !isRevisionConflict(err) {
			return fmt.Errorf("ошибка при обновлении поля %s: %w", path, err)
		}

		r.logger.Debug("Revision conflict, retrying update", "key", key, "attempt", attempt)
	}

	return fmt.Errorf("не удалось обновить поле %s после %d попыток: %w", path, maxUpdateAttempts, ErrUpdateConflict)
}

func (r *kvRepository) Put(ctx context.Context, collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ошибка сериализации документа: %w", err)
	}

	if _, err := r.kv.Put(ctx, kvKey(collection, id), raw); err != nil {
		return fmt.Errorf("ошибка при сохранении документа: %w", err)
	}

	return nil
}

func (r *kvRepository) Delete(ctx context.Context, collection, id string) error {
	if _, err := r.Get(ctx, collection, id); err != nil {
		return err
	}

	if err := r.kv.Delete(ctx, kvKey(collection, id)); err != nil {
		return fmt.Errorf("ошибка при удалении документа: %w", err)
	}

	return nil
}

func (r *kvRepository) Subscribe(ctx context.Context, collection, id string, fn func(*Document, error)) (func(), error) {
	key := kvKey(collection, id)

	subCtx, cancel := context.WithCancel(ctx)
	watcher, err := r.kv.Watch(subCtx, key)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ошибка подписки на изменения документа: %w", err)
	}

	// initial values end with a nil marker
	delivered := false
	for entry := range watcher.Updates() {
		if entry == nil {
			break
		}
		r.deliverEntry(collection, id, entry, fn)
		delivered = true
	}
	if !delivered {
		fn(&Document{Collection: collection, ID: id}, nil)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-subCtx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil {
					continue
				}
				r.deliverEntry(collection, id, entry, fn)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := watcher.Stop(); err != nil {
				r.logger.Warn("Failed to stop KV watcher", "key", key, "error", err)
			}
			<-done
		})
	}, nil
}

func (r *kvRepository) deliverEntry(collection, id string, entry jetstream.KeyValueEntry, fn func(*Document, error)) {
	switch entry.Operation() {
	case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
		fn(&Document{Collection: collection, ID: id}, nil)
	default:
		fn(&Document{Collection: collection, ID: id, Data: entry.Value(), Exists: true}, nil)
	}
}

func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

// setPath assigns value at the nested key path, creating only the last segment.
func setPath(data map[string]any, parts []string, value any) error {
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return ErrInvalidPath
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return nil
}
