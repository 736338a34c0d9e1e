package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })

	return sqlxDB, mock
}

var documentColumns = []string{"collection", "doc_id", "data", "updated_at"}

const selectDocumentQuery = `SELECT collection, doc_id, data, updated_at FROM documents WHERE collection = $1 AND doc_id = $2`

type fakeListener struct {
	channel   string
	notify    chan *pq.Notification
	closed    bool
	listenErr error
}

func newFakeListener() *fakeListener {
	return &fakeListener{notify: make(chan *pq.Notification, 4)}
}

func (l *fakeListener) Listen(channel string) error {
	l.channel = channel
	return l.listenErr
}

func (l *fakeListener) NotificationChannel() <-chan *pq.Notification {
	return l.notify
}

func (l *fakeListener) Close() error {
	l.closed = true
	return nil
}

func TestDocumentRepository_Get(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(mock sqlmock.Sqlmock)
		expectError error
		expectData  string
	}{
		{
			name: "Успешное получение документа",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(documentColumns).
					AddRow("users", "u1", []byte(`{"name":"Ann"}`), time.Now())
				mock.ExpectQuery(regexp.QuoteMeta(selectDocumentQuery)).
					WithArgs("users", "u1").
					WillReturnRows(rows)
			},
			expectData: `{"name":"Ann"}`,
		},
		{
			name: "Документ не найден",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(selectDocumentQuery)).
					WithArgs("users", "u1").
					WillReturnError(sql.ErrNoRows)
			},
			expectError: ErrDocumentNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tc.setupMock(mock)

			repo := NewDocumentRepository(db, nil, nil)
			doc, err := repo.Get(context.Background(), "users", "u1")

			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, doc)
			} else {
				require.NoError(t, err)
				assert.True(t, doc.Exists)
				assert.Equal(t, "u1", doc.ID)
				assert.JSONEq(t, tc.expectData, string(doc.Data))
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDocumentRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows(documentColumns).
		AddRow("users", "a", []byte(`{}`), time.Now()).
		AddRow("users", "b", []byte(`{}`), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE collection = $1 ORDER BY doc_id`)).
		WithArgs("users").
		WillReturnRows(rows)

	repo := NewDocumentRepository(db, nil, nil)
	docs, err := repo.List(context.Background(), "users")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_UpdateField(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		setupMock   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "Успешное обновление поля",
			path: "1700000000.p1.isAvailable",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE documents SET`).
					WithArgs("posts", "posts", sqlmock.AnyArg(), "false").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "Документ отсутствует",
			path: "d.p1.isAvailable",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE documents SET`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectError: ErrDocumentNotFound,
		},
		{
			name:        "Пустой сегмент пути",
			path:        "d..isAvailable",
			setupMock:   func(mock sqlmock.Sqlmock) {},
			expectError: ErrInvalidPath,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tc.setupMock(mock)

			repo := NewDocumentRepository(db, nil, nil)
			err := repo.UpdateField(context.Background(), "posts", "posts", tc.path, false)

			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDocumentRepository_PutAndDelete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDocumentRepository(db, nil, nil)
	ctx := context.Background()

	t.Run("Сохранение документа", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO documents`).
			WithArgs("users", "u1", `{"name":"Ann"}`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Put(ctx, "users", "u1", map[string]string{"name": "Ann"})
		assert.NoError(t, err)
	})

	t.Run("Удаление отсутствующего документа", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM documents`).
			WithArgs("users", "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(ctx, "users", "missing")
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	})

	t.Run("Ошибка базы данных при удалении", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM documents`).
			WithArgs("users", "u1").
			WillReturnError(errors.New("connection reset"))

		err := repo.Delete(ctx, "users", "u1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrDocumentNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_Subscribe(t *testing.T) {
	db, mock := setupMockDB(t)
	listener := newFakeListener()

	mock.ExpectQuery(regexp.QuoteMeta(selectDocumentQuery)).
		WithArgs("posts", "posts").
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("posts", "posts", []byte(`{"v":1}`), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(selectDocumentQuery)).
		WithArgs("posts", "posts").
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("posts", "posts", []byte(`{"v":2}`), time.Now()))

	repo := NewDocumentRepository(db, func() Listener { return listener }, nil)

	updates := make(chan string, 4)
	unsubscribe, err := repo.Subscribe(context.Background(), "posts", "posts", func(doc *Document, err error) {
		if assert.NoError(t, err) {
			updates <- string(doc.Data)
		}
	})
	require.NoError(t, err)

	t.Run("Снимок доставляется до возврата", func(t *testing.T) {
		require.Len(t, updates, 1)
		assert.JSONEq(t, `{"v":1}`, <-updates)
		assert.Equal(t, NotifyChannel, listener.channel)
	})

	t.Run("Уведомления о других документах игнорируются", func(t *testing.T) {
		listener.notify <- &pq.Notification{Channel: NotifyChannel, Extra: "users/u1"}
		listener.notify <- &pq.Notification{Channel: NotifyChannel, Extra: "posts/posts"}

		select {
		case data := <-updates:
			assert.JSONEq(t, `{"v":2}`, data)
		case <-time.After(time.Second):
			t.Fatal("изменение не доставлено")
		}
	})

	unsubscribe()
	unsubscribe()

	assert.True(t, listener.closed)
	assert.Empty(t, updates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_SubscribeMissingDocument(t *testing.T) {
	db, mock := setupMockDB(t)
	listener := newFakeListener()

	mock.ExpectQuery(regexp.QuoteMeta(selectDocumentQuery)).
		WithArgs("users", "ghost").
		WillReturnError(sql.ErrNoRows)

	repo := NewDocumentRepository(db, func() Listener { return listener }, nil)

	var got *Document
	unsubscribe, err := repo.Subscribe(context.Background(), "users", "ghost", func(doc *Document, err error) {
		got = doc
	})
	require.NoError(t, err)
	unsubscribe()

	require.NotNil(t, got)
	assert.False(t, got.Exists)
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []string
		wantErr bool
	}{
		{name: "Один сегмент", path: "a", want: []string{"a"}},
		{name: "Вложенный путь", path: "d.p.isVolunteer", want: []string{"d", "p", "isVolunteer"}},
		{name: "Пустой путь", path: "", wantErr: true},
		{name: "Точка в конце", path: "a.", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := splitPath(tc.path)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
