package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/storefront/store"
)

// runStoreTests runs a common test suite against any Store implementation.
func runStoreTests(t *testing.T, s store.Store) {
	t.Helper()

	t.Run("Keys empty", func(t *testing.T) {
		keys, err := s.Keys()
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Get missing", func(t *testing.T) {
		got, err := s.Get("cart")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, s.Put("cart", []byte(`[{"id":"PRD001","quantity":2}]`)))
		got, err := s.Get("cart")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"PRD001","quantity":2}]`, string(got))
	})

	t.Run("Put overwrites", func(t *testing.T) {
		require.NoError(t, s.Put("cart", []byte(`[]`)))
		got, err := s.Get("cart")
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(got))
	})

	t.Run("Keys sorted", func(t *testing.T) {
		require.NoError(t, s.Put("demo_products", []byte(`[]`)))
		require.NoError(t, s.Put("demo_auth_user", []byte(`{"email":"a@example.com"}`)))
		keys, err := s.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{"cart", "demo_auth_user", "demo_products"}, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		existed, err := s.Delete("demo_auth_user")
		require.NoError(t, err)
		assert.True(t, existed)

		got, err := s.Get("demo_auth_user")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete missing", func(t *testing.T) {
		existed, err := s.Delete("demo_auth_user")
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("Invalid key", func(t *testing.T) {
		assert.Error(t, s.Put("../escape", []byte(`{}`)))
		assert.Error(t, s.Put("", []byte(`{}`)))
		assert.Error(t, s.Put("_meta", []byte(`{}`)))
	})
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore()
	runStoreTests(t, s)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := store.NewMemoryStore()
	buf := []byte(`{"a":1}`)
	require.NoError(t, s.Put("k", buf))
	buf[2] = 'b'

	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	got[2] = 'c'
	again, _ := s.Get("k")
	assert.Equal(t, `{"a":1}`, string(again))
}

func TestMemoryStoreClosed(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Close())
	_, err := s.Get("k")
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, s.Put("k", nil), store.ErrClosed)
}

func TestJsonFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)
	runStoreTests(t, s)
}

func TestJsonFileStorePersistence(t *testing.T) {
	dir := t.TempDir()

	s1, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Put("demo_orders", []byte(`[{"id":"ORD1"}]`)))

	// New instance, same dir
	s2, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)
	got, err := s2.Get("demo_orders")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"ORD1"}]`, string(got))
}

func TestJsonFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put("cart", []byte(`[]`)))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cart.json", entries[0].Name())
}

func TestJsonFileStoreRawBytes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cart.json"), []byte("not json"), 0o644))

	s, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)
	got, err := s.Get("cart")
	require.NoError(t, err)
	assert.Equal(t, "not json", string(got))
}

func TestJsonFileStoreSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_meta.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	s, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)
	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSqliteStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewSqliteStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, store.DialectSQLite, s.Dialect())
	runStoreTests(t, s)
}

func TestSqliteStorePersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s1, err := store.NewSqliteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.Put("demo_users", []byte(`[{"email":"a@example.com"}]`)))
	require.NoError(t, s1.Close())

	s2, err := store.NewSqliteStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get("demo_users")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"email":"a@example.com"}]`, string(got))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("STOREFRONT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_POSTGRES_DSN not set")
	}
	s, err := store.NewPostgresStore(dsn, 0)
	require.NoError(t, err)
	defer s.Close()
	for _, k := range []string{"cart", "demo_products", "demo_auth_user"} {
		_, _ = s.Delete(k)
	}
	assert.Equal(t, store.DialectPostgres, s.Dialect())
	runStoreTests(t, s)
}

func TestPostgresStoreRequiresDSN(t *testing.T) {
	_, err := store.NewPostgresStore("", 0)
	assert.Error(t, err)
}

func TestQuotaStore(t *testing.T) {
	q, err := store.NewQuota(store.NewMemoryStore(), 1<<20)
	require.NoError(t, err)
	runStoreTests(t, q)
}

func TestQuotaStoreUsageSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	files, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)
	q, err := store.NewQuota(files, 1<<10)
	require.NoError(t, err)
	require.NoError(t, q.Put("demo_products", []byte(`[{"id":"PRD001","stock":50},{"id":"PRD002","stock":30}]`)))
	require.NoError(t, q.Put("cart", []byte(`{"lines":[{"productId":"PRD001","quantity":2}]}`)))
	require.NoError(t, q.Put("note", []byte("plain text")))
	used := q.Used()
	require.NoError(t, q.Close())

	files, err = store.NewJsonFileStore(dir)
	require.NoError(t, err)
	reopened, err := store.NewQuota(files, 1<<10)
	require.NoError(t, err)
	assert.Equal(t, used, reopened.Used())
}

func TestQuotaStoreRejectsOversizedWrite(t *testing.T) {
	inner := store.NewMemoryStore()
	require.NoError(t, inner.Put("demo_products", []byte("0123456789")))

	q, err := store.NewQuota(inner, 16)
	require.NoError(t, err)
	assert.Equal(t, int64(10), q.Used())

	err = q.Put("cart", []byte("0123456789"))
	require.ErrorIs(t, err, store.ErrQuotaExceeded)
	got, _ := inner.Get("cart")
	assert.Nil(t, got, "rejected write must not reach the inner store")

	// Replacing an existing value only counts the difference.
	require.NoError(t, q.Put("demo_products", []byte("0123456789abcdef")))
	assert.Equal(t, int64(16), q.Used())

	_, err = q.Delete("demo_products")
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.Used())
	require.NoError(t, q.Put("cart", []byte("0123456789")))
}

func TestFactory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := store.New(ctx, store.Options{Backend: "json", DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &store.JsonFileStore{}, s)

	s, err = store.New(ctx, store.Options{DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &store.JsonFileStore{}, s)

	s, err = store.New(ctx, store.Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	s, err = store.New(ctx, store.Options{Backend: "sqlite", DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &store.SQLStore{}, s)
	s.Close()
	assert.FileExists(t, filepath.Join(dir, "storefront.db"))

	s, err = store.New(ctx, store.Options{Backend: "memory", QuotaBytes: 1024})
	require.NoError(t, err)
	assert.IsType(t, &store.QuotaStore{}, s)

	_, err = store.New(ctx, store.Options{Backend: "s3"})
	assert.Error(t, err, "bucket is required")

	_, err = store.New(ctx, store.Options{Backend: "unknown"})
	assert.Error(t, err)
}

func TestJsonFileStoreIsolation(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put("demo_users", []byte(`[1]`)))
	require.NoError(t, s.Put("demo_admin_users", []byte(`[2]`)))

	a, _ := s.Get("demo_users")
	b, _ := s.Get("demo_admin_users")
	assert.JSONEq(t, `[1]`, string(a))
	assert.JSONEq(t, `[2]`, string(b))
}
