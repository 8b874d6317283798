//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/internal/domain"
	mysqlrepo "realestate/internal/storage/mysql"
)

// startMySQL runs an isolated MySQL; Docker picks a free host port.
func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	pool.MaxWait = 2 * time.Minute

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=realestate",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "realestate")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRepo_MySQL_CRUDAndUniqueness(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx, domain.Kinds()))
	// idempotent
	require.NoError(t, repo.EnsureIndexes(ctx, domain.Kinds()))

	k, _ := domain.LookupKind("commercial/lease/others")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, n := range []int64{9, 10} {
		l := domain.Listing{
			PropertyID: domain.FormatPropertyID(k.Prefix, n),
			Seq:        n,
			Metadata:   domain.Metadata{CreatedBy: "it", CreatedAt: base.Add(time.Duration(n) * time.Minute), Status: domain.DefaultStatus},
			Attributes: map[string]any{"basicInformation": map[string]any{"title": fmt.Sprintf("n%d", n)}},
		}
		require.NoError(t, repo.Insert(ctx, k, &l))
	}

	max, err := repo.MaxSeq(ctx, k)
	require.NoError(t, err)
	assert.EqualValues(t, 10, max)

	dup := domain.Listing{PropertyID: "RA-COMLEOT0010", Seq: 10, Metadata: domain.Metadata{CreatedAt: base}}
	assert.ErrorIs(t, repo.Insert(ctx, k, &dup), domain.ErrDuplicatePropertyID)

	got, err := repo.GetByPropertyID(ctx, k, "RA-COMLEOT0010")
	require.NoError(t, err)
	assert.Equal(t, "n10", got.Attributes["basicInformation"].(map[string]any)["title"])

	ts := time.Now().UTC()
	got.Attributes["extra"] = true
	got.Metadata.UpdatedAt = &ts
	require.NoError(t, repo.Replace(ctx, k, got))
	// a no-op replace is still a success
	require.NoError(t, repo.Replace(ctx, k, got))

	page, err := repo.List(ctx, k, domain.ListQuery{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "RA-COMLEOT0010", page.Items[0].PropertyID)
	assert.Equal(t, true, page.Items[0].Attributes["extra"])

	require.NoError(t, repo.Delete(ctx, k, got.ID))
	_, err = repo.Get(ctx, k, got.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSequences_MySQL_ConcurrentNext(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx, nil))

	q := mysqlrepo.NewSequences(db)
	require.NoError(t, q.Seed(ctx, "RA-RESREAP", 100))
	require.NoError(t, q.Seed(ctx, "RA-RESREAP", 5))

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := q.Next(ctx, "RA-RESREAP")
			if err != nil {
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
	for v := range seen {
		assert.Greater(t, v, int64(100))
	}
}
