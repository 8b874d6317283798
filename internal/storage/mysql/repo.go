package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"realestate/internal/domain"
)

// ER_DUP_ENTRY
const errDupEntry = 1062

// Repo stores every kind in one listings table keyed by (kind, property_id).
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) MaxSeq(ctx context.Context, k domain.Kind) (int64, error) {
	var max int64
	if err := r.db.QueryRowContext(ctx, maxSeqSQL, k.Path).Scan(&max); err != nil {
		return 0, fmt.Errorf("max seq %s: %w", k.Path, err)
	}
	return max, nil
}

func (r *Repo) Exists(ctx context.Context, k domain.Kind, propertyID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, existsSQL, k.Path, propertyID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) Insert(ctx context.Context, k domain.Kind, l *domain.Listing) error {
	md, attrs, err := encode(*l)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx, insertListingSQL,
		id,
		k.Path,
		l.PropertyID,
		l.Seq,
		l.Version,
		md,
		attrs,
		l.Metadata.CreatedAt.UTC(),
	)
	if err != nil {
		if isDupEntry(err) {
			return domain.ErrDuplicatePropertyID
		}
		return err
	}
	l.ID = id
	l.Kind = k.Path
	return nil
}

func (r *Repo) Replace(ctx context.Context, k domain.Kind, l domain.Listing) error {
	md, attrs, err := encode(l)
	if err != nil {
		return err
	}
	updatedAt := time.Now().UTC()
	if l.Metadata.UpdatedAt != nil {
		updatedAt = l.Metadata.UpdatedAt.UTC()
	}
	res, err := r.db.ExecContext(ctx, replaceListingSQL, md, attrs, updatedAt, l.ID, k.Path)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for an update that changed nothing; tell that apart from a missing row
		if _, err := r.Get(ctx, k, l.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, k domain.Kind, id string) error {
	res, err := r.db.ExecContext(ctx, deleteListingSQL, id, k.Path)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, k domain.Kind, id string) (domain.Listing, error) {
	return r.getOne(ctx, k, getListingSQL, id)
}

func (r *Repo) GetByPropertyID(ctx context.Context, k domain.Kind, propertyID string) (domain.Listing, error) {
	return r.getOne(ctx, k, getByPropertyIDSQL, propertyID)
}

func (r *Repo) getOne(ctx context.Context, k domain.Kind, query, arg string) (domain.Listing, error) {
	row := r.db.QueryRowContext(ctx, query, arg, k.Path)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, err
	}
	l.Kind = k.Path
	return l, nil
}

func (r *Repo) List(ctx context.Context, k domain.Kind, q domain.ListQuery) (domain.ListingsPage, error) {
	out := domain.ListingsPage{Page: q.Page, Limit: q.Limit, Items: []domain.Listing{}}
	if err := r.db.QueryRowContext(ctx, countListingsSQL, k.Path).Scan(&out.Total); err != nil {
		return domain.ListingsPage{}, err
	}

	rows, err := r.db.QueryContext(ctx, listListingsSQL, k.Path, q.Limit, (q.Page-1)*q.Limit)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return domain.ListingsPage{}, err
		}
		l.Kind = k.Path
		out.Items = append(out.Items, l)
	}
	if err := rows.Err(); err != nil {
		return domain.ListingsPage{}, err
	}
	return out, nil
}

// EnsureIndexes applies the schema. The kinds share one table.
func (r *Repo) EnsureIndexes(ctx context.Context, _ []domain.Kind) error {
	for _, stmt := range schemaSQL {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanListing(s rowScanner) (domain.Listing, error) {
	var (
		l            domain.Listing
		mdRaw, atRaw []byte
	)
	if err := s.Scan(&l.ID, &l.PropertyID, &l.Seq, &l.Version, &mdRaw, &atRaw); err != nil {
		return domain.Listing{}, err
	}
	if err := json.Unmarshal(mdRaw, &l.Metadata); err != nil {
		return domain.Listing{}, fmt.Errorf("decode metadata of %s: %w", l.ID, err)
	}
	if err := json.Unmarshal(atRaw, &l.Attributes); err != nil {
		return domain.Listing{}, fmt.Errorf("decode attributes of %s: %w", l.ID, err)
	}
	if l.Attributes == nil {
		l.Attributes = map[string]any{}
	}
	return l, nil
}

// encode returns JSON text. The values go out as strings: MySQL refuses
// to build a JSON value from a binary-charset []byte parameter.
func encode(l domain.Listing) (md, attrs string, err error) {
	mdb, err := json.Marshal(l.Metadata)
	if err != nil {
		return "", "", err
	}
	clean := make(map[string]any, len(l.Attributes))
	for k, v := range l.Attributes {
		if !domain.IsReservedKey(k) {
			clean[k] = v
		}
	}
	atb, err := json.Marshal(clean)
	if err != nil {
		return "", "", err
	}
	return string(mdb), string(atb), nil
}

func isDupEntry(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}
