package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"impacttrip/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// jsonList marshals a string list, storing nil as "[]".
func jsonList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

type Repo struct{ db *sql.DB }

var _ domain.CatalogRepository = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ReplaceOpportunities swaps the whole table in one transaction.
func (r *Repo) ReplaceOpportunities(ctx context.Context, items []domain.CatalogItem) error {
	return r.replace(ctx, deleteOpportunitiesSQL, insertOpportunitiesPrefix, "(?,?,?,?,?,?,?,?,?,?,?)", len(items),
		func(i int) []any {
			it := items[i]
			return []any{
				it.ID, i, it.Title, it.Org, it.Section, it.Duration,
				jsonList(it.Languages), jsonList(it.Tags),
				valStr(it.Fee), valInt(it.MinAge), valStr(it.Image),
			}
		})
}

func (r *Repo) ReplaceHotels(ctx context.Context, hs []domain.Hotel) error {
	return r.replace(ctx, deleteHotelsSQL, insertHotelsPrefix, "(?,?,?,?,?,?,?,?)", len(hs),
		func(i int) []any {
			h := hs[i]
			return []any{h.ID, i, h.Name, h.Area, h.Thumb, h.Currency, h.PricePerNight, h.AffiliateURL}
		})
}

func (r *Repo) replace(ctx context.Context, deleteSQL, insertPrefix, placeholder string, n int, row func(int) []any) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteSQL); err != nil {
		return err
	}
	for start := 0; start < n; start += insertChunk {
		end := min(start+insertChunk, n)
		values := make([]string, 0, end-start)
		var args []any
		for i := start; i < end; i++ {
			values = append(values, placeholder)
			args = append(args, row(i)...)
		}
		if _, err = tx.ExecContext(ctx, insertPrefix+strings.Join(values, ","), args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end, err)
		}
	}
	return tx.Commit()
}

func (r *Repo) LogMiss(ctx context.Context, feed string, position int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, feed, position, reason)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(s scanner) (domain.CatalogItem, error) {
	var it domain.CatalogItem
	var langs, tags []byte
	var fee, image sql.NullString
	var minAge sql.NullInt64
	if err := s.Scan(&it.ID, &it.Title, &it.Org, &it.Section, &it.Duration, &langs, &tags, &fee, &minAge, &image); err != nil {
		return domain.CatalogItem{}, err
	}
	_ = json.Unmarshal(langs, &it.Languages)
	_ = json.Unmarshal(tags, &it.Tags)
	if fee.Valid {
		f := fee.String
		it.Fee = &f
	}
	if minAge.Valid {
		a := int(minAge.Int64)
		it.MinAge = &a
	}
	if image.Valid {
		im := image.String
		it.Image = &im
	}
	return it, nil
}

func (r *Repo) ListOpportunities(ctx context.Context) ([]domain.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, listOpportunitiesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CatalogItem
	for rows.Next() {
		it, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) GetOpportunity(ctx context.Context, id string) (domain.CatalogItem, error) {
	it, err := scanOpportunity(r.db.QueryRowContext(ctx, getOpportunitySQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogItem{}, fmt.Errorf("opportunity %s: %w", id, domain.ErrNotFound)
	}
	return it, err
}

func (r *Repo) ListHotels(ctx context.Context) ([]domain.Hotel, error) {
	rows, err := r.db.QueryContext(ctx, listHotelsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Hotel
	for rows.Next() {
		var h domain.Hotel
		if err := rows.Scan(&h.ID, &h.Name, &h.Area, &h.Thumb, &h.Currency, &h.PricePerNight, &h.AffiliateURL); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
