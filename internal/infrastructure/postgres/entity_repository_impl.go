package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/internal/domain/repository"
)

// EntityRepository stores any schema-described resource. SQL is generated
// once from the schema; lookups are LEFT JOINs so a missing owner reads as NULL.
type EntityRepository struct {
	db     DB
	schema *entity.Schema

	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
}

func NewEntityRepository(db DB, schema *entity.Schema) *EntityRepository {
	r := &EntityRepository{db: db, schema: schema}
	r.build()
	return r
}

func (r *EntityRepository) Schema() *entity.Schema { return r.schema }

func (r *EntityRepository) build() {
	s := r.schema
	table := ident(s.Table)

	sel := []string{"t." + ident("id")}
	for _, f := range s.Fields {
		sel = append(sel, "t."+ident(f.Name))
	}
	from := table + " t"
	for i, l := range s.Lookups {
		alias := fmt.Sprintf("l%d", i)
		sel = append(sel, fmt.Sprintf("%s.%s AS %s", alias, ident(l.Column), ident(l.Name)))
		from += fmt.Sprintf(" LEFT JOIN %s %s ON %s.%s = t.%s", ident(l.Table), alias, alias, ident("id"), ident(l.Via))
	}
	r.selectSQL = "SELECT " + strings.Join(sel, ", ") + " FROM " + from

	cols := make([]string, len(s.Fields))
	params := make([]string, len(s.Fields))
	sets := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = ident(f.Name)
		params[i] = fmt.Sprintf("$%d", i+1)
		sets[i] = fmt.Sprintf("%s = $%d", ident(f.Name), i+1)
	}
	r.insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table, strings.Join(cols, ", "), strings.Join(params, ", "), ident("id"))
	r.updateSQL = fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		table, strings.Join(sets, ", "), ident("id"), len(s.Fields)+1)
	r.deleteSQL = fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, ident("id"))
}

func (r *EntityRepository) args(rec entity.Record) []any {
	out := make([]any, 0, len(r.schema.Fields)+1)
	for _, f := range r.schema.Fields {
		out = append(out, rec[f.Name])
	}
	return out
}

func (r *EntityRepository) Create(ctx context.Context, rec entity.Record) (entity.Record, error) {
	out := rec.Clone()
	err := WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx, r.insertSQL, r.args(rec)...).Scan(&id); err != nil {
			return err
		}
		out["id"] = id
		return nil
	})
	if err != nil {
		return nil, classify("create "+r.schema.Table, err)
	}
	return out, nil
}

func (r *EntityRepository) Get(ctx context.Context, id int64) (entity.Record, error) {
	recs, err := r.query(ctx, r.selectSQL+" WHERE t."+ident("id")+" = $1", id)
	if err != nil {
		return nil, classify("get "+r.schema.Table, err)
	}
	if len(recs) == 0 {
		return nil, entity.ErrNotFound
	}
	return recs[0], nil
}

func (r *EntityRepository) List(ctx context.Context, filter entity.Filter) ([]entity.Record, error) {
	where, args := whereClause(filter)
	recs, err := r.query(ctx, r.selectSQL+where+" ORDER BY t."+ident("id"), args...)
	if err != nil {
		return nil, classify("list "+r.schema.Table, err)
	}
	return recs, nil
}

func (r *EntityRepository) FindByNaturalKey(ctx context.Context, key entity.Filter) (entity.Record, error) {
	where, args := whereClause(key)
	recs, err := r.query(ctx, r.selectSQL+where+" ORDER BY t."+ident("id")+" LIMIT 1", args...)
	if err != nil {
		return nil, classify("find "+r.schema.Table, err)
	}
	if len(recs) == 0 {
		return nil, entity.ErrNotFound
	}
	return recs[0], nil
}

func (r *EntityRepository) Update(ctx context.Context, rec entity.Record) (entity.Record, error) {
	err := WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, r.updateSQL, append(r.args(rec), rec.ID())...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return entity.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, classify("update "+r.schema.Table, err)
	}
	return rec, nil
}

func (r *EntityRepository) Delete(ctx context.Context, id int64) error {
	err := WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, r.deleteSQL, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return entity.ErrNotFound
		}
		return nil
	})
	return classify("delete "+r.schema.Table, err)
}

func (r *EntityRepository) query(ctx context.Context, sql string, args ...any) ([]entity.Record, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Record{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, r.toRecord(vals))
	}
	return out, rows.Err()
}

// toRecord maps a row in select order (id, fields..., lookups...) onto a record.
func (r *EntityRepository) toRecord(vals []any) entity.Record {
	rec := make(entity.Record, len(vals))
	rec["id"] = vals[0]
	i := 1
	for _, f := range r.schema.Fields {
		if i < len(vals) {
			rec[f.Name] = vals[i]
		}
		i++
	}
	for _, l := range r.schema.Lookups {
		if i < len(vals) {
			rec[l.Name] = vals[i]
		}
		i++
	}
	return rec
}

func whereClause(filter entity.Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		conds[i] = fmt.Sprintf("t.%s = $%d", ident(k), i+1)
		args[i] = filter[k]
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var _ repository.EntityRepository = (*EntityRepository)(nil)
