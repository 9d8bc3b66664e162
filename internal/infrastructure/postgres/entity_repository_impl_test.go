package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
)

const (
	hotelSelect = `SELECT t."id", t."hotel", t."location", t."rating" FROM "hotels" t`
	hotelInsert = `INSERT INTO "hotels" ("hotel", "location", "rating") VALUES ($1, $2, $3) RETURNING "id"`
	hotelUpdate = `UPDATE "hotels" SET "hotel" = $1, "location" = $2, "rating" = $3 WHERE "id" = $4`
	hotelDelete = `DELETE FROM "hotels" WHERE "id" = $1`

	rateSelect = `SELECT t."id", t."value", t."post_id", t."user_id", l0."name" AS "user_name" ` +
		`FROM "rates" t LEFT JOIN "users" l0 ON l0."id" = t."user_id"`
)

func newEntityRepoWithMock(t *testing.T, schema *entity.Schema) (*EntityRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewEntityRepository(mock, schema), mock
}

func TestEntityRepository_GeneratedSQL(t *testing.T) {
	t.Parallel()
	repo, _ := newEntityRepoWithMock(t, entity.Hotel)
	assert.Equal(t, hotelSelect, repo.selectSQL)
	assert.Equal(t, hotelInsert, repo.insertSQL)
	assert.Equal(t, hotelUpdate, repo.updateSQL)
	assert.Equal(t, hotelDelete, repo.deleteSQL)

	rates, _ := newEntityRepoWithMock(t, entity.Rate)
	assert.Equal(t, rateSelect, rates.selectSQL)
}

func TestEntityRepository_Create_Commits(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Hotel)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(hotelInsert)).
		WithArgs("Ritz", "Paris", int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	in := entity.Record{"hotel": "Ritz", "location": "Paris", "rating": int64(5)}
	got, err := repo.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID())
	assert.Equal(t, "Ritz", got["hotel"])
	_, hasID := in["id"]
	assert.False(t, hasID, "input record must not be mutated")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepository_Create_DuplicateRollsBack(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Rate)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "rates"`).
		WithArgs(int64(4), int64(9), int64(1)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), entity.Record{"value": int64(4), "post_id": int64(9), "user_id": int64(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrDuplicateKey))
	assert.True(t, errors.Is(err, entity.ErrPersistence))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepository_Get_WithLookup(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Rate)

	mock.ExpectQuery(regexp.QuoteMeta(rateSelect + ` WHERE t."id" = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "value", "post_id", "user_id", "user_name"}).
			AddRow(int64(3), int64(5), int64(9), int64(1), nil))

	got, err := repo.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got["value"])
	assert.Contains(t, got, "user_name")
	assert.Nil(t, got["user_name"], "orphaned owner reads as nil")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepository_Get_NotFound(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Hotel)

	mock.ExpectQuery(regexp.QuoteMeta(hotelSelect)).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "hotel", "location", "rating"}))

	_, err := repo.Get(context.Background(), 42)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestEntityRepository_List_Filtered(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Rate)

	mock.ExpectQuery(regexp.QuoteMeta(rateSelect + ` WHERE t."post_id" = $1 AND t."user_id" = $2 ORDER BY t."id"`)).
		WithArgs(int64(9), int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "value", "post_id", "user_id", "user_name"}).
			AddRow(int64(1), int64(4), int64(9), int64(1), "Alice").
			AddRow(int64(2), int64(2), int64(9), int64(1), "Alice"))

	got, err := repo.List(context.Background(), entity.Filter{"user_id": int64(1), "post_id": int64(9)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[1]["user_name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepository_List_EmptyIsNotNil(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Hotel)

	mock.ExpectQuery(regexp.QuoteMeta(hotelSelect + ` ORDER BY t."id"`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "hotel", "location", "rating"}))

	got, err := repo.List(context.Background(), entity.Filter{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)

	// an empty table serialises as [], never null
	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepository_Update_FailureLeavesRecordDiverged(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Hotel)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(hotelUpdate)).
		WithArgs("Ritz", "Lyon", int64(5), int64(7)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	rec := entity.Record{"id": int64(7), "hotel": "Ritz", "location": "Paris", "rating": int64(5)}
	require.NoError(t, entity.Hotel.Merge(rec, map[string]any{"location": "Lyon"}))

	_, err := repo.Update(context.Background(), rec)
	require.ErrorIs(t, err, entity.ErrPersistence)
	assert.False(t, errors.Is(err, entity.ErrDuplicateKey))
	assert.Equal(t, "Lyon", rec["location"], "caller keeps uncommitted values until it re-reads")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepository_Update_Missing(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Hotel)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(hotelUpdate)).
		WithArgs("Ritz", "Paris", int64(5), int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), entity.Record{"id": int64(8), "hotel": "Ritz", "location": "Paris", "rating": int64(5)})
	require.ErrorIs(t, err, entity.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepository_Delete(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Hotel)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(hotelDelete)).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityRepository_FindByNaturalKey(t *testing.T) {
	t.Parallel()
	repo, mock := newEntityRepoWithMock(t, entity.Hotel)

	mock.ExpectQuery(regexp.QuoteMeta(hotelSelect + ` WHERE t."hotel" = $1 ORDER BY t."id" LIMIT 1`)).
		WithArgs("Ritz").
		WillReturnRows(pgxmock.NewRows([]string{"id", "hotel", "location", "rating"}).
			AddRow(int64(7), "Ritz", "Paris", int64(5)))

	got, err := repo.FindByNaturalKey(context.Background(), entity.Filter{"hotel": "Ritz"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID())
	require.NoError(t, mock.ExpectationsWereMet())
}
