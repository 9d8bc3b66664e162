package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/pkg/mailer"
	"github.com/oksasatya/tripdesk/pkg/mailer/templates"
)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, body.(mailer.EmailJob))
	return nil
}

func TestUserService_Register_DefaultsAndDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.users.Register(ctx, RegisterInput{UID: "alice", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultEmail, u.Email)
	assert.Equal(t, entity.RoleUser, u.Role)

	_, _, err = f.auth.Authenticate(ctx, "alice", "changeme")
	require.NoError(t, err)

	_, err = f.users.Register(ctx, RegisterInput{UID: "alice", Name: "Other"})
	require.ErrorIs(t, err, entity.ErrDuplicateKey)
	assert.Equal(t, 1, f.store.Count("users"))
}

func TestUserService_Register_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.users.Register(context.Background(), RegisterInput{UID: "a", Name: "Alice"})
	var ve *entity.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "uid", ve.Field)

	_, err = f.users.Register(context.Background(), RegisterInput{UID: "alice", Name: "Alice", Role: "root"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "role", ve.Field)
	assert.Equal(t, 0, f.store.Count("users"))
}

func TestUserService_List_AccessFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "pw1", entity.RoleUser)
	f.register(t, "bob", "pw2", entity.RoleUser)
	admin := f.register(t, "root", "pw3", entity.RoleAdmin)

	rows, err := f.users.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"rw"}, rows[0]["access"])
	assert.Equal(t, []string{"ro"}, rows[1]["access"])
	assert.NotContains(t, rows[0], "password")

	rows, err = f.users.List(ctx, admin)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, []string{"rw"}, r["access"])
	}
}

func TestUserService_Update_TargetRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "pw1", entity.RoleUser)
	f.register(t, "bob", "pw2", entity.RoleUser)
	admin := f.register(t, "root", "pw3", entity.RoleAdmin)

	name := "Alice Liddell"
	u, err := f.users.Update(ctx, alice, UpdateUserInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, u.Name)

	_, err = f.users.Update(ctx, alice, UpdateUserInput{UID: "bob", Name: &name})
	require.ErrorIs(t, err, ErrForbidden)

	role := "Admin"
	_, err = f.users.Update(ctx, alice, UpdateUserInput{Role: &role})
	require.ErrorIs(t, err, ErrForbidden)

	car := "van"
	u, err = f.users.Update(ctx, admin, UpdateUserInput{UID: "bob", Car: &car, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "van", u.Car)
	assert.Equal(t, entity.RoleAdmin, u.Role)

	_, err = f.users.Update(ctx, admin, UpdateUserInput{UID: "ghost", Car: &car})
	require.ErrorIs(t, err, ErrUserNotFound)

	pw := "newpw"
	_, err = f.users.Update(ctx, alice, UpdateUserInput{Password: &pw})
	require.NoError(t, err)
	_, _, err = f.auth.Authenticate(ctx, "alice", "newpw")
	require.NoError(t, err)
}

func TestUserService_Delete_AdminOnlyKeepsOwnedRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "pw1", entity.RoleUser)
	admin := f.register(t, "root", "pw3", entity.RoleAdmin)
	rates := f.entities(entity.Rate)
	r, err := rates.Create(ctx, alice, map[string]any{"value": 5, "post_id": 1})
	require.NoError(t, err)

	require.ErrorIs(t, f.users.Delete(ctx, alice, "root"), ErrForbidden)
	require.ErrorIs(t, f.users.Delete(ctx, admin, "ghost"), ErrUserNotFound)
	require.NoError(t, f.users.Delete(ctx, admin, "alice"))

	orphan, err := rates.Get(ctx, admin, r.ID())
	require.NoError(t, err)
	assert.Nil(t, orphan["user_name"])
}

func TestUserService_ResetPassword_Notifies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	pub := &recordingPublisher{}
	f.users.Publisher = pub
	alice, err := f.users.Register(ctx, RegisterInput{UID: "alice", Name: "Alice", Email: "alice@example.com", Password: "pw1"})
	require.NoError(t, err)
	admin := f.register(t, "root", "pw3", entity.RoleAdmin)

	require.ErrorIs(t, f.users.ResetPassword(ctx, alice, "alice"), ErrForbidden)
	require.NoError(t, f.users.ResetPassword(ctx, admin, "alice"))

	_, _, err = f.auth.Authenticate(ctx, "alice", "changeme")
	require.NoError(t, err)

	require.Len(t, pub.jobs, 2)
	assert.Equal(t, templates.Welcome, pub.jobs[0].Template)
	assert.Equal(t, templates.PasswordReset, pub.jobs[1].Template)
	assert.Equal(t, "alice@example.com", pub.jobs[1].To)
	assert.Equal(t, "root name", pub.jobs[1].Data["ActorName"])
}

func TestUserService_BulkCreate_UsesDefaultPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	res := f.users.BulkCreate(ctx, []RegisterInput{
		{UID: "u1", Name: "User One", Password: "ignored"},
		{UID: "u2", Name: "User Two"},
		{UID: "u3", Name: "User Three"},
		{UID: "u4"},
	})
	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, 3, res.Errors[0].Index)

	_, _, err := f.auth.Authenticate(ctx, "u1", "changeme")
	require.NoError(t, err)
}

func TestUserService_Documents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "pw1", entity.RoleUser)
	f.register(t, "bob", "pw2", entity.RoleUser)
	admin := f.register(t, "root", "pw3", entity.RoleAdmin)

	empty, err := f.users.GetDocument(ctx, alice, "", GradeData)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.users.SetDocument(ctx, alice, "", GradeData, map[string]any{"math": "A"})
	require.NoError(t, err)
	got, err := f.users.GetDocument(ctx, admin, "alice", GradeData)
	require.NoError(t, err)
	assert.Equal(t, "A", got["math"])

	_, err = f.users.GetDocument(ctx, alice, "bob", APExam)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.users.SetDocument(ctx, alice, "", APExam, nil)
	require.ErrorIs(t, err, entity.ErrValidation)
}

func TestUserService_Pfp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "pw1", entity.RoleUser)

	_, err := f.users.UploadPfp(ctx, alice, nil, "me.png", "image/png")
	require.ErrorIs(t, err, ErrStorageDisabled)

	require.NoError(t, f.users.ClearPfp(ctx, alice))
	u, err := f.users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, u.Pfp)
}

func TestUserService_SearchWithoutIndex(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	out, err := f.users.SearchUsers(context.Background(), "ali", 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestUserService_Restore_ByUID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice", "pw1", entity.RoleUser)

	items := []map[string]any{
		{"id": float64(1), "uid": "alice", "name": "Alice Restored", "email": "a@x.io", "role": "User", "grade_data": map[string]any{"math": "B"}},
		{"id": float64(2), "uid": "bob", "name": "Bob", "email": "?", "role": "Admin"},
	}
	for i := 0; i < 2; i++ {
		res := f.users.Restore(ctx, items)
		require.Equal(t, 2, res.SuccessCount, res.Errors)
	}
	assert.Equal(t, 2, f.store.Count("users"))

	// existing users keep their password, new ones get the default
	_, _, err := f.auth.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
	bob, _, err := f.auth.Authenticate(ctx, "bob", "changeme")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, bob.Role)

	alice, err := f.users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Restored", alice.Name)
	assert.Equal(t, "B", alice.GradeData["math"])
}
