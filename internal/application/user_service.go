package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
	repo "github.com/oksasatya/tripdesk/internal/domain/repository"
	"github.com/oksasatya/tripdesk/pkg/helpers"
	"github.com/oksasatya/tripdesk/pkg/mailer"
	"github.com/oksasatya/tripdesk/pkg/mailer/templates"
	"github.com/oksasatya/tripdesk/pkg/validation"
)

var ErrStorageDisabled = errors.New("object storage not configured")

// Publisher queues notification jobs; *helpers.RabbitPublisher implements it.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type UserService struct {
	Repo            repo.UserRepository
	Logger          *logrus.Logger
	DefaultPassword string
	AppName         string

	GCS          *storage.Client
	GCSBucket    string
	ES           *elasticsearch.Client
	ESUsersIndex string
	Publisher    Publisher
}

func NewUserService(r repo.UserRepository, logger *logrus.Logger, defaultPassword string) *UserService {
	return &UserService{Repo: r, Logger: logger, DefaultPassword: defaultPassword, AppName: "tripdesk"}
}

// RegisterInput creates a user. Empty Password falls back to the default password,
// empty Email to entity.DefaultEmail and empty Role to User.
type RegisterInput struct {
	UID      string `json:"uid" binding:"required,uidfmt"`
	Name     string `json:"name" binding:"required,namefmt"`
	Email    string `json:"email" binding:"omitempty,max=255"`
	Password string `json:"password" binding:"omitempty,max=72"`
	Role     string `json:"role" binding:"omitempty"`
	Car      string `json:"car" binding:"omitempty,max=255"`
}

// UpdateUserInput is a partial update; nil fields are left as stored.
// UID selects another user and is only honored for admins.
type UpdateUserInput struct {
	UID       string         `json:"uid"`
	Name      *string        `json:"name" binding:"omitempty,namefmt"`
	Email     *string        `json:"email" binding:"omitempty,max=255"`
	Password  *string        `json:"password" binding:"omitempty,min=1,max=72"`
	Role      *string        `json:"role"`
	Car       *string        `json:"car" binding:"omitempty,max=255"`
	GradeData map[string]any `json:"grade_data"`
	APExam    map[string]any `json:"ap_exam"`
}

func checkVar(field string, v any, rules string) error {
	if err := validation.Var(v, rules); err != nil {
		return &entity.ValidationError{Field: field, Reason: err.Error()}
	}
	return nil
}

func (s *UserService) build(in RegisterInput) (*entity.User, error) {
	uid := strings.TrimSpace(in.UID)
	if err := checkVar("uid", uid, "required,uidfmt"); err != nil {
		return nil, err
	}
	if err := checkVar("name", in.Name, "required,namefmt"); err != nil {
		return nil, err
	}
	role := entity.RoleUser
	if in.Role != "" {
		r, ok := entity.ParseRole(in.Role)
		if !ok {
			return nil, &entity.ValidationError{Field: "role", Reason: "must be User or Admin"}
		}
		role = r
	}
	password := in.Password
	if password == "" {
		password = s.DefaultPassword
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		if errors.Is(err, helpers.ErrEmptyPassword) {
			return nil, &entity.ValidationError{Field: "password", Reason: err.Error()}
		}
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = entity.DefaultEmail
	}
	return &entity.User{
		UID:      uid,
		Name:     in.Name,
		Email:    email,
		Password: hash,
		Role:     role,
		Car:      in.Car,
	}, nil
}

// Register creates a user. A taken uid is a duplicate key error.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	u, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	_ = s.indexUser(ctx, u)
	s.notify(ctx, templates.Welcome, u, nil)
	return u, nil
}

// BulkCreate registers every item with the default password, whatever the input says.
func (s *UserService) BulkCreate(ctx context.Context, items []RegisterInput) BulkResult {
	res := newBulkResult()
	for i, in := range items {
		in.Password = ""
		if _, err := s.Register(ctx, in); err != nil {
			res.fail(i, err)
			continue
		}
		res.ok()
	}
	return res
}

func (s *UserService) Get(ctx context.Context, uid string) (*entity.User, error) {
	u, err := s.Repo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// List returns every user's public view with an access flag for the actor:
// "rw" for admins and for the actor's own row, "ro" otherwise.
func (s *UserService) List(ctx context.Context, actor *entity.User) ([]map[string]any, error) {
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		m := u.Map()
		if CanAccess(actor, u.ID) {
			m["access"] = []string{"rw"}
		} else {
			m["access"] = []string{"ro"}
		}
		out = append(out, m)
	}
	return out, nil
}

// target resolves the user an actor operates on. Only admins may name someone else.
func (s *UserService) target(ctx context.Context, actor *entity.User, uid string) (*entity.User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if uid == "" || uid == actor.UID {
		return s.Get(ctx, actor.UID)
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.Get(ctx, uid)
}

// Update applies a partial update to the actor, or to in.UID when the actor is an admin.
// Only admins may change a role.
func (s *UserService) Update(ctx context.Context, actor *entity.User, in UpdateUserInput) (*entity.User, error) {
	u, err := s.target(ctx, actor, in.UID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if err := checkVar("name", *in.Name, "required,namefmt"); err != nil {
			return nil, err
		}
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
		if u.Email == "" {
			u.Email = entity.DefaultEmail
		}
	}
	if in.Car != nil {
		u.Car = *in.Car
	}
	if in.Role != nil {
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		r, ok := entity.ParseRole(*in.Role)
		if !ok {
			return nil, &entity.ValidationError{Field: "role", Reason: "must be User or Admin"}
		}
		u.Role = r
	}
	if in.Password != nil {
		hash, err := helpers.HashPassword(*in.Password)
		if err != nil {
			return nil, &entity.ValidationError{Field: "password", Reason: err.Error()}
		}
		u.Password = hash
	}
	if in.GradeData != nil {
		u.GradeData = in.GradeData
	}
	if in.APExam != nil {
		u.APExam = in.APExam
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	_ = s.indexUser(ctx, u)
	return u, nil
}

// Delete removes a user by uid. Rows owned by the user are kept.
func (s *UserService) Delete(ctx context.Context, actor *entity.User, uid string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := checkVar("uid", uid, "required"); err != nil {
		return err
	}
	u, err := s.Get(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.unindexUser(ctx, u)
	return nil
}

// ResetPassword sets the user's password back to the default and queues a notification.
func (s *UserService) ResetPassword(ctx context.Context, actor *entity.User, uid string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	u, err := s.Get(ctx, uid)
	if err != nil {
		return err
	}
	hash, err := helpers.HashPassword(s.DefaultPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	if err := s.Repo.Update(ctx, u); err != nil {
		return err
	}
	s.notify(ctx, templates.PasswordReset, u, actor)
	return nil
}

// Document names one of the per-user JSON documents.
type Document string

const (
	GradeData Document = "grade_data"
	APExam    Document = "ap_exam"
)

// GetDocument reads a JSON document of the actor, or of uid when the actor is an admin.
func (s *UserService) GetDocument(ctx context.Context, actor *entity.User, uid string, doc Document) (map[string]any, error) {
	u, err := s.target(ctx, actor, uid)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	switch doc {
	case GradeData:
		out = u.GradeData
	case APExam:
		out = u.APExam
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// SetDocument replaces a JSON document of the actor, or of uid when the actor is an admin.
func (s *UserService) SetDocument(ctx context.Context, actor *entity.User, uid string, doc Document, data map[string]any) (map[string]any, error) {
	if data == nil {
		return nil, &entity.ValidationError{Field: string(doc), Reason: "is required"}
	}
	u, err := s.target(ctx, actor, uid)
	if err != nil {
		return nil, err
	}
	switch doc {
	case GradeData:
		u.GradeData = data
	case APExam:
		u.APExam = data
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return data, nil
}

// UploadPfp stores a profile picture in GCS and records its public URL on the actor.
func (s *UserService) UploadPfp(ctx context.Context, actor *entity.User, r io.Reader, filename, contentType string) (string, error) {
	if actor == nil {
		return "", ErrUnauthenticated
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", ErrStorageDisabled
	}
	u, err := s.Get(ctx, actor.UID)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("pfp", u.UID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	u.Pfp = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return "", err
	}
	return url, nil
}

// ClearPfp removes the profile picture reference. The stored object is left in the bucket.
func (s *UserService) ClearPfp(ctx context.Context, actor *entity.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	u, err := s.Get(ctx, actor.UID)
	if err != nil {
		return err
	}
	u.Pfp = ""
	return s.Repo.Update(ctx, u)
}

// Restore upserts users by uid from backup rows. Backups carry no password hash:
// existing users keep theirs and new users get the default password.
func (s *UserService) Restore(ctx context.Context, items []map[string]any) BulkResult {
	res := newBulkResult()
	for i, item := range items {
		if err := s.restoreOne(ctx, item); err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("index", i).Debug("restore user failed")
			}
			res.fail(i, err)
			continue
		}
		res.ok()
	}
	return res
}

func (s *UserService) restoreOne(ctx context.Context, item map[string]any) error {
	str := func(k string) string {
		v, _ := item[k].(string)
		return v
	}
	doc := func(k string) map[string]any {
		v, _ := item[k].(map[string]any)
		return v
	}
	in := RegisterInput{UID: str("uid"), Name: str("name"), Email: str("email"), Role: str("role"), Car: str("car")}

	existing, err := s.Repo.GetByUID(ctx, in.UID)
	switch {
	case err == nil:
		if err := checkVar("name", in.Name, "required,namefmt"); err != nil {
			return err
		}
		existing.Name = in.Name
		existing.Email = in.Email
		if existing.Email == "" {
			existing.Email = entity.DefaultEmail
		}
		if r, ok := entity.ParseRole(in.Role); ok {
			existing.Role = r
		}
		existing.Car = in.Car
		existing.Pfp = str("pfp")
		existing.GradeData = doc("grade_data")
		existing.APExam = doc("ap_exam")
		return s.Repo.Update(ctx, existing)
	case !errors.Is(err, entity.ErrNotFound):
		return err
	}

	u, err := s.build(in)
	if err != nil {
		return err
	}
	u.Pfp = str("pfp")
	u.GradeData = doc("grade_data")
	u.APExam = doc("ap_exam")
	return s.Repo.Create(ctx, u)
}

// Snapshot returns every user in backup form, without password hashes.
func (s *UserService) Snapshot(ctx context.Context) ([]map[string]any, error) {
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, u.Map())
	}
	return out, nil
}

func (s *UserService) notify(ctx context.Context, tmpl string, u *entity.User, actor *entity.User) {
	if s.Publisher == nil || !strings.Contains(u.Email, "@") {
		return
	}
	data := templates.Data{AppName: s.AppName, Name: u.Name, UID: u.UID, Email: u.Email}
	if actor != nil {
		data.ActorName = actor.Name
	}
	job := mailer.EmailJob{To: u.Email, Template: tmpl, Data: templates.ToMap(data)}
	if err := s.Publisher.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"uid": u.UID, "template": tmpl}).Warn("publish email job failed")
	}
}

func (s *UserService) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":    u.ID,
		"uid":   u.UID,
		"name":  u.Name,
		"email": u.Email,
		"role":  string(u.Role),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{
		Index:      s.ESUsersIndex,
		DocumentID: strconv.FormatInt(u.ID, 10),
		Body:       strings.NewReader(string(b)),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("uid", u.UID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("uid", u.UID).Warn("es index response error")
	}
	return nil
}

func (s *UserService) unindexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Delete(s.ESUsersIndex, strconv.FormatInt(u.ID, 10), s.ES.Delete.WithContext(c))
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("uid", u.UID).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// SearchUsers runs a multi_match query over uid and name. Without Elasticsearch it returns nothing.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"uid^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstreamUnavailable, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		return nil, fmt.Errorf("%w: search %s", entity.ErrUpstreamUnavailable, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
