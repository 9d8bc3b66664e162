// Package container holds the components built once in main and handed to the router.
// Optional integrations are nil when disabled.
package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/config"
	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/internal/domain/entity"
	repo "github.com/oksasatya/tripdesk/internal/domain/repository"
	"github.com/oksasatya/tripdesk/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/tripdesk/internal/infrastructure/postgres"
	"github.com/oksasatya/tripdesk/pkg/helpers"
)

type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	// Exactly one of PG or Memory is set.
	PG     *pgxpool.Pool
	Memory *memory.Store

	Redis     *redis.Client
	GCS       *storage.Client
	ES        *elasticsearch.Client
	RabbitPub *helpers.RabbitPublisher

	JWT     *helpers.JWTManager
	Cookies *helpers.Manager

	Users    repo.UserRepository
	Entities map[string]repo.EntityRepository

	Auth        *application.AuthService
	UserService *application.UserService
	EntitySvcs  []*application.EntityService
}

// StoreHandles carries the already-connected backends. Nil members are disabled.
type StoreHandles struct {
	PG        *pgxpool.Pool
	Memory    *memory.Store
	Redis     *redis.Client
	GCS       *storage.Client
	ES        *elasticsearch.Client
	RabbitPub *helpers.RabbitPublisher
}

// New builds repositories and services over the given handles.
// A nil PG pool selects the memory store, creating one when needed.
func New(cfg *config.Config, logger *logrus.Logger, h StoreHandles) *Container {
	c := &Container{
		Config:    cfg,
		Logger:    logger,
		PG:        h.PG,
		Memory:    h.Memory,
		Redis:     h.Redis,
		GCS:       h.GCS,
		ES:        h.ES,
		RabbitPub: h.RabbitPub,
		JWT:       helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		Cookies:   helpers.NewCookie(cfg.CookieName, cfg.CookiePath, cfg.CookieDomain, cfg.CookieSecure),
		Entities:  map[string]repo.EntityRepository{},
	}
	if c.PG == nil && c.Memory == nil {
		c.Memory = memory.NewStore()
	}

	if c.PG != nil {
		c.Users = pginfra.NewUserRepository(c.PG)
	} else {
		c.Users = c.Memory.Users()
	}
	for _, s := range entity.Resources() {
		if c.PG != nil {
			c.Entities[s.Name] = pginfra.NewEntityRepository(c.PG, s)
		} else {
			c.Entities[s.Name] = c.Memory.Entities(s)
		}
		c.EntitySvcs = append(c.EntitySvcs, application.NewEntityService(c.Entities[s.Name], logger))
	}

	var revoker application.Revoker
	if cfg.RevokeOnLogout && c.Redis != nil {
		revoker = helpers.NewDenylist(c.Redis)
	}
	c.Auth = application.NewAuthService(c.Users, c.JWT, logger, revoker)

	us := application.NewUserService(c.Users, logger, cfg.DefaultPassword)
	us.AppName = cfg.AppName
	if c.GCS != nil {
		us.GCS, us.GCSBucket = c.GCS, cfg.GCSBucket
	}
	if c.ES != nil {
		us.ES, us.ESUsersIndex = c.ES, cfg.ESUsersIndex
	}
	if c.RabbitPub != nil && cfg.MailSendEnabled {
		us.Publisher = c.RabbitPub
	}
	c.UserService = us
	return c
}

// Backup returns the backup service over every table.
func (c *Container) Backup() *application.BackupService {
	return application.NewBackupService(c.UserService, c.EntitySvcs, c.Logger)
}
