// Command seed loads users and fixture rows from a YAML file. It is safe to
// run repeatedly: existing users are left alone and rows are upserted by
// natural key.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/oksasatya/tripdesk/config"
	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/internal/container"
	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/pkg/helpers"
)

type seedUser struct {
	UID      string `yaml:"uid"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Car      string `yaml:"car"`
}

// seedFile rows may name their owner by uid with an "owner" key.
type seedFile struct {
	Users    []seedUser                  `yaml:"users"`
	Fixtures map[string][]map[string]any `yaml:"fixtures"`
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	file := flag.String("file", cfg.SeedFile, "seed YAML file")
	flag.Parse()

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read seed file: %v", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		log.Fatalf("parse seed file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	handles, closeAll, err := container.Connect(ctx, cfg, logger, true)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer closeAll()
	c := container.New(cfg, logger, handles)

	for _, su := range seed.Users {
		if _, err := c.UserService.Get(ctx, su.UID); err == nil {
			fmt.Printf("user %s exists, skipped\n", su.UID)
			continue
		} else if !errors.Is(err, application.ErrUserNotFound) {
			log.Fatalf("lookup %s: %v", su.UID, err)
		}
		if su.Password == "" && strings.EqualFold(su.Role, string(entity.RoleAdmin)) {
			su.Password = promptPassword(su.UID)
		}
		u, err := c.UserService.Register(ctx, application.RegisterInput{
			UID: su.UID, Name: su.Name, Email: su.Email, Password: su.Password, Role: su.Role, Car: su.Car,
		})
		if err != nil {
			log.Fatalf("seed user %s: %v", su.UID, err)
		}
		fmt.Printf("seeded user id=%d uid=%s role=%s\n", u.ID, u.UID, u.Role)
	}

	for _, svc := range c.EntitySvcs {
		rows, ok := seed.Fixtures[svc.Schema().Name]
		if !ok {
			continue
		}
		for i, row := range rows {
			if err := resolveOwner(ctx, c.UserService, svc.Schema(), row); err != nil {
				log.Fatalf("%s[%d]: %v", svc.Schema().Name, i, err)
			}
		}
		res := svc.Restore(ctx, rows)
		fmt.Printf("%-16s ok=%d failed=%d\n", svc.Schema().Name, res.SuccessCount, res.ErrorCount)
		for _, e := range res.Errors {
			fmt.Printf("  [%d] %s\n", e.Index, e.Message)
		}
	}
}

func resolveOwner(ctx context.Context, users *application.UserService, s *entity.Schema, row map[string]any) error {
	uid, ok := row["owner"].(string)
	delete(row, "owner")
	if !ok || !s.Owned() {
		return nil
	}
	u, err := users.Get(ctx, uid)
	if err != nil {
		return fmt.Errorf("owner %q: %w", uid, err)
	}
	row[s.OwnerField] = u.ID
	return nil
}

// promptPassword reads the admin password without echo. Outside a terminal
// the default password applies.
func promptPassword(uid string) string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ""
	}
	fmt.Printf("password for %s: ", uid)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		log.Fatalf("read password: %v", err)
	}
	return string(b)
}
