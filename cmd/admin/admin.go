// Admin performs one-off maintenance against the Foodie database.
//
//	admin migrate
//	admin useradd <name> <email> <password> [ADMIN|USER]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/foodie/config"
	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/irsalhamdi/foodie/core/user"
	"github.com/irsalhamdi/foodie/database"
	"github.com/irsalhamdi/foodie/validate"
	"github.com/sirupsen/logrus"
)

type adminConfig struct {
	conf.Version
	DB config.DB
}

var errUsage = errors.New("usage: admin migrate | admin useradd <name> <email> <password> [ADMIN|USER]")

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := run(log, os.Args[1:]); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(log logrus.FieldLogger, args []string) error {
	var cfg adminConfig
	help, err := conf.Parse("FOODIE", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	if len(args) == 0 {
		return errUsage
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	switch args[0] {
	case "migrate":
		if err := database.Migrate(db, cfg.DB.Name); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		log.Info("migrations complete")

	case "useradd":
		un, err := parseUser(args[1:])
		if err != nil {
			return err
		}
		if err := validate.Check(un); err != nil {
			return fmt.Errorf("validating user: %w", err)
		}

		usr, err := user.New(un, time.Now())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := user.Create(ctx, db, usr); err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		log.WithFields(logrus.Fields{"user_id": usr.ID, "role": usr.Role}).Info("user created")

	default:
		return errUsage
	}

	return nil
}

func parseUser(args []string) (user.UserNew, error) {
	if len(args) < 3 || len(args) > 4 {
		return user.UserNew{}, errUsage
	}

	un := user.UserNew{
		Name:            args[0],
		Email:           args[1],
		Password:        args[2],
		PasswordConfirm: args[2],
		Role:            claims.RoleAdmin,
	}
	if len(args) == 4 {
		un.Role = args[3]
	}
	return un, nil
}
