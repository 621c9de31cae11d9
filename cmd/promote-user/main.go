// Command promote-user sets the role of an already synced user. It exists to
// bootstrap the first ADMIN, since role changes otherwise need an admin.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"stockflow/internal/config"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/pkg/database"
	"stockflow/pkg/logger"
)

func main() {
	email := flag.String("email", "", "email of the user to update")
	roleName := flag.String("role", string(model.RoleAdmin), "new role (ADMIN, STAFF or VIEWER)")
	flag.Parse()

	logger.Init("stockflow-promote-user", true)

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}
	role, err := model.ParseRole(*roleName)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid role")
	}

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Find user
	users := repository.NewUserRepo(db)
	user, err := users.FindByEmail(ctx, *email)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Logger.Fatal().Str("email", *email).Msg("user not found; sign in once so the identity webhook creates it")
	}
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load user")
	}

	// 4. Update
	if err := users.UpdateRole(ctx, user.ID, role); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to update role")
	}

	logger.Logger.Info().
		Str("email", user.Email).
		Str("previous_role", string(user.Role)).
		Str("role", string(role)).
		Msg("role updated")
}
