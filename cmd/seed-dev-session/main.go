// seed-dev-session prepares a local company: it creates the production dashboard if missing,
// stores a Redis session for the `token` header and prints a bearer JWT for the same user.
//
// Usage:
//   DB_DRIVER=sqlite REDIS_ADDRESS=localhost:6379 go run ./cmd/seed-dev-session -company ACME -user u1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/middlewares"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/google/uuid"
)

func main() {
	companyId := flag.String("company", "ACME", "company id")
	userId := flag.String("user", "dev-user", "user id")
	username := flag.String("username", "dev", "username")
	admin := flag.Bool("admin", false, "grant admin (ops endpoints)")
	ttl := flag.Duration("ttl", 24*time.Hour, "session lifetime")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	defer config.DisconnectRedis()

	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	_, err := models.CreateDashboard(ctx, *companyId, nil, *userId)
	switch {
	case err == nil:
		fmt.Printf("created production dashboard for %s\n", *companyId)
	case errors.Is(err, utils.ErrorAlreadyExists):
		fmt.Printf("production dashboard for %s already exists\n", *companyId)
	default:
		fmt.Fprintf(os.Stderr, "failed to create dashboard: %v\n", err)
		os.Exit(1)
	}

	token := uuid.NewString()
	session := middlewares.Session{
		CompanyId: *companyId,
		UserId:    *userId,
		Username:  *username,
		IsAdmin:   *admin,
	}
	if err := config.SetRedisObject(middlewares.SessionKey(token), &session, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "failed to store session: %v\n", err)
		os.Exit(1)
	}

	role := ""
	if *admin {
		role = utils.RoleAdmin
	}
	jwtToken, err := utils.JwtGenerate(*userId, *username, *companyId, role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign jwt: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token: %s\n", token)
	fmt.Printf("authorization: Bearer %s\n", jwtToken)
}
