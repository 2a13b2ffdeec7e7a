// Command opsadmin seeds an operations account so uploads are possible on a
// fresh deployment. It is idempotent: an existing account is left untouched.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/apetrenko/filevault/internal/flagx"
	"github.com/apetrenko/filevault/internal/logging"
	"github.com/apetrenko/filevault/internal/server/config"
	"github.com/apetrenko/filevault/internal/server/mail"
	"github.com/apetrenko/filevault/internal/server/repositories/repomanager"
	"github.com/apetrenko/filevault/internal/server/services"
)

func main() {
	cfg := config.LoadConfig()

	args := flagx.FilterArgs(os.Args[1:], []string{"-username", "-email", "-password"})
	fs := flag.NewFlagSet("opsadmin", flag.ExitOnError)
	username := fs.String("username", "ops_admin", "operations account username")
	email := fs.String("email", "ops@example.com", "operations account email")
	password := fs.String("password", "", "operations account password (required)")
	_ = fs.Parse(args)

	if *password == "" {
		log.Fatal("a password is required: -password <value>")
	}

	ctx := context.Background()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		User:     cfg.EmailUser,
		Password: cfg.EmailPassword,
		From:     cfg.EmailFrom,
	})

	userSvc := services.NewUserService(db, m, mailer, logger, cfg)

	user, created, err := userSvc.EnsureOpsUser(ctx, *username, *email, *password)
	if err != nil {
		log.Fatalf("seeding error: %v", err)
	}

	if created {
		logger.Info(ctx, "operations account created", "id", user.ID, "username", user.Username)
	} else {
		logger.Info(ctx, "operations account already exists", "id", user.ID, "username", user.Username)
	}
}
