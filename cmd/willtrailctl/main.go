// willtrailctl is the operator CLI. Its only job today is seeding the first
// admin account into a fresh database.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/willtrail/willtrail/internal/common"
	"github.com/willtrail/willtrail/internal/server/auth"
	"github.com/willtrail/willtrail/internal/server/models"
	"github.com/willtrail/willtrail/internal/server/repositories/repomanager"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "willtrailctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "willtrailctl",
		Short:        "WillTrail operator CLI",
		SilenceUsage: true,
	}
	cmd.AddCommand(newSeedAdminCmd())
	return cmd
}

func newSeedAdminCmd() *cobra.Command {
	var dsn, name, email string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the initial admin account",
		Long:  "Creates an admin user, running pending migrations first. The password is prompted without echo.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return errors.New("database dsn is required")
			}
			if name == "" || email == "" {
				return errors.New("name and email are required")
			}

			password, err := promptPassword()
			if err != nil {
				return err
			}
			if len(password) < 8 {
				return errors.New("password must be at least 8 characters")
			}

			return seedAdmin(cmd.Context(), dsn, name, strings.ToLower(strings.TrimSpace(email)), password)
		},
	}
	cmd.Flags().StringVarP(&dsn, "dsn", "d", os.Getenv("DATABASE_DSN"), "Postgres DSN")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Admin display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Admin email")
	return cmd
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func seedAdmin(ctx context.Context, dsn, name, email, password string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := rm.Users(db).Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return fmt.Errorf("account %s already exists", email)
		}
		return err
	}

	fmt.Printf("admin %s created (id %s)\n", user.Email, user.ID)
	return nil
}
