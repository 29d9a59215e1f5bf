// Command seed-user bootstraps the first account interactively so a
// fresh deployment has someone to log in as.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/security"
	"taskboard/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/term"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.LoadConfig(logger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig := config.DefaultDBConfig(cfg.Database.URL)
	dbConfig.Logger = logger
	db, err := config.NewPool(dbConfig)
	if err != nil {
		fmt.Println("Failed to connect to database:", err)
		return
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Migrate(ctx, db, logger); err != nil {
		fmt.Println("Failed to migrate schema:", err)
		return
	}

	hasUsers, err := anyUserExists(ctx, db)
	if err != nil {
		fmt.Println("Failed to check for existing users:", err)
		return
	}
	if hasUsers {
		fmt.Println("Users already exist. Exiting.")
		return
	}

	reader := bufio.NewScanner(os.Stdin)

	fmt.Println("Creating the first user")

	fmt.Println("Enter full name:")
	reader.Scan()
	name := reader.Text()

	fmt.Println("Enter user name:")
	reader.Scan()
	userName := reader.Text()

	fmt.Println("Enter email:")
	reader.Scan()
	email := reader.Text()

	fmt.Println("Enter password:")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Println("Failed to read password:", err)
		return
	}
	password := string(passwordBytes)
	fmt.Println()

	switch {
	case name == "" || userName == "" || email == "":
		fmt.Println("All fields are required")
		return
	case !security.IsValidEmail(email):
		fmt.Println("Invalid email address")
		return
	case !security.IsValidUsername(userName):
		fmt.Println("Invalid user name: use 3-32 letters, digits, underscores or hyphens")
		return
	}
	if err := security.CheckPasswordLength(password, 8); err != nil {
		fmt.Println("Password must be at least 8 characters")
		return
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		fmt.Println("Failed to hash password:", err)
		return
	}

	user, err := store.NewUsers(db).Create(ctx, store.CreateUserParams{
		Name:         name,
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		fmt.Println("Failed to create user:", err)
		return
	}

	fmt.Printf("User %q created with id %d\n", user.UserName, user.ID)
}

func anyUserExists(ctx context.Context, db *pgxpool.Pool) (bool, error) {
	var count int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
