package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shabdpress/blog_cms/internal/repo"
	"github.com/shabdpress/blog_cms/internal/service"
	"github.com/shabdpress/blog_cms/pkg/config"
	"github.com/shabdpress/blog_cms/pkg/db"
)

func main() {
	username := flag.String("username", "", "admin username (default $ADMIN_USERNAME)")
	password := flag.String("password", "", "admin password (default $ADMIN_PASSWORD)")
	flag.Parse()

	cfg := config.Load()
	if *username == "" {
		*username = cfg.AdminUsername
	}
	if *password == "" {
		*password = cfg.AdminPassword
	}
	if strings.TrimSpace(*username) == "" || *password == "" {
		fmt.Println("usage: go run ./cmd/seedadmin -username <name> -password <password>")
		os.Exit(2)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatal("DATABASE_URL not set in environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer db.Close(gdb)

	r := repo.New(gdb)
	if err := r.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	svc := &service.AuthService{Repo: r}
	created, err := svc.EnsureAdmin(ctx, *username, *password)
	if err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}
	if !created {
		fmt.Printf("user %s already exists\n", *username)
		return
	}
	fmt.Printf("created admin %s\n", *username)
}
