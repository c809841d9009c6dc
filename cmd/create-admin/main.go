package main

import (
	"fmt"
	"os"

	"taskboard/backend/internal/auth"
	"taskboard/backend/internal/config"
	"taskboard/backend/internal/domain"
	sqlstore "taskboard/backend/internal/storage/sql"
)

// 管理员账号创建工具，直接写入配置指向的数据库。
func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: create-admin <email> <password> <username>")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]
	username := os.Args[3]

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Println("Database is not configured. Set TASKBOARD_DATABASE_TYPE and TASKBOARD_DATABASE_DSN.")
		os.Exit(1)
	}

	store, err := sqlstore.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		fmt.Printf("Failed to connect database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	authService := auth.NewService(store)
	user, err := authService.Register(auth.RegisterInput{
		Email:    email,
		Username: username,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		fmt.Printf("Failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Admin user created successfully!\n")
	fmt.Printf("  ID:       %s\n", user.ID)
	fmt.Printf("  Email:    %s\n", user.Email)
	fmt.Printf("  Username: %s\n", user.Username)
	fmt.Printf("  Role:     %s\n", user.Role)
}
