// Copyright 2026 The GameTaverns Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gametaverns/gametaverns/internal/audit"
	"github.com/gametaverns/gametaverns/internal/config"
	"github.com/gametaverns/gametaverns/internal/identity"
	"github.com/gametaverns/gametaverns/internal/observability/logger"
	"github.com/gametaverns/gametaverns/internal/provision"
	"github.com/gametaverns/gametaverns/internal/store/postgres"
	"github.com/gametaverns/gametaverns/internal/tenant"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "provision <slug> <name> <owner-email> <owner-password>",
		Short: "Provision a new tavern with its owner account",
		Long: `Provision creates a tavern, its owner user, and the owner membership in a
single transaction. In schema isolation mode it also creates the per-tenant
schema. Nothing is left behind on failure.`,
		Args: cobra.ExactArgs(4),
		RunE: runProvision,
	}
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runProvision(cmd *cobra.Command, args []string) error {
	slug, name, email, password := args[0], args[1], args[2], args[3]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	ctx := context.Background()

	db, err := postgres.New(ctx, postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	hasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	provisioner := provision.New(
		postgres.NewProvisionStore(db),
		tenant.NewReservedSlugs(cfg.Platform.ReservedSlugs),
		cfg.Platform.IsolationMode == config.IsolationSchema,
		audit.NewSlogLogger(),
	)

	result, err := provisioner.Provision(ctx, provision.Request{
		Slug:              slug,
		DisplayName:       name,
		OwnerEmail:        email,
		OwnerPasswordHash: hash,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Provisioned tavern %q (id %s)\n", result.Tenant.Slug, result.Tenant.ID)
	if result.OwnerCreated {
		fmt.Printf("✓ Created owner account %s\n", email)
	} else {
		fmt.Printf("✓ Linked existing account %s as owner\n", email)
	}
	fmt.Printf("\nAccess it at: https://%s.%s/\n", result.Tenant.Slug, cfg.Platform.RootDomain)
	return nil
}
