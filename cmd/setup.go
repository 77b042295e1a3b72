package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/achieve/internal/shared"
)

// SetupDatabase writes any missing config keys and, in local mode, initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if err := r.settings.SaveDatabase(); err != nil {
		return err
	}
	r.logger.Info("database config written", "path", r.settings.DatabasePath)

	if !r.settings.Database.UseLocal {
		r.writePlain("Remote storage is configured.\n")
		r.writePlain("Run 'achieve admin create-tables' and 'achieve admin create-key' to provision AWS.\n")
		return nil
	}

	path := r.settings.Database.Local.Path
	r.logger.Info("initializing database", "path", path)

	db, err := shared.OpenLocalStore(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	versions, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", path)
	r.writePlain("✓ Local database ready at %s (%d migrations applied)\n", path, len(versions))
	return nil
}

// AdminCreateTables creates both DynamoDB tables, reporting each one's outcome.
func (r *Runner) AdminCreateTables(ctx context.Context, cmd *cli.Command) error {
	conn, err := r.requireRemote(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader("Creating DynamoDB tables")
	var failed int
	for _, result := range conn.Dynamo.CreateTables(ctx, cmd.Duration("wait")) {
		switch {
		case result.Err != nil:
			failed++
			r.writePlain("✗ %s: %v\n", result.Table, result.Err)
		case result.Existed:
			r.writePlain("• %s already exists\n", result.Table)
		default:
			r.writePlain("✓ %s created\n", result.Table)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d table(s) could not be created", shared.ErrServiceUnavailable, failed)
	}
	return nil
}

// AdminCreateKey creates the KMS key used to encrypt passwords and points the configured alias at it.
func (r *Runner) AdminCreateKey(ctx context.Context, cmd *cli.Command) error {
	conn, err := r.requireRemote(ctx)
	if err != nil {
		return err
	}

	keyID, err := conn.Cipher.ProvisionKey(ctx)
	if keyID != "" {
		r.writePlain("Key ID: %s\n", keyID)
	}
	if err != nil {
		return err
	}

	r.logger.Info("created KMS key", "key", keyID, "alias", conn.Cipher.Alias())
	r.writePlain("✓ Alias %s now points at the new key\n", conn.Cipher.Alias())
	return nil
}
