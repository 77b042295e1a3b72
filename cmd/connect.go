package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/achieve/internal/repositories"
	"github.com/desertthunder/achieve/internal/services"
	"github.com/desertthunder/achieve/internal/shared"
	"github.com/desertthunder/achieve/internal/tasks"
)

// Connection is the backend a command runs against.
//
// Dynamo and Cipher are only set in remote mode.
type Connection struct {
	Tracker *tasks.Tracker
	Dynamo  *repositories.DynamoRepository
	Cipher  *services.KMSCipher
	db      *sql.DB
}

// Close closes the local database, if one was opened.
func (c *Connection) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// ConnectFunc builds a [Connection] from settings.
type ConnectFunc func(ctx context.Context, settings *shared.Settings, logger *log.Logger) (*Connection, error)

// Connect opens the local store or the AWS clients depending on use_local.
//
// In remote mode a remembered login is restored; failing to restore it is logged and leaves the session logged out.
func Connect(ctx context.Context, settings *shared.Settings, logger *log.Logger) (*Connection, error) {
	cfg := settings.Database
	if cfg.UseLocal {
		return connectLocal(settings, logger)
	}

	dynamoClient, err := services.NewDynamoDBClient(ctx, cfg.DynamoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	kmsClient, err := services.NewKMSClient(ctx, cfg.KMS)
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS client: %w", err)
	}

	images, err := remoteImageHost(ctx, cfg)
	if err != nil {
		logger.Warn("image uploads unavailable", "backend", cfg.Images.Backend, "error", err)
		images = nil
	}

	return remoteConnection(ctx, dynamoClient, kmsClient, images, settings, logger), nil
}

// remoteConnection wires the DynamoDB repository and KMS cipher into a tracker and restores any remembered login.
func remoteConnection(
	ctx context.Context,
	dynamoClient services.DynamoDBClient,
	kmsClient services.KMSClient,
	images services.ImageHost,
	settings *shared.Settings,
	logger *log.Logger,
) *Connection {
	cfg := settings.Database
	repo := repositories.NewDynamoRepository(dynamoClient, logger)
	cipher := services.NewKMSCipher(kmsClient, cfg.KMS.KeyAlias)

	tracker := tasks.NewTracker(tasks.TrackerOpts{
		Achievements: repo,
		Accounts:     repo,
		Cipher:       cipher,
		Images:       images,
		Settings:     settings,
		Logger:       logger,
		WriteRate:    cfg.DynamoDB.WriteRate,
	})

	if ok, err := tracker.LoginRemembered(ctx); err != nil {
		logger.Warn("could not restore remembered login", "username", settings.Account.Username, "error", err)
	} else if ok {
		logger.Debug("restored remembered login", "username", settings.Account.Username)
	}

	return &Connection{Tracker: tracker, Dynamo: repo, Cipher: cipher}
}

func connectLocal(settings *shared.Settings, logger *log.Logger) (*Connection, error) {
	db, err := shared.OpenLocalStore(settings.Database.Local.Path)
	if err != nil {
		return nil, err
	}

	tracker := tasks.NewTracker(tasks.TrackerOpts{
		Achievements: repositories.NewSQLiteRepository(db),
		Images:       services.NewLocalImageHost(settings.Database.Images.LocalDir),
		Settings:     settings,
		Logger:       logger,
		Local:        true,
	})
	return &Connection{Tracker: tracker, db: db}, nil
}

// remoteImageHost builds the image host named by images.backend.
func remoteImageHost(ctx context.Context, cfg *shared.DatabaseConfig) (services.ImageHost, error) {
	switch cfg.Images.Backend {
	case "", "drive":
		oauthConfig, err := services.NewDriveOAuthConfig(cfg.Drive)
		if err != nil {
			return nil, err
		}
		return services.NewDriveImageHostFromToken(ctx, oauthConfig, services.NewTokenStore(cfg.Drive.TokenPath))
	case "s3":
		client, err := services.NewS3Client(ctx, cfg.DynamoDB, cfg.Images)
		if err != nil {
			return nil, err
		}
		return services.NewS3ImageHost(client, cfg.Images.S3Bucket, services.S3Region(cfg.DynamoDB, cfg.Images), "")
	case "local":
		return services.NewLocalImageHost(cfg.Images.LocalDir), nil
	default:
		return nil, fmt.Errorf("%w: unknown images.backend %q", shared.ErrInvalidConfig, cfg.Images.Backend)
	}
}

// requireRemote returns the remote clients or [shared.ErrLocalMode].
func (r *Runner) requireRemote(ctx context.Context) (*Connection, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}
	if conn.Dynamo == nil || conn.Cipher == nil {
		return nil, errors.Join(shared.ErrLocalMode, fmt.Errorf("switch with 'achieve options use-remote'"))
	}
	return conn, nil
}
