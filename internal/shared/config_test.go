package shared

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultDatabaseConfig", func(t *testing.T) {
		config := DefaultDatabaseConfig()

		if !config.UseLocal {
			t.Error("expected use_local to default to true")
		}

		if config.KMS.KeyAlias != "alias/Achieve_Test2" {
			t.Errorf("expected key alias alias/Achieve_Test2, got %s", config.KMS.KeyAlias)
		}

		if config.Drive.RedirectPort != 8888 {
			t.Errorf("expected redirect port 8888, got %d", config.Drive.RedirectPort)
		}

		if config.DynamoDB.AccessKey != "" || config.KMS.SecretKey != "" || config.Drive.ClientID != "" {
			t.Error("expected credentials to default to empty strings")
		}
	})

	t.Run("DefaultAccountConfig", func(t *testing.T) {
		config := DefaultAccountConfig()
		if config.Username != "" || config.Password != "" || config.RememberLogin {
			t.Errorf("expected empty account config, got %+v", config)
		}
	})

	t.Run("missing file is created with every default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config", "database.toml")

		config, added, err := LoadDatabaseConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if len(added) != len(databaseKeys) {
			t.Errorf("expected %d added keys, got %d", len(databaseKeys), len(added))
		}

		if !config.UseLocal {
			t.Error("expected use_local default")
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		for _, want := range []string{"use_local = true", "[dynamodb]", "key_alias = \"alias/Achieve_Test2\""} {
			if !strings.Contains(string(data), want) {
				t.Errorf("expected saved config to contain %q, got:\n%s", want, data)
			}
		}
	})

	t.Run("missing keys are filled and persisted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "database.toml")
		partial := `use_local = false

[dynamodb]
access_key = "AKIA"
region = "us-west-2"
`
		if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, added, err := LoadDatabaseConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.UseLocal {
			t.Error("expected use_local from file to be kept")
		}
		if config.DynamoDB.AccessKey != "AKIA" {
			t.Errorf("expected access key AKIA, got %s", config.DynamoDB.AccessKey)
		}
		if config.KMS.KeyAlias != DefaultKeyAlias {
			t.Errorf("expected default key alias, got %s", config.KMS.KeyAlias)
		}

		if slices.Contains(added, "use_local") || slices.Contains(added, "dynamodb.access_key") {
			t.Errorf("present keys reported as added: %v", added)
		}
		if !slices.Contains(added, "kms.key_alias") || !slices.Contains(added, "dynamodb.secret_key") {
			t.Errorf("expected missing keys to be reported, got %v", added)
		}

		reloaded, again, err := LoadDatabaseConfig(path)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if len(again) != 0 {
			t.Errorf("expected no missing keys after save, got %v", again)
		}
		if reloaded.DynamoDB.Region != "us-west-2" || reloaded.Drive.TokenPath != "tokens/drive.json" {
			t.Errorf("unexpected reloaded config: %+v", reloaded)
		}
	})

	t.Run("complete file is not rewritten", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "account.toml")
		full := "username = \"ana\"\npassword = \"Y2lwaGVy\"\nremember_login = true\n"
		if err := os.WriteFile(path, []byte(full), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, added, err := LoadAccountConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if len(added) != 0 {
			t.Errorf("expected no added keys, got %v", added)
		}
		if !config.RememberLogin || config.Username != "ana" {
			t.Errorf("unexpected account config: %+v", config)
		}

		data, _ := os.ReadFile(path)
		if string(data) != full {
			t.Errorf("file should be untouched, got:\n%s", data)
		}
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "database.toml")
		if err := os.WriteFile(path, []byte("use_local = [nope"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		_, _, err := LoadDatabaseConfig(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadSettings and save", func(t *testing.T) {
		dir := t.TempDir()
		settings, added, err := LoadSettings(filepath.Join(dir, "database.toml"), filepath.Join(dir, "account.toml"))
		if err != nil {
			t.Fatalf("failed to load settings: %v", err)
		}
		if len(added) != len(databaseKeys)+len(accountKeys) {
			t.Errorf("expected every key to be added, got %d", len(added))
		}

		settings.Database.UseLocal = false
		settings.Account.Username = "ana"
		if err := settings.SaveDatabase(); err != nil {
			t.Fatalf("failed to save database config: %v", err)
		}
		if err := settings.SaveAccount(); err != nil {
			t.Fatalf("failed to save account config: %v", err)
		}

		reloaded, _, err := LoadSettings(settings.DatabasePath, settings.AccountPath)
		if err != nil {
			t.Fatalf("failed to reload settings: %v", err)
		}
		if reloaded.Database.UseLocal || reloaded.Account.Username != "ana" {
			t.Errorf("changes were not persisted: %+v %+v", reloaded.Database, reloaded.Account)
		}
	})

	t.Run("DefaultSettings cannot be saved", func(t *testing.T) {
		if err := DefaultSettings().SaveDatabase(); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestCredentialOverrides(t *testing.T) {
	t.Run("env takes precedence", func(t *testing.T) {
		t.Setenv("ACHIEVE_DYNAMODB_ACCESS_KEY", "env-access")
		t.Setenv("ACHIEVE_DYNAMODB_SECRET_KEY", "")

		access, secret := DynamoDBConfig{AccessKey: "file-access", SecretKey: "file-secret"}.Credentials()
		if access != "env-access" {
			t.Errorf("expected env access key, got %s", access)
		}
		if secret != "file-secret" {
			t.Errorf("expected file secret when env is empty, got %s", secret)
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("ACHIEVE_DRIVE_CLIENT_SECRET=from-dotenv\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("ACHIEVE_DRIVE_CLIENT_SECRET", "")
		os.Unsetenv("ACHIEVE_DRIVE_CLIENT_SECRET")

		if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Fatalf("failed to load env: %v", err)
		}

		if got := (DriveConfig{ClientSecret: "file"}).Secret(); got != "from-dotenv" {
			t.Errorf("expected secret from .env, got %s", got)
		}
	})
}

func TestOptions(t *testing.T) {
	t.Run("every config key is an option", func(t *testing.T) {
		options := DefaultDatabaseConfig().Options(false)
		if len(options) != len(databaseKeys) {
			t.Fatalf("expected %d options, got %d", len(databaseKeys), len(options))
		}
		for i, k := range databaseKeys {
			if options[i].Key != strings.Join(k, ".") {
				t.Errorf("option %d: expected %s, got %s", i, strings.Join(k, "."), options[i].Key)
			}
		}
	})

	t.Run("secrets are masked", func(t *testing.T) {
		config := DefaultDatabaseConfig()
		config.DynamoDB.SecretKey = "abcdefgh1234"
		config.KMS.AccessKey = "abc"

		values := map[string]string{}
		for _, o := range config.Options(false) {
			values[o.Key] = o.Value
		}
		if values["dynamodb.secret_key"] != "****1234" {
			t.Errorf("expected masked secret, got %q", values["dynamodb.secret_key"])
		}
		if values["kms.access_key"] != "****" {
			t.Errorf("expected short secret fully masked, got %q", values["kms.access_key"])
		}
		if values["kms.secret_key"] != "" {
			t.Errorf("expected empty secret to stay empty, got %q", values["kms.secret_key"])
		}

		for _, o := range config.Options(true) {
			if o.Key == "dynamodb.secret_key" && o.Value != "abcdefgh1234" {
				t.Errorf("expected revealed secret, got %q", o.Value)
			}
		}
	})

	t.Run("Set parses by type", func(t *testing.T) {
		config := DefaultDatabaseConfig()
		for key, value := range map[string]string{
			"use_local":           "false",
			"dynamodb.region":     "us-west-2",
			"dynamodb.write_rate": "2.5",
			"drive.redirect_port": "9999",
		} {
			if err := config.Set(key, value); err != nil {
				t.Fatalf("Set(%s): %v", key, err)
			}
		}

		if config.UseLocal {
			t.Error("expected use_local false")
		}
		if config.DynamoDB.Region != "us-west-2" {
			t.Errorf("unexpected region %q", config.DynamoDB.Region)
		}
		if config.DynamoDB.WriteRate != 2.5 {
			t.Errorf("unexpected write rate %v", config.DynamoDB.WriteRate)
		}
		if config.Drive.RedirectPort != 9999 {
			t.Errorf("unexpected port %d", config.Drive.RedirectPort)
		}
	})

	t.Run("Set rejects bad input", func(t *testing.T) {
		config := DefaultDatabaseConfig()
		for _, tc := range [][2]string{
			{"nope", "x"},
			{"use_local", "maybe"},
			{"drive.redirect_port", "eighty"},
			{"dynamodb.write_rate", "fast"},
		} {
			if err := config.Set(tc[0], tc[1]); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Set(%s, %s): expected ErrInvalidArgument, got %v", tc[0], tc[1], err)
			}
		}
	})
}
