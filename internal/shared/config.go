package shared

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultDatabaseConfigPath = "config/database.toml"
	DefaultAccountConfigPath  = "config/account.toml"
	DefaultKeyAlias           = "alias/Achieve_Test2"
)

// DatabaseConfig is the storage configuration: which backend to use and the credentials for each remote service.
type DatabaseConfig struct {
	UseLocal bool           `toml:"use_local"`
	DynamoDB DynamoDBConfig `toml:"dynamodb"`
	KMS      KMSConfig      `toml:"kms"`
	Drive    DriveConfig    `toml:"drive"`
	Images   ImagesConfig   `toml:"images"`
	Local    LocalConfig    `toml:"local"`
}

// DynamoDBConfig contains DynamoDB connection settings.
type DynamoDBConfig struct {
	AccessKey string  `toml:"access_key"`
	SecretKey string  `toml:"secret_key"`
	Endpoint  string  `toml:"endpoint"`
	Region    string  `toml:"region"`
	WriteRate float64 `toml:"write_rate"` // deletes per second during a category cascade
}

// KMSConfig contains AWS KMS connection settings.
type KMSConfig struct {
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	KeyAlias  string `toml:"key_alias"`
}

// DriveConfig contains Google Drive OAuth client credentials.
type DriveConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectPort int    `toml:"redirect_port"`
	TokenPath    string `toml:"token_path"`
}

// ImagesConfig selects where achievement images are hosted in remote mode.
//
// Backend is one of "drive" or "s3". The S3 backend reuses the DynamoDB credentials.
type ImagesConfig struct {
	Backend  string `toml:"backend"`
	S3Bucket string `toml:"s3_bucket"`
	S3Region string `toml:"s3_region"`
	LocalDir string `toml:"local_dir"`
}

// LocalConfig contains settings for the local (SQLite) store.
type LocalConfig struct {
	Path string `toml:"path"`
}

// AccountConfig holds the remembered login.
//
// Password holds the KMS ciphertext of the password, never the plaintext.
type AccountConfig struct {
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	RememberLogin bool   `toml:"remember_login"`
}

var databaseKeys = [][]string{
	{"use_local"},
	{"dynamodb", "access_key"}, {"dynamodb", "secret_key"}, {"dynamodb", "endpoint"}, {"dynamodb", "region"}, {"dynamodb", "write_rate"},
	{"kms", "access_key"}, {"kms", "secret_key"}, {"kms", "endpoint"}, {"kms", "region"}, {"kms", "key_alias"},
	{"drive", "client_id"}, {"drive", "client_secret"}, {"drive", "redirect_port"}, {"drive", "token_path"},
	{"images", "backend"}, {"images", "s3_bucket"}, {"images", "s3_region"}, {"images", "local_dir"},
	{"local", "path"},
}

var accountKeys = [][]string{{"username"}, {"password"}, {"remember_login"}}

// DefaultDatabaseConfig returns the database config used for any key missing from disk.
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		UseLocal: true,
		DynamoDB: DynamoDBConfig{WriteRate: 5},
		KMS:      KMSConfig{KeyAlias: DefaultKeyAlias},
		Drive:    DriveConfig{RedirectPort: 8888, TokenPath: "tokens/drive.json"},
		Images:   ImagesConfig{Backend: "drive", LocalDir: "data/images"},
		Local:    LocalConfig{Path: "data/achieve.db"},
	}
}

// DefaultAccountConfig returns the account config used for any key missing from disk.
func DefaultAccountConfig() *AccountConfig {
	return &AccountConfig{}
}

// Credentials returns the DynamoDB key pair, preferring ACHIEVE_DYNAMODB_ACCESS_KEY and ACHIEVE_DYNAMODB_SECRET_KEY.
func (c DynamoDBConfig) Credentials() (string, string) {
	return envOr("ACHIEVE_DYNAMODB_ACCESS_KEY", c.AccessKey), envOr("ACHIEVE_DYNAMODB_SECRET_KEY", c.SecretKey)
}

// Credentials returns the KMS key pair, preferring ACHIEVE_KMS_ACCESS_KEY and ACHIEVE_KMS_SECRET_KEY.
func (c KMSConfig) Credentials() (string, string) {
	return envOr("ACHIEVE_KMS_ACCESS_KEY", c.AccessKey), envOr("ACHIEVE_KMS_SECRET_KEY", c.SecretKey)
}

// Secret returns the OAuth client secret, preferring ACHIEVE_DRIVE_CLIENT_SECRET.
func (c DriveConfig) Secret() string {
	return envOr("ACHIEVE_DRIVE_CLIENT_SECRET", c.ClientSecret)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoadEnv loads environment overrides from the given .env files. Missing files are ignored.
//
// Overrides are read at use time and never written back to the config files.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Option is one dotted key of the database config and its current value.
type Option struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Secret bool   `json:"secret,omitempty"`
}

type configField struct {
	key    string
	ptr    any
	secret bool
}

func (c *DatabaseConfig) fields() []configField {
	return []configField{
		{key: "use_local", ptr: &c.UseLocal},
		{key: "dynamodb.access_key", ptr: &c.DynamoDB.AccessKey, secret: true},
		{key: "dynamodb.secret_key", ptr: &c.DynamoDB.SecretKey, secret: true},
		{key: "dynamodb.endpoint", ptr: &c.DynamoDB.Endpoint},
		{key: "dynamodb.region", ptr: &c.DynamoDB.Region},
		{key: "dynamodb.write_rate", ptr: &c.DynamoDB.WriteRate},
		{key: "kms.access_key", ptr: &c.KMS.AccessKey, secret: true},
		{key: "kms.secret_key", ptr: &c.KMS.SecretKey, secret: true},
		{key: "kms.endpoint", ptr: &c.KMS.Endpoint},
		{key: "kms.region", ptr: &c.KMS.Region},
		{key: "kms.key_alias", ptr: &c.KMS.KeyAlias},
		{key: "drive.client_id", ptr: &c.Drive.ClientID},
		{key: "drive.client_secret", ptr: &c.Drive.ClientSecret, secret: true},
		{key: "drive.redirect_port", ptr: &c.Drive.RedirectPort},
		{key: "drive.token_path", ptr: &c.Drive.TokenPath},
		{key: "images.backend", ptr: &c.Images.Backend},
		{key: "images.s3_bucket", ptr: &c.Images.S3Bucket},
		{key: "images.s3_region", ptr: &c.Images.S3Region},
		{key: "images.local_dir", ptr: &c.Images.LocalDir},
		{key: "local.path", ptr: &c.Local.Path},
	}
}

// Options lists every key in file order. Secret values are masked unless reveal is set.
func (c *DatabaseConfig) Options(reveal bool) []Option {
	fields := c.fields()
	options := make([]Option, 0, len(fields))
	for _, f := range fields {
		var value string
		switch p := f.ptr.(type) {
		case *string:
			value = *p
		case *bool:
			value = strconv.FormatBool(*p)
		case *int:
			value = strconv.Itoa(*p)
		case *float64:
			value = strconv.FormatFloat(*p, 'f', -1, 64)
		}
		if f.secret && !reveal {
			value = mask(value)
		}
		options = append(options, Option{Key: f.key, Value: value, Secret: f.secret})
	}
	return options
}

// Set parses value for the dotted key and stores it. It does not save the file.
func (c *DatabaseConfig) Set(key, value string) error {
	for _, f := range c.fields() {
		if f.key != key {
			continue
		}

		switch p := f.ptr.(type) {
		case *string:
			*p = value
		case *bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%w: %s expects true or false", ErrInvalidArgument, key)
			}
			*p = b
		case *int:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: %s expects an integer", ErrInvalidArgument, key)
			}
			*p = n
		case *float64:
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("%w: %s expects a number", ErrInvalidArgument, key)
			}
			*p = n
		}
		return nil
	}
	return fmt.Errorf("%w: unknown option %q", ErrInvalidArgument, key)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// Settings bundles both config files with the paths they were loaded from.
type Settings struct {
	Database     *DatabaseConfig
	Account      *AccountConfig
	DatabasePath string
	AccountPath  string
}

// LoadSettings loads (and if needed creates) both config files, returning the dotted names of keys that were filled with defaults.
func LoadSettings(databasePath, accountPath string) (*Settings, []string, error) {
	db, dbAdded, err := LoadDatabaseConfig(databasePath)
	if err != nil {
		return nil, dbAdded, err
	}

	account, accountAdded, err := LoadAccountConfig(accountPath)
	if err != nil {
		return nil, append(dbAdded, accountAdded...), err
	}

	settings := &Settings{
		Database:     db,
		Account:      account,
		DatabasePath: databasePath,
		AccountPath:  accountPath,
	}
	return settings, append(dbAdded, accountAdded...), nil
}

// DefaultSettings returns in-memory settings that are not backed by files.
func DefaultSettings() *Settings {
	return &Settings{Database: DefaultDatabaseConfig(), Account: DefaultAccountConfig()}
}

// SaveDatabase writes the database config back to its file.
func (s *Settings) SaveDatabase() error {
	if s.DatabasePath == "" {
		return fmt.Errorf("%w: database config has no path", ErrMissingConfig)
	}
	return saveTOML(s.DatabasePath, s.Database)
}

// SaveAccount writes the account config back to its file.
func (s *Settings) SaveAccount() error {
	if s.AccountPath == "" {
		return fmt.Errorf("%w: account config has no path", ErrMissingConfig)
	}
	return saveTOML(s.AccountPath, s.Account)
}

// LoadDatabaseConfig reads the database config at path.
//
// Any key absent from the file keeps its default from [DefaultDatabaseConfig]; if at least one key was absent (or the file
// did not exist) the completed config is written back.
func LoadDatabaseConfig(path string) (*DatabaseConfig, []string, error) {
	config := DefaultDatabaseConfig()
	added, err := loadTOML(path, config, databaseKeys)
	if err != nil {
		return nil, added, err
	}
	return config, added, nil
}

// LoadAccountConfig reads the account config at path, filling defaults the same way as [LoadDatabaseConfig].
func LoadAccountConfig(path string) (*AccountConfig, []string, error) {
	config := DefaultAccountConfig()
	added, err := loadTOML(path, config, accountKeys)
	if err != nil {
		return nil, added, err
	}
	return config, added, nil
}

func loadTOML(path string, v any, keys [][]string) ([]string, error) {
	var missing []string

	md, err := toml.DecodeFile(path, v)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		for _, k := range keys {
			missing = append(missing, strings.Join(k, "."))
		}
	case err != nil:
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	default:
		for _, k := range keys {
			if !md.IsDefined(k...) {
				missing = append(missing, strings.Join(k, "."))
			}
		}
	}

	if len(missing) > 0 {
		if err := saveTOML(path, v); err != nil {
			return missing, err
		}
	}
	return missing, nil
}

func saveTOML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
