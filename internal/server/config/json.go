package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/openvault/openvault/internal/flagx"
	"github.com/openvault/openvault/internal/timex"
)

// JsonConfig is the intermediate DTO for JSON config files. It mirrors
// Config but uses timex.Duration for interval fields so files may write
// either "5m" or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	JWTSecret          string         `json:"jwt_secret"`
	AccessTokenExpiry  string         `json:"access_token_expiry"`
	RefreshTokenExpiry string         `json:"refresh_token_expiry"`
	TOTPIssuer         string         `json:"totp_issuer"`
	ShareBaseURL       string         `json:"share_base_url"`
	DownloadURLTTL     timex.Duration `json:"download_url_ttl"`
	S3AccessKey        string         `json:"s3_access_key"`
	S3SecretKey        string         `json:"s3_secret_key"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3Endpoint         string         `json:"s3_endpoint"`
	Production         bool           `json:"production"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c/-config flags; when
// absent, no file is loaded. Unreadable or invalid files panic: a server
// started against a broken config file should not come up half-configured.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.HTTPAddr != "" {
		config.HTTPAddr = c.HTTPAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.JWTSecret != "" {
		config.JWTSecret = c.JWTSecret
	}
	if c.AccessTokenExpiry != "" {
		config.AccessTokenExpiry = c.AccessTokenExpiry
	}
	if c.RefreshTokenExpiry != "" {
		config.RefreshTokenExpiry = c.RefreshTokenExpiry
	}
	if c.TOTPIssuer != "" {
		config.TOTPIssuer = c.TOTPIssuer
	}
	if c.ShareBaseURL != "" {
		config.ShareBaseURL = c.ShareBaseURL
	}
	if c.DownloadURLTTL.Duration != 0 {
		config.DownloadURLTTL = time.Duration(c.DownloadURLTTL.Duration)
	}
	if c.S3AccessKey != "" {
		config.S3AccessKey = c.S3AccessKey
	}
	if c.S3SecretKey != "" {
		config.S3SecretKey = c.S3SecretKey
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3Endpoint != "" {
		config.S3Endpoint = c.S3Endpoint
	}
	if c.Production {
		config.Production = true
	}
}
