package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/apetrenko/filevault/internal/flagx"
	"github.com/apetrenko/filevault/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "30m" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	PublicBaseURL         string         `json:"public_base_url"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	AccessTokenValidity   timex.Duration `json:"access_token_validity"`
	DownloadGrantValidity timex.Duration `json:"download_grant_validity"`

	BlobBackend       string   `json:"blob_backend"`
	UploadDir         string   `json:"upload_dir"`
	MaxUploadSize     int64    `json:"max_upload_size"`
	AllowedExtensions []string `json:"allowed_extensions"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	EmailHost     string `json:"email_host"`
	EmailPort     int    `json:"email_port"`
	EmailUser     string `json:"email_user"`
	EmailPassword string `json:"email_password"`
	EmailFrom     string `json:"email_from"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics (fatal startup
// condition).
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
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

	config.EndpointAddr = c.EndpointAddr
	config.PublicBaseURL = c.PublicBaseURL
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidity = time.Duration(c.AccessTokenValidity.Duration)
	config.DownloadGrantValidity = time.Duration(c.DownloadGrantValidity.Duration)
	config.BlobBackend = c.BlobBackend
	config.UploadDir = c.UploadDir
	config.MaxUploadSize = c.MaxUploadSize
	config.AllowedExtensions = c.AllowedExtensions
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.EmailHost = c.EmailHost
	config.EmailPort = c.EmailPort
	config.EmailUser = c.EmailUser
	config.EmailPassword = c.EmailPassword
	config.EmailFrom = c.EmailFrom
}
