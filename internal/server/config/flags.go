package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/apetrenko/filevault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-w int      download grant validity, minutes
//	-l string   public base URL used in links
//	-k string   blob backend ("disk" or "s3")
//	-u string   upload directory (disk backend)
//	-m int64    max upload size, bytes
//	-x string   comma-separated allowed extensions
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-w", "-l", "-k", "-u", "-m", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.PublicBaseURL, "l", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend: disk or s3")
	fs.StringVar(&config.UploadDir, "u", config.UploadDir, "upload directory")
	fs.Int64Var(&config.MaxUploadSize, "m", config.MaxUploadSize, "max upload size in bytes")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidity.Minutes()), "access token validity (in minutes)")
	downloadGrantValidity := fs.Int("w", int(config.DownloadGrantValidity.Minutes()), "download grant validity (in minutes)")
	extensions := fs.String("x", strings.Join(config.AllowedExtensions, ","), "comma-separated allowed file extensions")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidity = time.Duration(*accessTokenValidity) * time.Minute
	config.DownloadGrantValidity = time.Duration(*downloadGrantValidity) * time.Minute
	config.AllowedExtensions = strings.Split(*extensions, ",")
}
