package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
	// SecretFilePerm restricts key material to the owning user.
	SecretFilePerm fs.FileMode = 0o600
)

const (
	// DefaultMaxLoginAttempts is the number of consecutive failures that triggers a lockout.
	DefaultMaxLoginAttempts = 3
	// DefaultLockoutWindow is how long credential checks are refused after a lockout.
	DefaultLockoutWindow = 5 * time.Minute
	// DefaultSessionTTL bounds the lifetime of an issued session token.
	DefaultSessionTTL = 24 * time.Hour
)

const (
	// DefaultDoHEndpoint is the public JSON DNS-over-HTTPS resolver used by the subdomain tool.
	DefaultDoHEndpoint = "https://dns.google/resolve"
	// DoHMaxResponseBytes caps how much of a resolver response is decoded.
	DoHMaxResponseBytes = 64 * 1024
)
