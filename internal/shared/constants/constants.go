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
)

const (
	// DefaultProbeTimeout bounds every individual network probe.
	DefaultProbeTimeout = 10 * time.Second
	// DefaultTLSPort is where the certificate probe connects.
	DefaultTLSPort = "443"
	// BodyDrainLimitBytes caps how much of a probed response body is read before closing.
	BodyDrainLimitBytes = 64 * 1024
	// DefaultUserAgent identifies outbound HTTP probes.
	DefaultUserAgent = "domaindiag/1.0"
)

const (
	// VersionHeader carries "<name> <version>" from the edge platform.
	VersionHeader = "x-0-version"
	// TimingHeader carries comma separated key=value timing pairs.
	TimingHeader = "x-0-t"
)

const (
	// DefaultSourceRetries is the retry cap for fetching the remote domain list.
	DefaultSourceRetries = 5
	// DefaultSourceWaitMin is the first backoff delay between source fetch attempts.
	DefaultSourceWaitMin = 500 * time.Millisecond
	// DefaultSourceWaitMax caps the exponential backoff delay.
	DefaultSourceWaitMax = 10 * time.Second
	// SourceBodyLimitBytes caps the remote domain list payload.
	SourceBodyLimitBytes = 4 << 20
)

const (
	// DefaultMaxAPIBatch limits domains accepted in a single API batch request.
	DefaultMaxAPIBatch = 100
	// APIBodyLimitBytes caps API request bodies.
	APIBodyLimitBytes = 1 << 20
)
