package deps

import (
	"time"

	"github.com/nsmith5/marksync/internal/logger"
	"github.com/nsmith5/marksync/internal/syncer"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time    // for testing, defaults to time.Now
	AllowedHosts []string            // Host headers allowed to access the server
	AllowedCIDRS []string            // IPs allowed to access health endpoints
	TrustProxy   bool                // true if running behind a trusted reverse proxy
	Coordinator  *syncer.Coordinator // sync state: page cache, rate limiter, single-flight
	SiteTitle    string              // display title reported via /api/config
	PageSize     int                 // default page size when the client omits limit
}

// Now returns the injected clock, falling back to time.Now.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
