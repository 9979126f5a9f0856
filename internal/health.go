package internal

import (
	"context"
	"time"

	"github.com/tavsec/gin-healthcheck/checks"
)

const PING_TIMEOUT = 5 * time.Second

type remoteCheck struct {
	client QueryClient
}

// NewRemoteCheck reports whether the query service answers a trivial query.
func NewRemoteCheck(client QueryClient) checks.Check {
	return remoteCheck{client: client}
}

func (rc remoteCheck) Pass() bool {
	ctx, cancel := context.WithTimeout(context.Background(), PING_TIMEOUT)
	defer cancel()

	if err := rc.client.Ping(ctx); err != nil {
		log.Warnf("query service health check failed: %v", err)
		return false
	}
	return true
}

func (rc remoteCheck) Name() string {
	return "datasette"
}
