package platform

import (
	"context"
	"time"

	"github.com/junsooki/framecap/internal/capture"
)

func recvWithin(c *capture.Channel, d time.Duration) (capture.Frame, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return c.Recv(ctx)
}
