package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/micrictor/fwrules/internal/wire"
)

const DIAL_TIMEOUT = 5 * time.Second

// Query sends req to the server at addr and waits for its reply until ctx
// expires or timeout passes, whichever is first.
func Query(ctx context.Context, addr string, req wire.Request, timeout time.Duration) (wire.Reply, error) {
	request, err := req.Marshal()
	if err != nil {
		return wire.Reply{}, err
	}

	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, DIAL_TIMEOUT)
	defer cancel()
	conn, err := d.DialContext(dialCtx, "udp", addr)
	if err != nil {
		return wire.Reply{}, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return wire.Reply{}, err
	}

	if _, err := conn.Write(request); err != nil {
		return wire.Reply{}, fmt.Errorf("write: %w", err)
	}

	buffer := make([]byte, wire.MAX_DATAGRAM)
	n, err := conn.Read(buffer)
	if err != nil {
		return wire.Reply{}, fmt.Errorf("read: %w", err)
	}
	return wire.UnmarshalReply(buffer[:n])
}
