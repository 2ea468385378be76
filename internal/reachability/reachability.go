// Package reachability answers one question before any browser is launched:
// does the printer respond at all?
package reachability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"

	"github.com/xkilldash9x/printer-snatcher/internal/config"
)

// Prober reports whether host answers within the prober's timeout. A false
// result with a nil error means the host was probed and stayed silent; an
// error means the probe itself could not be carried out.
type Prober interface {
	Reachable(ctx context.Context, host string) (bool, error)
}

// ProberFunc adapts a plain function to the Prober interface.
type ProberFunc func(ctx context.Context, host string) (bool, error)

// Reachable implements Prober.
func (f ProberFunc) Reachable(ctx context.Context, host string) (bool, error) {
	return f(ctx, host)
}

// New builds the prober selected by cfg.Method.
func New(cfg config.ProbeConfig, logger *zap.Logger) (Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Method {
	case config.ProbeMethodICMP:
		return NewICMPProber(cfg.Timeout, cfg.Privileged, logger), nil
	default:
		return NewTCPProber(cfg.Timeout, cfg.Ports, logger), nil
	}
}

// dialContextFunc matches net.Dialer.DialContext.
type dialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TCPProber considers a host reachable when any of its ports accepts a TCP
// connection. Ports are tried in order; the first success wins.
type TCPProber struct {
	timeout time.Duration
	ports   []int
	dial    dialContextFunc
	logger  *zap.Logger
}

// NewTCPProber creates a TCPProber. The timeout bounds the whole probe, not
// each port.
func NewTCPProber(timeout time.Duration, ports []int, logger *zap.Logger) *TCPProber {
	d := &net.Dialer{}
	return &TCPProber{
		timeout: timeout,
		ports:   append([]int(nil), ports...),
		dial:    d.DialContext,
		logger:  logger.Named("tcp_prober"),
	}
}

// Reachable implements Prober.
func (p *TCPProber) Reachable(ctx context.Context, host string) (bool, error) {
	if len(p.ports) == 0 {
		return false, errors.New("tcp prober has no ports configured")
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	for _, port := range p.ports {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		conn, err := p.dial(probeCtx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			p.logger.Debug("Host accepted TCP connection.", zap.String("addr", addr))
			return true, nil
		}
		p.logger.Debug("TCP probe failed.", zap.String("addr", addr), zap.Error(err))

		// The caller gave up; report that rather than "unreachable".
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if probeCtx.Err() != nil {
			break
		}
	}
	return false, nil
}

// pinger is the subset of *probing.Pinger the ICMP prober drives.
type pinger interface {
	RunWithContext(ctx context.Context) error
	Statistics() *probing.Statistics
}

// ICMPProber sends a single echo request and waits for the reply.
type ICMPProber struct {
	timeout    time.Duration
	privileged bool
	newPinger  func(host string) (pinger, error)
	logger     *zap.Logger
}

// NewICMPProber creates an ICMPProber. Unprivileged mode uses UDP "ping
// sockets", which on Linux requires net.ipv4.ping_group_range to include the
// process group.
func NewICMPProber(timeout time.Duration, privileged bool, logger *zap.Logger) *ICMPProber {
	p := &ICMPProber{
		timeout:    timeout,
		privileged: privileged,
		logger:     logger.Named("icmp_prober"),
	}
	p.newPinger = p.buildPinger
	return p
}

func (p *ICMPProber) buildPinger(host string) (pinger, error) {
	pg, err := probing.NewPinger(host)
	if err != nil {
		return nil, err
	}
	pg.Count = 1
	pg.Timeout = p.timeout
	pg.SetPrivileged(p.privileged)
	return pg, nil
}

// Reachable implements Prober.
func (p *ICMPProber) Reachable(ctx context.Context, host string) (bool, error) {
	pg, err := p.newPinger(host)
	if err != nil {
		return false, fmt.Errorf("failed to create pinger for %s: %w", host, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := pg.RunWithContext(probeCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("icmp probe of %s failed: %w", host, err)
	}

	stats := pg.Statistics()
	p.logger.Debug("ICMP probe finished.",
		zap.String("host", host),
		zap.Int("sent", stats.PacketsSent),
		zap.Int("received", stats.PacketsRecv))
	return stats.PacketsRecv > 0, nil
}
