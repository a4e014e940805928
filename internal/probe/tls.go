package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	consts "github.com/khanhnv2901/domaindiag/internal/shared/constants"
)

// CertProbe inspects the leaf certificate served on the TLS port.
type CertProbe struct {
	Port    string           // defaults to 443
	Timeout time.Duration    // dial+handshake bound when ctx has no deadline
	Now     func() time.Time // injectable clock
}

// Valid reports whether the leaf certificate expires strictly after now.
// Any failure to obtain the certificate yields false and the cause.
func (p *CertProbe) Valid(ctx context.Context, domain string) (bool, error) {
	target := ParseTarget(domain)
	if target.Host == "" {
		return false, fmt.Errorf("no host in %q", domain)
	}

	port := p.Port
	if port == "" {
		port = consts.DefaultTLSPort
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: p.Timeout},
		Config: &tls.Config{
			ServerName: target.Host,
			// Expiry is judged below; chain trust is not part of this probe.
			InsecureSkipVerify: true, //nolint:gosec
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(target.Host, port))
	if err != nil {
		return false, fmt.Errorf("tls dial: %w", err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return false, errors.New("tls dial returned a non-TLS connection")
	}

	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return false, errors.New("server presented no certificate")
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return now().Before(certs[0].NotAfter), nil
}
