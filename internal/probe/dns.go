package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// DNSProbe resolves the A and AAAA records of a domain.
type DNSProbe struct {
	// Nameservers, when set, are queried directly (host or host:port) in order
	// until one answers. Empty means the system resolver.
	Nameservers []string
	Timeout     time.Duration
	Resolver    *net.Resolver
}

// Resolve returns the domain's addresses, A records first. On failure the
// returned slice is empty, never nil.
func (p *DNSProbe) Resolve(ctx context.Context, domain string) ([]netip.Addr, error) {
	target := ParseTarget(domain)
	if target.Host == "" {
		return []netip.Addr{}, fmt.Errorf("no host in %q", domain)
	}

	if addr, err := netip.ParseAddr(target.Host); err == nil {
		return []netip.Addr{addr.Unmap()}, nil
	}

	if len(p.Nameservers) == 0 {
		return p.resolveSystem(ctx, target.Host)
	}
	return p.resolveDirect(ctx, target.Host)
}

func (p *DNSProbe) resolveSystem(ctx context.Context, host string) ([]netip.Addr, error) {
	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return []netip.Addr{}, fmt.Errorf("lookup %s: %w", host, err)
	}

	v4 := make([]netip.Addr, 0, len(addrs))
	v6 := make([]netip.Addr, 0)
	for _, addr := range addrs {
		addr = addr.Unmap()
		if addr.Is4() {
			v4 = append(v4, addr)
		} else {
			v6 = append(v6, addr)
		}
	}
	return dedupeAddrs(append(v4, v6...)), nil
}

type queryTypeResult struct {
	addrs      []netip.Addr
	err        error
	recordType uint16
}

// resolveDirect walks the configured nameservers (sequential failover). An
// authoritative NXDOMAIN stops the walk.
func (p *DNSProbe) resolveDirect(ctx context.Context, host string) ([]netip.Addr, error) {
	var lastErr error
	for _, ns := range p.Nameservers {
		addrs, err := p.queryNameserver(ctx, host, nameserverAddr(ns))
		if err == nil {
			return addrs, nil
		}
		lastErr = err
		if errors.Is(err, errNXDomain) || ctx.Err() != nil {
			break
		}
	}
	return []netip.Addr{}, fmt.Errorf("lookup %s: %w", host, lastErr)
}

var errNXDomain = errors.New("no such host (NXDOMAIN)")

func (p *DNSProbe) queryNameserver(ctx context.Context, host, server string) ([]netip.Addr, error) {
	recordTypes := []uint16{dns.TypeA, dns.TypeAAAA}
	results := make(chan queryTypeResult, len(recordTypes))

	for _, recordType := range recordTypes {
		go func(rType uint16) {
			addrs, err := p.exchange(ctx, host, server, rType)
			results <- queryTypeResult{addrs: addrs, err: err, recordType: rType}
		}(recordType)
	}

	var collectedA, collectedAAAA []netip.Addr
	var errA, errAAAA error
	for range recordTypes {
		res := <-results
		if res.recordType == dns.TypeA {
			collectedA, errA = res.addrs, res.err
		} else {
			collectedAAAA, errAAAA = res.addrs, res.err
		}
	}

	final := dedupeAddrs(append(collectedA, collectedAAAA...))
	if len(final) > 0 {
		return final, nil
	}

	// The A error wins: it carries NXDOMAIN when the name does not exist.
	if errA != nil {
		return nil, errA
	}
	if errAAAA != nil {
		return nil, errAAAA
	}
	return nil, fmt.Errorf("no A or AAAA records from %s", server)
}

func (p *DNSProbe) exchange(ctx context.Context, host, server string, recordType uint16) ([]netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), recordType)

	client := &dns.Client{Net: "udp", Timeout: p.Timeout}
	in, _, err := client.ExchangeContext(ctx, msg, server)
	if err == nil && in.Truncated {
		client.Net = "tcp"
		in, _, err = client.ExchangeContext(ctx, msg, server)
	}
	if err != nil {
		return nil, fmt.Errorf("%s query to %s: %w", dns.TypeToString[recordType], server, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, errNXDomain
	default:
		return nil, fmt.Errorf("%s query to %s: rcode %s", dns.TypeToString[recordType], server, dns.RcodeToString[in.Rcode])
	}

	var addrs []netip.Addr
	for _, rr := range in.Answer {
		var ip net.IP
		switch rec := rr.(type) {
		case *dns.A:
			ip = rec.A
		case *dns.AAAA:
			ip = rec.AAAA
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, addr.Unmap())
		}
	}
	return addrs, nil
}

// NameserversFromResolvConf reads nameserver entries from a resolv.conf style file.
func NameserversFromResolvConf(path string) ([]string, error) {
	cfg, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers, nil
}

// nameserverAddr adds the default DNS port when none is given.
func nameserverAddr(ns string) string {
	if _, _, err := net.SplitHostPort(ns); err == nil {
		return ns
	}
	return net.JoinHostPort(ns, "53")
}

func dedupeAddrs(addrs []netip.Addr) []netip.Addr {
	seen := make(map[netip.Addr]struct{}, len(addrs))
	out := make([]netip.Addr, 0, len(addrs))
	for _, addr := range addrs {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
