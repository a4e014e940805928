// Package probe implements the network operations behind a domain report.
//
// Each probe wraps exactly one kind of network call and is safe for
// concurrent use:
//
//   - HTTPProbe issues one GET and captures status and headers. Any HTTP
//     status is data; only transport failures yield status 0.
//   - CertProbe reads the leaf certificate on the TLS port and reports
//     whether it has not yet expired.
//   - DNSProbe resolves A/AAAA records through the system resolver or,
//     when nameservers are configured, directly via miekg/dns.
//
// ParseTarget normalizes user supplied domains for all three probes.
package probe
