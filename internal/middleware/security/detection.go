package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
)

// Reason says why a request was flagged.
type Reason string

const (
	ReasonProbe        Reason = "probe_pattern"
	ReasonScanner      Reason = "scanner_agent"
	ReasonMethod       Reason = "method"
	ReasonOversizedURL Reason = "oversized_url"
	ReasonProxyChain   Reason = "proxy_chain"
)

const (
	maxURLLength = 2048
	maxProxyHops = 5
)

var (
	probePatterns = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "wp-login", "phpmyadmin",
		".php", "etc/passwd", "cmd.exe", "<script", "javascript:", "union select", "eval(",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab", "nuclei",
	}
	probeMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

// DetectionMetrics counts flagged requests.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	ByReason           map[Reason]int64
}

// Detector flags probe traffic and resolves client addresses behind trusted
// proxies. Flagging is advisory; callers still serve the request.
type Detector struct {
	mu        sync.RWMutex
	trusted   []netip.Prefix
	flagged   map[Reason]int64
	invalidIP int64
}

// NewDetector trusts loopback and private ranges as proxies.
func NewDetector() *Detector {
	d := &Detector{flagged: make(map[Reason]int64)}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		d.trusted = append(d.trusted, netip.MustParsePrefix(cidr))
	}
	return d
}

// Inspect returns the first rule r matches.
func (d *Detector) Inspect(r *http.Request) (Reason, bool) {
	reason, ok := classify(r)
	if ok {
		d.mu.Lock()
		d.flagged[reason]++
		d.mu.Unlock()
	}
	return reason, ok
}

// DetectSuspiciousRequest reports whether Inspect flags r.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	_, ok := d.Inspect(r)
	return ok
}

func classify(r *http.Request) (Reason, bool) {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, p := range probePatterns {
		if strings.Contains(target, p) {
			return ReasonProbe, true
		}
	}
	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return ReasonScanner, true
		}
	}
	if probeMethods[r.Method] {
		return ReasonMethod, true
	}
	if len(r.URL.String()) > maxURLLength {
		return ReasonOversizedURL, true
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > maxProxyHops {
		return ReasonProxyChain, true
	}
	return "", false
}

// ExtractClientIP returns the peer address, or the first forwarded address
// when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		d.mu.Lock()
		d.invalidIP++
		d.mu.Unlock()
		return host
	}
	if !d.trustedProxy(peer.Unmap()) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	return host
}

func (d *Detector) trustedProxy(ip netip.Addr) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// AddTrustedProxy trusts forwarded headers from cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.mu.Lock()
	d.trusted = append(d.trusted, p.Masked())
	d.mu.Unlock()
	return nil
}

func (d *Detector) GetMetrics() DetectionMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m := DetectionMetrics{InvalidIPAttempts: d.invalidIP, ByReason: make(map[Reason]int64, len(d.flagged))}
	for reason, n := range d.flagged {
		m.ByReason[reason] = n
		m.SuspiciousRequests += n
	}
	return m
}
