// Package proxy manages the outbound egress pool and the retry loop that
// rotates through it.
package proxy

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// TransportType identifies the tunneling protocol for an endpoint.
type TransportType string

// Supported proxy transports.
const (
	TransportHTTP   TransportType = "http"
	TransportSOCKS5 TransportType = "socks5"
)

// Endpoint is one upstream egress proxy. Immutable once parsed.
type Endpoint struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Transport TransportType
}

// Addr returns the host:port form used for logging and the usedProxy field.
func (e Endpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// ServerURL returns the scheme://host:port form passed to the browser.
func (e Endpoint) ServerURL() string {
	return fmt.Sprintf("%s://%s:%d", e.Transport, e.Host, e.Port)
}

// ParseEndpoint parses "host:port:username:password[:type]".
func ParseEndpoint(raw string) (Endpoint, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 4 || len(parts) > 5 {
		return Endpoint{}, fmt.Errorf("proxy %q: want host:port:username:password[:type]", raw)
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("proxy %q: invalid port %q", raw, parts[1])
	}
	ep := Endpoint{
		Host:      parts[0],
		Port:      port,
		Username:  parts[2],
		Password:  parts[3],
		Transport: TransportHTTP,
	}
	if len(parts) == 5 {
		switch TransportType(strings.ToLower(parts[4])) {
		case TransportHTTP:
			ep.Transport = TransportHTTP
		case TransportSOCKS5:
			ep.Transport = TransportSOCKS5
		default:
			return Endpoint{}, fmt.Errorf("proxy %q: unknown transport %q", raw, parts[4])
		}
	}
	if ep.Host == "" {
		return Endpoint{}, fmt.Errorf("proxy %q: empty host", raw)
	}
	return ep, nil
}

// Policy selects how the pool hands out endpoints.
type Policy string

// Supported selection policies.
const (
	PolicyRoundRobin Policy = "round_robin"
	PolicyRandom     Policy = "random"
)

// Pool hands out endpoints one per attempt. Selection state is guarded by a
// mutex so concurrent requests share the pool safely.
type Pool struct {
	endpoints []Endpoint
	policy    Policy
	logger    *zap.Logger

	mu     sync.Mutex
	cursor int
	unused []int
	rng    *rand.Rand
}

// NewPool parses the configured endpoint strings and builds a pool. An empty
// list is a configuration error.
func NewPool(raws []string, policy Policy, logger *zap.Logger) (*Pool, error) {
	if len(raws) == 0 {
		return nil, fmt.Errorf("proxy pool: no endpoints configured")
	}
	if policy != PolicyRoundRobin && policy != PolicyRandom {
		return nil, fmt.Errorf("proxy pool: unknown policy %q", policy)
	}
	endpoints := make([]Endpoint, 0, len(raws))
	for _, raw := range raws {
		ep, err := ParseEndpoint(raw)
		if err != nil {
			return nil, fmt.Errorf("proxy pool: %w", err)
		}
		endpoints = append(endpoints, ep)
	}
	return &Pool{
		endpoints: endpoints,
		policy:    policy,
		logger:    logger,
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}, nil
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	return len(p.endpoints)
}

// Next returns the endpoint for the next attempt. Round-robin wraps at the
// end of the list; random draws without replacement and refills the candidate
// set once drained.
func (p *Pool) Next() Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.policy == PolicyRoundRobin {
		ep := p.endpoints[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.endpoints)
		return ep
	}

	if len(p.unused) == 0 {
		p.unused = make([]int, len(p.endpoints))
		for i := range p.unused {
			p.unused[i] = i
		}
		if p.logger != nil {
			p.logger.Info("proxy pool exhausted, refilling candidate set",
				zap.Int("size", len(p.endpoints)))
		}
	}
	i := p.rng.Intn(len(p.unused))
	idx := p.unused[i]
	p.unused[i] = p.unused[len(p.unused)-1]
	p.unused = p.unused[:len(p.unused)-1]
	return p.endpoints[idx]
}
