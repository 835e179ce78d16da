// internal/handlers/conn_limit.go
package handlers

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// ipCounter caps concurrent sockets per client address. A max of 0 disables it.
type ipCounter struct {
	mu    sync.Mutex
	max   int
	conns map[string]int
}

func newIPCounter(max int) *ipCounter {
	return &ipCounter{max: max, conns: make(map[string]int)}
}

// acquire reserves a slot for ip. It reports false when ip is at the cap.
func (c *ipCounter) acquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.max > 0 && c.conns[ip] >= c.max {
		return false
	}
	c.conns[ip]++
	return true
}

func (c *ipCounter) release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[ip] <= 1 {
		delete(c.conns, ip)
		return
	}
	c.conns[ip]--
}

// clientIP is the address chi's RealIP middleware left in RemoteAddr, without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// frameLimiter throttles inbound frames of one socket.
func frameLimiter(perSec float64, burst int) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}
