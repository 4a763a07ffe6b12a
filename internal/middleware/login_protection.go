// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedIPs caps the limiter map; beyond this the whole map is dropped
// rather than evicted entry by entry.
const maxTrackedIPs = 10000

// LoginProtection throttles login attempts per client IP and locks
// accounts after repeated failures. Lockout duration doubles with every
// lockout, capped at 24 hours.
type LoginProtection struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	failures map[string]*failureRecord

	perMinute   int
	maxFailures int
	baseLockout time.Duration
	window      time.Duration
}

type failureRecord struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

// NewLoginProtection builds the protector with the given per-IP rate.
// Defaults: 5 failures lock for 15 minutes, counted over a 15-minute
// window.
func NewLoginProtection(perMinute int) *LoginProtection {
	lp := &LoginProtection{
		limiters:    make(map[string]*rate.Limiter),
		failures:    make(map[string]*failureRecord),
		perMinute:   perMinute,
		maxFailures: 5,
		baseLockout: 15 * time.Minute,
		window:      15 * time.Minute,
	}
	go lp.sweep()
	return lp
}

// Allow reports whether the IP may attempt a login right now.
func (lp *LoginProtection) Allow(ip string) bool {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if len(lp.limiters) > maxTrackedIPs {
		lp.limiters = make(map[string]*rate.Limiter)
	}

	lim, ok := lp.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(lp.perMinute)/60), lp.perMinute)
		lp.limiters[ip] = lim
	}
	return lim.Allow()
}

// IsLocked reports whether the account is locked and for how much longer.
func (lp *LoginProtection) IsLocked(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	rec, ok := lp.failures[email]
	if !ok || !time.Now().Before(rec.lockedUntil) {
		return false, 0
	}
	return true, time.Until(rec.lockedUntil)
}

// RecordFailure notes a failed login. When the failure count reaches the
// threshold the account locks and the lock duration is returned.
func (lp *LoginProtection) RecordFailure(email string) (locked bool, lockout time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := time.Now()
	rec, ok := lp.failures[email]
	if !ok || now.Sub(rec.firstFailed) > lp.window {
		lp.failures[email] = &failureRecord{count: 1, firstFailed: now}
		return false, 0
	}

	rec.count++
	if rec.count < lp.maxFailures {
		return false, 0
	}

	lockout = lp.baseLockout
	for i := 0; i < rec.lockouts && lockout < 24*time.Hour; i++ {
		lockout *= 2
	}
	if lockout > 24*time.Hour {
		lockout = 24 * time.Hour
	}

	rec.lockedUntil = now.Add(lockout)
	rec.lockouts++
	rec.count = 0

	slog.Warn("account locked after repeated login failures",
		"category", "auth",
		"email", email,
		"lockouts", rec.lockouts,
		"duration", lockout.String(),
	)
	return true, lockout
}

// RecordSuccess clears failure tracking after a successful login.
func (lp *LoginProtection) RecordSuccess(email string) {
	lp.mu.Lock()
	delete(lp.failures, email)
	lp.mu.Unlock()
}

// RemainingAttempts returns how many failures are left before lockout.
func (lp *LoginProtection) RemainingAttempts(email string) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	rec, ok := lp.failures[email]
	if !ok || time.Since(rec.firstFailed) > lp.window {
		return lp.maxFailures
	}
	if n := lp.maxFailures - rec.count; n > 0 {
		return n
	}
	return 0
}

func (lp *LoginProtection) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		lp.mu.Lock()
		for email, rec := range lp.failures {
			if now.After(rec.lockedUntil) && now.Sub(rec.firstFailed) > lp.window {
				delete(lp.failures, email)
			}
		}
		lp.mu.Unlock()
	}
}

// Middleware rate limits login POSTs per client IP.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r)
			if !lp.Allow(ip) {
				slog.Warn("login rate limit exceeded", "category", "auth", "ip", ip)
				http.Error(w, "Too many login attempts. Please wait and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers reverse-proxy headers over RemoteAddr.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i > 0 {
			return ip[:i]
		}
		return ip
	}
	return r.RemoteAddr
}
