package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/xavierca1/leadbridge/internal/infra/http/middleware"
	"github.com/xavierca1/leadbridge/internal/usecase"
)

type LeadSubmitter interface {
	Execute(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.SubmitLeadOutput, error)
}

type SubmissionHandler struct {
	submit      LeadSubmitter
	token       string
	rateLimiter *RateLimiter
}

func NewSubmissionHandler(submit LeadSubmitter, token string) *SubmissionHandler {
	return &SubmissionHandler{
		submit:      submit,
		token:       token,
		rateLimiter: NewRateLimiter(30, time.Minute), // 30 req/min per IP
	}
}

type SubmitRequest struct {
	FormType string              `json:"form_type"`
	Token    string              `json:"token"`
	Fields   []usecase.FieldPair `json:"fields"`
}

// Submit receives one form submission. The endpoint answers 200 for
// every business outcome, including a failed CRM send; only a broken
// request or a failure to persist the lead changes the status code.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clientIP := getClientIP(r)
	if !h.rateLimiter.Allow(clientIP) {
		writeJSON(w, http.StatusTooManyRequests, usecase.SubmitLeadOutput{
			Success: false,
			Message: "Too many requests. Please try again later.",
		})
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, usecase.SubmitLeadOutput{
			Success: false,
			Message: "Invalid JSON",
		})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(h.token)) != 1 {
		writeJSON(w, http.StatusOK, usecase.SubmitLeadOutput{
			Success: false,
			Message: "could not process submission",
		})
		return
	}

	middleware.RecordLeadReceived()

	out, err := h.submit.Execute(ctx, usecase.SubmitLeadInput{
		FormType: req.FormType,
		Fields:   req.Fields,
	})
	if err != nil {
		// The lead could not be stored. This is the one outcome worth a
		// loud log: the submission is gone unless the visitor retries.
		log.Printf("❌ lead submission lost: %v", err)
		var pe *usecase.PersistenceError
		if errors.As(err, &pe) {
			middleware.RecordLeadDelivery("lost")
		}
		writeJSON(w, http.StatusInternalServerError, usecase.SubmitLeadOutput{
			Success: false,
			Message: "Failed to process submission",
		})
		return
	}

	switch {
	case !out.Success:
		middleware.RecordLeadDelivery("rejected")
	case out.Duplicate:
		middleware.RecordLeadDelivery("duplicate")
	case out.FUBError != "":
		middleware.RecordLeadDelivery("failed")
	default:
		middleware.RecordLeadDelivery("sent")
	}

	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// getClientIP takes only the first hop of X-Forwarded-For: buckets
// must stay stable per client, and trusting the whole header would let
// a sender mint a fresh bucket per request by appending junk.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
	}

	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := time.Now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}
