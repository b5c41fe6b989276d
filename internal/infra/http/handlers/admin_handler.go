package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"

	"github.com/xavierca1/leadbridge/internal/entity"
	"github.com/xavierca1/leadbridge/internal/infra/integration/fub"
	"github.com/xavierca1/leadbridge/internal/infra/worker"
)

type RetryRunner interface {
	RunOnce(ctx context.Context) (worker.RunStats, error)
}

type TagSyncer interface {
	Execute(ctx context.Context) (int, error)
}

// UserDirectory lists the CRM account's users so the operator can pick
// an assigned_user_id.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]fub.User, error)
}

// PixelBackend keeps tracking-pixel settings on the licensing backend,
// shared across the account's sites.
type PixelBackend interface {
	GetPixelSettings(ctx context.Context, accountID string) (string, error)
	SavePixelSettings(ctx context.Context, accountID, pixelID string) error
}

type AccountChecker interface {
	ConnectedAccount(ctx context.Context) (string, error)
}

type AdminHandler struct {
	retry    RetryRunner
	tagSync  TagSyncer
	leads    entity.DeliveryRepositoryInterface
	tags     entity.TagRepositoryInterface
	settings entity.SettingsRepositoryInterface
	users    UserDirectory
	pixels   PixelBackend
	conn     AccountChecker
	token    string
}

func NewAdminHandler(retry RetryRunner, tagSync TagSyncer, leads entity.DeliveryRepositoryInterface, tags entity.TagRepositoryInterface, settings entity.SettingsRepositoryInterface, token string) *AdminHandler {
	return &AdminHandler{
		retry:    retry,
		tagSync:  tagSync,
		leads:    leads,
		tags:     tags,
		settings: settings,
		token:    token,
	}
}

// WithUserDirectory wires the CRM user listing.
func (h *AdminHandler) WithUserDirectory(users UserDirectory) *AdminHandler {
	h.users = users
	return h
}

// WithPixelBackend wires the backend-shared pixel settings.
func (h *AdminHandler) WithPixelBackend(conn AccountChecker, pixels PixelBackend) *AdminHandler {
	h.conn = conn
	h.pixels = pixels
	return h
}

// Authorize gates admin routes behind the X-Admin-Token header.
func (h *AdminHandler) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TriggerRetry runs one retry batch synchronously and reports what it
// did, the same logic the scheduled worker runs.
func (h *AdminHandler) TriggerRetry(w http.ResponseWriter, r *http.Request) {
	stats, err := h.retry.RunOnce(r.Context())
	if err != nil {
		log.Printf("❌ manual retry run failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "retry run failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type TagSyncResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

func (h *AdminHandler) SyncTags(w http.ResponseWriter, r *http.Request) {
	count, err := h.tagSync.Execute(r.Context())
	if err != nil {
		log.Printf("❌ tag sync failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "tag sync failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, TagSyncResponse{Success: true, Count: count})
}

type LeadLogResponse struct {
	Leads  []entity.DeliveryRecord `json:"leads"`
	Counts entity.DeliveryCounts   `json:"counts"`
}

// ListLeads returns the delivery log with per-status counts. Works
// whether or not the CRM is connected: the log is local.
func (h *AdminHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.leads.List(ctx, 100)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load delivery log",
		})
		return
	}
	counts, err := h.leads.Counts(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load delivery counts",
		})
		return
	}

	writeJSON(w, http.StatusOK, LeadLogResponse{Leads: records, Counts: counts})
}

type UsersResponse struct {
	Users []fub.User `json:"users"`
}

// ListUsers returns the CRM account's users for the assignment picker.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		log.Printf("❌ user listing failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "failed to list users",
		})
		return
	}
	writeJSON(w, http.StatusOK, UsersResponse{Users: users})
}

type SettingsResponse struct {
	Settings *entity.Settings `json:"settings"`
	Tags     []entity.Tag     `json:"tags"`
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.settings.Load(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load settings",
		})
		return
	}
	tags, err := h.tags.ListActive(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load tags",
		})
		return
	}

	// A site without a local pixel may still have one configured on the
	// backend by a sibling site; adopt it.
	if settings.PixelID == "" && h.pixels != nil {
		if accountID, err := h.conn.ConnectedAccount(ctx); err == nil {
			if pixelID, err := h.pixels.GetPixelSettings(ctx, accountID); err == nil {
				settings.PixelID = pixelID
			}
		}
	}

	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings, Tags: tags})
}

func (h *AdminHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings entity.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid JSON",
		})
		return
	}

	if err := h.settings.Save(r.Context(), &settings); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save settings",
		})
		return
	}

	// Mirror the pixel to the backend so the account's other sites see
	// it. Best effort: the local row already serves trigger_pixel.
	if h.pixels != nil {
		if accountID, err := h.conn.ConnectedAccount(r.Context()); err == nil {
			if err := h.pixels.SavePixelSettings(r.Context(), accountID, settings.PixelID); err != nil {
				log.Printf("⚠️ pixel mirror to backend failed: %v", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
