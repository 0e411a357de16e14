package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/usecase"
)

type ctxKey string

const (
	actorCtxKey     ctxKey = "actor"
	maxJSONBodySize        = 1 << 20
)

// Handler is the thin transport collaborator over the cabinet core. The real
// auth flow lives outside; requests arrive with a resolved actor id in the
// X-Actor-ID header.
type Handler struct {
	cabinets   *usecase.CabinetService
	membership *usecase.MembershipService
	audit      *usecase.AuditService
	users      *usecase.UserService
	deletion   *usecase.UserDeletionService
	messages   *usecase.MessageService
	log        *logrus.Logger
}

func NewHandler(cabinets *usecase.CabinetService, membership *usecase.MembershipService, audit *usecase.AuditService, users *usecase.UserService, deletion *usecase.UserDeletionService, messages *usecase.MessageService, log *logrus.Logger) *Handler {
	return &Handler{
		cabinets:   cabinets,
		membership: membership,
		audit:      audit,
		users:      users,
		deletion:   deletion,
		messages:   messages,
		log:        log,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireActor)

		pr.Post("/v1/users", h.createUser)
		pr.Get("/v1/users/{userID}", h.getUser)
		pr.Get("/v1/users/{userID}/deletion-summary", h.deletionSummary)
		pr.Delete("/v1/users/{userID}", h.deleteUser)
		pr.Get("/v1/users/{userID}/messages", h.listMessages)
		pr.Post("/v1/users/{userID}/messages/{messageID}/read", h.markMessageRead)

		pr.Post("/v1/cabinets", h.createCabinet)
		pr.Get("/v1/cabinets", h.listCabinets)
		pr.Get("/v1/cabinets/{id}", h.getCabinet)
		pr.Patch("/v1/cabinets/{id}", h.updateCabinet)
		pr.Delete("/v1/cabinets/{id}", h.deleteCabinet)
		pr.Get("/v1/cabinets/{id}/members", h.listMembers)

		pr.With(h.requirePermission("user.invite")).
			Post("/v1/cabinets/{id}/members", h.inviteMember)
		pr.With(h.requirePermission("user.remove")).
			Delete("/v1/cabinets/{id}/members/{userID}", h.removeMember)

		pr.Post("/v1/cabinets/{id}/transfer", h.transferOwnership)
		pr.Post("/v1/cabinets/{id}/members/{userID}/permissions:grant", h.grantPermissions)
		pr.Post("/v1/cabinets/{id}/members/{userID}/permissions:revoke", h.revokePermissions)
		pr.Get("/v1/cabinets/{id}/members/{userID}/permissions", h.listPermissions)

		pr.Get("/v1/audit", h.queryAudit)
		pr.Get("/v1/audit/statistics", h.auditStatistics)
		pr.Get("/v1/audit/recent", h.auditRecent)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type cabinetResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}

type membershipResponse struct {
	ID        string `json:"id"`
	CabinetID string `json:"cabinet_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	IsOwner   bool   `json:"is_owner"`
	JoinedAt  string `json:"joined_at"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type createCabinetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type inviteRequest struct {
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type transferRequest struct {
	Phone string `json:"phone"`
}

type permissionIDsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

type createUserRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *Handler) createCabinet(w http.ResponseWriter, r *http.Request) {
	var req createCabinetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cabinet, err := h.cabinets.Create(r.Context(), actorFromContext(r.Context()), req.Name, req.Description)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCabinetResponse(cabinet))
}

func (h *Handler) listCabinets(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	cabinets, err := h.cabinets.ListForUser(r.Context(), actor.UserID)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	out := make([]cabinetResponse, 0, len(cabinets))
	for _, c := range cabinets {
		out = append(out, toCabinetResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"cabinets": out})
}

func (h *Handler) getCabinet(w http.ResponseWriter, r *http.Request) {
	cabinet, err := h.cabinets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCabinetResponse(cabinet))
}

func (h *Handler) updateCabinet(w http.ResponseWriter, r *http.Request) {
	var req createCabinetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cabinet, err := h.cabinets.Update(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCabinetResponse(cabinet))
}

func (h *Handler) deleteCabinet(w http.ResponseWriter, r *http.Request) {
	err := h.cabinets.Delete(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.cabinets.Members(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	out := make([]membershipResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMembershipResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *Handler) inviteMember(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	member, err := h.cabinets.Invite(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.Phone, req.Role)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMembershipResponse(member))
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	err := h.cabinets.Remove(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (h *Handler) transferOwnership(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	member, err := h.cabinets.TransferOwnership(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.Phone)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMembershipResponse(member))
}

func (h *Handler) grantPermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionIDsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.membership.Grant(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "userID"), req.PermissionIDs)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"granted": true})
}

func (h *Handler) revokePermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionIDsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.membership.Revoke(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "userID"), req.PermissionIDs)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	names, err := h.membership.PermissionNames(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": names})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.users.Create(r.Context(), req.Name, req.Phone)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) deletionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.deletion.GetDeletionSummary(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	owned := make([]cabinetResponse, 0, len(summary.OwnedCabinets))
	for _, c := range summary.OwnedCabinets {
		owned = append(owned, toCabinetResponse(c))
	}
	affected := make([]userResponse, 0, len(summary.AffectedUsers))
	for _, u := range summary.AffectedUsers {
		affected = append(affected, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":           toUserResponse(summary.User),
		"owned_cabinets": owned,
		"affected_users": affected,
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	result, err := h.deletion.DeleteUserWithCascade(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	deleted := make([]cabinetResponse, 0, len(result.DeletedCabinets))
	for _, c := range result.DeletedCabinets {
		deleted = append(deleted, toCabinetResponse(c))
	}
	notified := result.NotifiedUserIDs
	if notified == nil {
		notified = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted_cabinets": deleted,
		"notified_users":   notified,
	})
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messages.ListForUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		entry := map[string]any{
			"id":         m.ID,
			"level":      m.Level,
			"title":      m.Title,
			"body":       m.Body,
			"created_at": m.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if m.ReadAt != nil {
			entry["read_at"] = m.ReadAt.UTC().Format(time.RFC3339Nano)
		} else {
			entry["read_at"] = nil
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (h *Handler) markMessageRead(w http.ResponseWriter, r *http.Request) {
	err := h.messages.MarkRead(r.Context(), chi.URLParam(r, "messageID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}

func (h *Handler) queryAudit(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseAuditFilter(w, r)
	if !ok {
		return
	}
	limit, ok := parseIntQuery(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := parseIntQuery(w, r, "offset")
	if !ok {
		return
	}

	page, err := h.audit.Query(r.Context(), filter, limit, offset)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	entries := make([]map[string]any, 0, len(page.Entries))
	for _, e := range page.Entries {
		entries = append(entries, toAuditResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   page.Total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

func (h *Handler) auditStatistics(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseAuditFilter(w, r)
	if !ok {
		return
	}
	stats, err := h.audit.Statistics(r.Context(), filter)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":             stats.Total,
		"distinct_users":    stats.DistinctUsers,
		"distinct_cabinets": stats.DistinctCabinets,
		"event_counts":      stats.EventCounts,
	})
}

func (h *Handler) auditRecent(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseIntQuery(w, r, "limit")
	if !ok {
		return
	}
	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAuditResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// requireActor resolves the authenticated actor from the X-Actor-ID header.
// Authentication itself happens upstream; an unknown or missing id is
// rejected here so domain calls always carry a real actor.
func (h *Handler) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
		if actorID == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing actor identity")
			return
		}
		if _, err := h.users.Get(r.Context(), actorID); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "unknown actor")
				return
			}
			h.handleDomainError(w, err)
			return
		}

		actor := domain.Actor{
			UserID:    actorID,
			IPAddress: remoteIP(r),
			UserAgent: r.UserAgent(),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorCtxKey, actor)))
	})
}

// requirePermission gates a cabinet route on one named capability. Ownership
// checks stay in the services; this is the outer authorization gate only.
func (h *Handler) requirePermission(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := actorFromContext(r.Context())
			cabinetID := chi.URLParam(r, "id")
			ok, err := h.membership.HasPermission(r.Context(), actor.UserID, cabinetID, name)
			if err != nil {
				h.handleDomainError(w, err)
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "PERMISSION_DENIED", "missing permission "+name)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorFromContext(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorCtxKey).(domain.Actor)
	return actor
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func parseAuditFilter(w http.ResponseWriter, r *http.Request) (domain.AuditFilter, bool) {
	filter := domain.AuditFilter{
		UserID:      r.URL.Query().Get("user_id"),
		CabinetID:   r.URL.Query().Get("cabinet_id"),
		Event:       r.URL.Query().Get("event"),
		SubjectType: r.URL.Query().Get("subject_type"),
		SubjectID:   r.URL.Query().Get("subject_id"),
	}
	for _, bound := range []struct {
		param  string
		target *time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := r.URL.Query().Get(bound.param)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", bound.param+" must be RFC 3339")
			return domain.AuditFilter{}, false
		}
		*bound.target = parsed
	}
	return filter, true
}

func parseIntQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", name+" must be integer")
		return 0, false
	}
	return parsed, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid json body")
		return false
	}
	if err := ensureEOF(decoder); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid json body")
		return false
	}
	return true
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}

func toCabinetResponse(c domain.Cabinet) cabinetResponse {
	return cabinetResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		OwnerID:     c.OwnerID,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toMembershipResponse(m domain.Membership) membershipResponse {
	return membershipResponse{
		ID:        m.ID,
		CabinetID: m.CabinetID,
		UserID:    m.UserID,
		Role:      m.Role,
		IsOwner:   m.IsOwner,
		JoinedAt:  m.JoinedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Phone: u.Phone}
}

func toAuditResponse(e domain.AuditEntry) map[string]any {
	return map[string]any{
		"id":           e.ID,
		"actor_id":     e.ActorID,
		"cabinet_id":   e.CabinetID,
		"subject_type": e.SubjectType,
		"subject_id":   e.SubjectID,
		"event":        e.Event,
		"description":  e.Description,
		"metadata":     e.Metadata,
		"created_at":   e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"code": code, "error": message})
}

func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, code, err.Error())
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCabinetNotFound),
		errors.Is(err, domain.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, code, err.Error())
	case errors.Is(err, domain.ErrAlreadyMember):
		writeError(w, http.StatusConflict, code, err.Error())
	case errors.Is(err, domain.ErrNotMember),
		errors.Is(err, domain.ErrCannotRemoveOwner):
		writeError(w, http.StatusUnprocessableEntity, code, err.Error())
	case errors.Is(err, domain.ErrNotOwner):
		writeError(w, http.StatusForbidden, code, err.Error())
	default:
		h.log.WithError(err).Error("internal error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
