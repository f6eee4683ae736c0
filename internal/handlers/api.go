/*-------------------------------------------------------------------------
 *
 * api.go
 *    JSON API for contacts, membership and approvals
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/handlers/api.go
 *
 *-------------------------------------------------------------------------
 */

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/neurondb/NeuronApprovals/internal/approval"
	"github.com/neurondb/NeuronApprovals/internal/auth"
	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/validation"
)

const maxBodySize = 1024 * 1024

/* APIHandlers serves /api/v1 */
type APIHandlers struct {
	manager *approval.Manager
	perPage int
	logger  *logging.Logger
}

/* NewAPIHandlers creates API handlers */
func NewAPIHandlers(manager *approval.Manager, perPage int, logger *logging.Logger) *APIHandlers {
	if perPage <= 0 {
		perPage = 15
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &APIHandlers{manager: manager, perPage: perPage, logger: logger}
}

/* RegisterRoutes mounts the API on r */
func (h *APIHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/contacts", h.ListContacts).Methods(http.MethodGet)
	r.HandleFunc("/contacts", h.CreateContact).Methods(http.MethodPost)
	r.HandleFunc("/contacts/{id}", h.GetContact).Methods(http.MethodGet)
	r.HandleFunc("/contacts/{id}", h.UpdateContact).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/contacts/{id}", h.DeleteContact).Methods(http.MethodDelete)
	r.HandleFunc("/contacts/{id}/members", h.AttachMembers).Methods(http.MethodPost)
	r.HandleFunc("/contacts/{id}/members", h.SyncMembers).Methods(http.MethodPut)
	r.HandleFunc("/contacts/{id}/members", h.DetachMembers).Methods(http.MethodDelete)
	r.HandleFunc("/contacts/{id}/members/{userId}", h.RemoveMember).Methods(http.MethodDelete)
	r.HandleFunc("/contacts/{id}/approvers/{userId}", h.SetApprover).Methods(http.MethodPut)
	r.HandleFunc("/contacts/{id}/approvers/{userId}", h.UnsetApprover).Methods(http.MethodDelete)

	r.HandleFunc("/approvals", h.ListApprovals).Methods(http.MethodGet)
	r.HandleFunc("/approvals", h.RequestApproval).Methods(http.MethodPost)
	r.HandleFunc("/approvals/pending", h.PendingApprovals).Methods(http.MethodGet)
	r.HandleFunc("/approvals/{id}", h.GetApproval).Methods(http.MethodGet)
	r.HandleFunc("/approvals/{id}/approve", h.Approve).Methods(http.MethodPost)
	r.HandleFunc("/approvals/{id}/reject", h.Reject).Methods(http.MethodPost)
	r.HandleFunc("/subjects/{type}/{id}/approval", h.SubjectApproval).Methods(http.MethodGet)

	r.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)
	r.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods(http.MethodPost)
}

/* ListResponse wraps one page of results */
type ListResponse struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

/* ContactRequest creates or updates a contact */
type ContactRequest struct {
	Name           *string     `json:"name"`
	IsActive       *bool       `json:"is_active"`
	Users          interface{} `json:"users,omitempty"`
	MarkAsApprover bool        `json:"mark_as_approver"`
}

/* MembersRequest attaches, syncs or detaches members */
type MembersRequest struct {
	Users          interface{} `json:"users"`
	MarkAsApprover bool        `json:"mark_as_approver"`
}

/* ApprovalRequest asks for approval of a subject */
type ApprovalRequest struct {
	ApprovableType string `json:"approvable_type"`
	ApprovableID   string `json:"approvable_id"`
	ContactID      string `json:"contact_id"`
}

/* DecisionRequest approves or rejects; UserID is used only without a token */
type DecisionRequest struct {
	UserID  string  `json:"user_id"`
	Comment *string `json:"comment"`
}

/* SubjectApprovalResponse is a subject's latest approval */
type SubjectApprovalResponse struct {
	Approval *db.Approval      `json:"approval"`
	Status   db.ApprovalStatus `json:"status"`
}

/* Contacts */

func (h *APIHandlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	page, perPage := h.pagination(r)
	filter := db.ContactFilter{
		Search: r.URL.Query().Get("search"),
		Page:   db.Page{Limit: perPage, Offset: (page - 1) * perPage},
	}
	if v := r.URL.Query().Get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, validation.NewError("is_active", "must be true or false"), nil)
			return
		}
		filter.IsActive = &active
	}

	contacts, total, err := h.manager.ListContacts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, ListResponse{Data: contacts, Total: total, Page: page, PerPage: perPage}, http.StatusOK)
}

func (h *APIHandlers) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	var contact *db.Contact
	var err error
	if req.Users != nil {
		users, convErr := approval.UsersFrom(req.Users)
		if convErr != nil {
			writeServiceError(w, r, h.logger, convErr)
			return
		}
		name := ""
		if req.Name != nil {
			name = *req.Name
		}
		active := req.IsActive == nil || *req.IsActive
		contact, err = h.manager.CreateContactWithUsers(r.Context(), name, users, active, req.MarkAsApprover)
	} else {
		contact, err = h.manager.CreateContact(r.Context(), approval.ContactInput{Name: req.Name, IsActive: req.IsActive})
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, contact, http.StatusCreated)
}

func (h *APIHandlers) GetContact(w http.ResponseWriter, r *http.Request) {
	contact, err := h.manager.GetContact(r.Context(), contactRef(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, contact, http.StatusOK)
}

func (h *APIHandlers) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	contact, err := h.manager.UpdateContact(r.Context(), contactRef(r), approval.ContactInput{Name: req.Name, IsActive: req.IsActive})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, contact, http.StatusOK)
}

func (h *APIHandlers) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.DeleteContact(r.Context(), contactRef(r)); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* Membership */

func (h *APIHandlers) AttachMembers(w http.ResponseWriter, r *http.Request) {
	h.changeMembers(w, r, h.manager.AttachUsers)
}

func (h *APIHandlers) SyncMembers(w http.ResponseWriter, r *http.Request) {
	h.changeMembers(w, r, h.manager.SyncUsers)
}

type memberChange func(ctx context.Context, ref approval.ContactRef, users approval.UserSet, markAsApprover bool) (*approval.SyncResult, error)

func (h *APIHandlers) changeMembers(w http.ResponseWriter, r *http.Request, change memberChange) {
	var req MembersRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	users, err := approval.UsersFrom(req.Users)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	result, err := change(r.Context(), contactRef(r), users, req.MarkAsApprover)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, result, http.StatusOK)
}

/* DetachMembers detaches the listed users; an empty body detaches everyone */
func (h *APIHandlers) DetachMembers(w http.ResponseWriter, r *http.Request) {
	var req MembersRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	var users approval.UserSet
	if req.Users != nil {
		var err error
		if users, err = approval.UsersFrom(req.Users); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}

	detached, err := h.manager.DetachUsers(r.Context(), contactRef(r), users)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, map[string]interface{}{"detached": detached}, http.StatusOK)
}

func (h *APIHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.RemoveUserFromContact(r.Context(), contactRef(r), mux.Vars(r)["userId"]); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) SetApprover(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.SetApprover(r.Context(), contactRef(r), mux.Vars(r)["userId"]); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) UnsetApprover(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.RemoveApprover(r.Context(), contactRef(r), mux.Vars(r)["userId"]); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* Approvals */

func (h *APIHandlers) ListApprovals(w http.ResponseWriter, r *http.Request) {
	page, perPage := h.pagination(r)
	q := r.URL.Query()
	filter := db.ApprovalFilter{
		Search:         q.Get("search"),
		ContactID:      q.Get("contact_id"),
		ApprovableType: q.Get("approvable_type"),
		ApprovableID:   q.Get("approvable_id"),
		Page:           db.Page{Limit: perPage, Offset: (page - 1) * perPage},
	}
	if s := q.Get("status"); s != "" {
		status, ok := db.ParseStatus(s)
		if !ok {
			WriteError(w, r, http.StatusBadRequest, validation.NewError("status", "must be pending, approved or rejected"), nil)
			return
		}
		filter.Status = status
	}

	queries := h.manager.Queries()
	approvals, err := queries.ListApprovals(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	total, err := queries.CountApprovals(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, ListResponse{Data: approvals, Total: total, Page: page, PerPage: perPage}, http.StatusOK)
}

func (h *APIHandlers) RequestApproval(w http.ResponseWriter, r *http.Request) {
	var req ApprovalRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	subject := approval.SubjectRef{Type: req.ApprovableType, ID: req.ApprovableID}
	a, err := h.manager.RequestApproval(r.Context(), subject, approval.ContactID(req.ContactID))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, a, http.StatusOK)
}

func (h *APIHandlers) GetApproval(w http.ResponseWriter, r *http.Request) {
	detail, err := h.manager.GetApproval(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, detail, http.StatusOK)
}

func (h *APIHandlers) Approve(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	record, err := h.manager.Approve(r.Context(), mux.Vars(r)["id"], actingUser(r, req.UserID), req.Comment)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, record, http.StatusCreated)
}

func (h *APIHandlers) Reject(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	comment := ""
	if req.Comment != nil {
		comment = *req.Comment
	}
	record, err := h.manager.Reject(r.Context(), mux.Vars(r)["id"], actingUser(r, req.UserID), comment)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, record, http.StatusCreated)
}

/* PendingApprovals lists what the caller may decide */
func (h *APIHandlers) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.manager.GetPendingApprovals(r.Context(), actingUser(r, r.URL.Query().Get("user_id")))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, pending, http.StatusOK)
}

func (h *APIHandlers) SubjectApproval(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	subject := approval.SubjectRef{Type: vars["type"], ID: vars["id"]}

	latest, err := h.manager.LatestApproval(r.Context(), subject)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if latest == nil {
		WriteError(w, r, http.StatusNotFound, fmt.Errorf("no approval for %s %s", subject.Type, subject.ID), nil)
		return
	}
	WriteSuccess(w, SubjectApprovalResponse{Approval: latest, Status: latest.Status()}, http.StatusOK)
}

/* Notifications */

func (h *APIHandlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := actingUser(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		WriteError(w, r, http.StatusBadRequest, validation.NewError("user_id", "user id is required"), nil)
		return
	}
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	_, perPage := h.pagination(r)

	notifications, err := h.manager.Queries().ListNotifications(r.Context(), userID, unread, perPage)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	WriteSuccess(w, notifications, http.StatusOK)
}

func (h *APIHandlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := actingUser(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		WriteError(w, r, http.StatusBadRequest, validation.NewError("user_id", "user id is required"), nil)
		return
	}
	if err := h.manager.Queries().MarkNotificationRead(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* helpers */

func contactRef(r *http.Request) approval.ContactRef {
	return approval.ContactID(mux.Vars(r)["id"])
}

/* actingUser prefers the token's user over any id in the request */
func actingUser(r *http.Request, fallback string) string {
	if id, ok := auth.GetUserIDFromContext(r.Context()); ok {
		return id
	}
	return strings.TrimSpace(fallback)
}

func (h *APIHandlers) pagination(r *http.Request) (int, int) {
	return parsePagination(r, h.perPage)
}

/* maxPage keeps (page-1)*perPage far from integer overflow */
const maxPage = 1_000_000

func parsePagination(r *http.Request, defaultPerPage int) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

/* decodeBody decodes JSON into dst; with required false an empty body is accepted */
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, required bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && !required {
		return true
	}
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, fmt.Errorf("request body parsing error: %w", err), nil)
		return false
	}
	return true
}
