/*-------------------------------------------------------------------------
 *
 * admin.go
 *    Read-only admin interface
 *
 * Server-rendered pages for contacts, approvals, decisions and settings,
 * mounted under the configured admin route.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/handlers/admin.go
 *
 *-------------------------------------------------------------------------
 */

package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/neurondb/NeuronApprovals/internal/approval"
	"github.com/neurondb/NeuronApprovals/internal/config"
	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/events"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

var adminPages = []string{"dashboard", "contacts", "contact", "approvals", "approval", "records", "settings"}

var templateFuncs = template.FuncMap{
	"subjectName": approval.SubjectName,
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04 MST")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"join": strings.Join,
}

/* AdminHandlers renders the admin interface */
type AdminHandlers struct {
	manager *approval.Manager
	cfg     *config.Config
	pages   map[string]*template.Template
	logger  *logging.Logger
}

/* NewAdminHandlers parses the embedded templates */
func NewAdminHandlers(manager *approval.Manager, cfg *config.Config, logger *logging.Logger) (*AdminHandlers, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	pages := make(map[string]*template.Template, len(adminPages))
	for _, name := range adminPages {
		tpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/approval_table.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("admin template parse failed: page='%s', error=%w", name, err)
		}
		pages[name] = tpl
	}

	return &AdminHandlers{manager: manager, cfg: cfg, pages: pages, logger: logger}, nil
}

/* RegisterRoutes mounts the pages on r, a subrouter at the admin route */
func (h *AdminHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Dashboard).Methods(http.MethodGet)
	r.HandleFunc("/", h.Dashboard).Methods(http.MethodGet)
	r.HandleFunc("/contacts", h.Contacts).Methods(http.MethodGet)
	r.HandleFunc("/contacts/{id}", h.Contact).Methods(http.MethodGet)
	r.HandleFunc("/approvals", h.Approvals).Methods(http.MethodGet)
	r.HandleFunc("/approvals/{id}", h.Approval).Methods(http.MethodGet)
	r.HandleFunc("/records", h.Records).Methods(http.MethodGet)
	r.HandleFunc("/settings", h.Settings).Methods(http.MethodGet)
}

/* PageData is passed to every admin template */
type PageData struct {
	Brand      string
	Route      string
	Title      string
	Nav        string
	Query      url.Values
	Pagination *Pagination
	Data       interface{}
}

/* Pagination links one page of a list to its neighbours */
type Pagination struct {
	Page    int
	PerPage int
	Total   int
	Pages   int
	HasPrev bool
	HasNext bool
	PrevURL string
	NextURL string
}

func newPagination(r *http.Request, page, perPage, total int) *Pagination {
	pages := (total + perPage - 1) / perPage
	p := &Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
	link := func(n int) string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(n))
		return r.URL.Path + "?" + q.Encode()
	}
	if p.HasPrev {
		p.PrevURL = link(page - 1)
	}
	if p.HasNext {
		p.NextURL = link(page + 1)
	}
	return p
}

type dashboardData struct {
	Contacts  int
	Pending   int
	Approved  int
	Rejected  int
	Approvals []db.Approval
}

type contactsData struct {
	Contacts []db.Contact
}

type contactData struct {
	Contact   *db.Contact
	Approvals []db.Approval
}

type approvalsData struct {
	Approvals []db.Approval
	Statuses  []db.ApprovalStatus
}

type approvalData struct {
	Detail *approval.ApprovalDetail
}

type recordsData struct {
	Records []db.ApprovalRecord
}

type settingsData struct {
	*config.Config
	EventTypes []string
}

func (h *AdminHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queries := h.manager.Queries()

	contacts, err := queries.CountContacts(ctx, db.ContactFilter{})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	counts, err := queries.CountApprovalsByStatus(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	recent, err := queries.ListApprovals(ctx, db.ApprovalFilter{Page: db.Page{Limit: 10}})
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, "dashboard", "Dashboard", nil, &dashboardData{
		Contacts:  contacts,
		Pending:   counts[db.StatusPending],
		Approved:  counts[db.StatusApproved],
		Rejected:  counts[db.StatusRejected],
		Approvals: recent,
	})
}

func (h *AdminHandlers) Contacts(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r, h.cfg.Admin.PerPage)
	filter := db.ContactFilter{
		Search: r.URL.Query().Get("search"),
		Page:   db.Page{Limit: perPage, Offset: (page - 1) * perPage},
	}
	if v := r.URL.Query().Get("is_active"); v != "" {
		if active, err := strconv.ParseBool(v); err == nil {
			filter.IsActive = &active
		}
	}

	contacts, total, err := h.manager.ListContacts(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "contacts", "Contacts", newPagination(r, page, perPage, total), &contactsData{Contacts: contacts})
}

func (h *AdminHandlers) Contact(w http.ResponseWriter, r *http.Request) {
	contact, err := h.manager.GetContact(r.Context(), approval.ContactID(mux.Vars(r)["id"]))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	page, perPage := parsePagination(r, h.cfg.Admin.PerPage)
	filter := db.ApprovalFilter{ContactID: contact.ID, Page: db.Page{Limit: perPage, Offset: (page - 1) * perPage}}
	approvals, err := h.manager.Queries().ListApprovals(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	total, err := h.manager.Queries().CountApprovals(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, "contact", contact.Name, newPagination(r, page, perPage, total), &contactData{Contact: contact, Approvals: approvals})
}

func (h *AdminHandlers) Approvals(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r, h.cfg.Admin.PerPage)
	filter := db.ApprovalFilter{
		Search: r.URL.Query().Get("search"),
		Page:   db.Page{Limit: perPage, Offset: (page - 1) * perPage},
	}
	if status, ok := db.ParseStatus(r.URL.Query().Get("status")); ok {
		filter.Status = status
	}

	approvals, err := h.manager.Queries().ListApprovals(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	total, err := h.manager.Queries().CountApprovals(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, "approvals", "Approvals", newPagination(r, page, perPage, total), &approvalsData{
		Approvals: approvals,
		Statuses:  []db.ApprovalStatus{db.StatusPending, db.StatusApproved, db.StatusRejected},
	})
}

func (h *AdminHandlers) Approval(w http.ResponseWriter, r *http.Request) {
	detail, err := h.manager.GetApproval(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	title := fmt.Sprintf("%s #%s", approval.SubjectName(detail.Approval.ApprovableType), detail.Approval.ApprovableID)
	h.render(w, r, "approval", title, nil, &approvalData{Detail: detail})
}

func (h *AdminHandlers) Records(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r, h.cfg.Admin.PerPage)
	filter := db.RecordFilter{
		Search: r.URL.Query().Get("search"),
		Page:   db.Page{Limit: perPage, Offset: (page - 1) * perPage},
	}
	if status, ok := db.ParseStatus(r.URL.Query().Get("status")); ok && status != db.StatusPending {
		filter.Status = status
	}

	records, err := h.manager.Queries().ListApprovalRecords(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	total, err := h.manager.Queries().CountApprovalRecords(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "records", "Approval records", newPagination(r, page, perPage, total), &recordsData{Records: records})
}

func (h *AdminHandlers) Settings(w http.ResponseWriter, r *http.Request) {
	types := make([]string, 0, len(events.Types))
	for _, t := range events.Types {
		types = append(types, string(t))
	}
	h.render(w, r, "settings", "Settings", nil, &settingsData{Config: h.cfg, EventTypes: types})
}

func (h *AdminHandlers) render(w http.ResponseWriter, r *http.Request, page, title string, pagination *Pagination, data interface{}) {
	nav := page
	switch page {
	case "contact":
		nav = "contacts"
	case "approval":
		nav = "approvals"
	}

	var buf bytes.Buffer
	err := h.pages[page].ExecuteTemplate(&buf, "layout", &PageData{
		Brand:      h.cfg.Admin.Brand,
		Route:      strings.TrimRight(h.cfg.Admin.Route, "/"),
		Title:      title,
		Nav:        nav,
		Query:      r.URL.Query(),
		Pagination: pagination,
		Data:       data,
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *AdminHandlers) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, validation.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.serverError(w, r, err)
	}
}

func (h *AdminHandlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WithContext(r.Context()).Error("Admin page failed", err, map[string]interface{}{
		"path": r.URL.Path,
	})
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
