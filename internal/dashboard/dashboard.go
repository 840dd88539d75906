// Package dashboard serves the server-rendered inspection dashboard. Pages are
// html/template fragments swapped in by htmx; every data access goes through the
// HTTP API with the bearer token the browser keeps in localStorage.
package dashboard

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"facility-checklist/internal/apiclient"
	"facility-checklist/internal/middleware"
	"facility-checklist/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

type Handler struct {
	api  *apiclient.Client
	tmpl *template.Template
	help *helpRenderer
	log  *zap.Logger
}

func New(api *apiclient.Client, log *zap.Logger) (*Handler, error) {
	tmpl, err := template.New("dashboard").Funcs(template.FuncMap{
		"fmtFloat": func(f float64, prec int) string { return strconv.FormatFloat(f, 'f', prec, 64) },
		"join":     strings.Join,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard templates: %w", err)
	}

	help, err := newHelpRenderer()
	if err != nil {
		return nil, fmt.Errorf("render help texts: %w", err)
	}
	return &Handler{api: api, tmpl: tmpl, help: help, log: log}, nil
}

// Routes is mounted under /dashboard.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Page)
	r.Get("/view", h.View)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/inspections/new", h.NewInspection)
	r.Get("/inspections/{id}/edit", h.EditInspection)
	r.Post("/inspections", h.SaveInspection)
	r.Post("/inspections/{id}", h.SaveInspection)
	r.Delete("/inspections/{id}", h.DeleteInspection)
	r.Get("/help/{field}", h.Help)
	return r
}

type authView struct {
	Detail   string
	Message  string
	Username string
}

type mainView struct {
	Inspections []models.Inspection
	Summary     Summary
}

type formView struct {
	ID       int64
	Title    string
	Action   string
	Detail   string
	Sections []sectionView
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "page", nil)
}

// View renders the signed-in dashboard, or the login form without a usable token.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		h.render(w, http.StatusOK, "login", authView{})
		return
	}

	records, err := h.api.ListInspections(r.Context(), token)
	if err != nil {
		if h.expired(w, err) {
			h.render(w, http.StatusOK, "login", authView{Detail: detailOf(err)})
			return
		}
		h.log.Error("dashboard: list inspections", zap.Error(err))
		h.render(w, http.StatusOK, "alert", detailOf(err))
		return
	}

	h.render(w, http.StatusOK, "main", mainView{Inspections: records, Summary: summarize(records)})
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login", authView{})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusOK, "login", authView{Detail: "Invalid form submission"})
		return
	}
	username := r.PostForm.Get("username")

	ctx := apiclient.WithForwardedFor(r.Context(), middleware.ForwardedFor(r))
	tok, err := h.api.Login(ctx, username, r.PostForm.Get("password"))
	if err != nil {
		h.render(w, http.StatusOK, "login", authView{Detail: detailOf(err), Username: username})
		return
	}

	trigger(w, map[string]any{"tokenIssued": map[string]string{"token": tok.AccessToken}})
	h.render(w, http.StatusOK, "alert", "Signed in. Loading inspections…")
}

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "register", authView{})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusOK, "register", authView{Detail: "Invalid form submission"})
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	if password != r.PostForm.Get("confirm_password") {
		h.render(w, http.StatusOK, "register", authView{Detail: "Passwords do not match", Username: username})
		return
	}
	ctx := apiclient.WithForwardedFor(r.Context(), middleware.ForwardedFor(r))
	if err := h.api.Register(ctx, username, password); err != nil {
		h.render(w, http.StatusOK, "register", authView{Detail: detailOf(err), Username: username})
		return
	}

	h.render(w, http.StatusOK, "login", authView{
		Message:  "User registered successfully. Please sign in.",
		Username: strings.TrimSpace(username),
	})
}

func (h *Handler) NewInspection(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "form", formView{
		Title:    "New inspection",
		Action:   "/dashboard/inspections",
		Sections: buildSections(url.Values{}, nil),
	})
}

func (h *Handler) EditInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	rec, err := h.api.GetInspection(r.Context(), bearerToken(r), id)
	if err != nil {
		h.expired(w, err)
		h.render(w, http.StatusOK, "alert", detailOf(err))
		return
	}

	h.render(w, http.StatusOK, "form", formView{
		ID:       id,
		Title:    fmt.Sprintf("Edit inspection #%d", id),
		Action:   fmt.Sprintf("/dashboard/inspections/%d", id),
		Sections: buildSections(rec.InspectionInput.Values(), nil),
	})
}

// SaveInspection creates a record, or updates one when the path carries an id.
func (h *Handler) SaveInspection(w http.ResponseWriter, r *http.Request) {
	var id int64
	if chi.URLParam(r, "id") != "" {
		var ok bool
		if id, ok = h.parseID(w, r); !ok {
			return
		}
	}
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusOK, "alert", "Invalid form submission")
		return
	}

	view := formView{ID: id, Title: "New inspection", Action: "/dashboard/inspections"}
	if id != 0 {
		view.Title = fmt.Sprintf("Edit inspection #%d", id)
		view.Action = fmt.Sprintf("/dashboard/inspections/%d", id)
	}

	in, err := models.ParseValues(r.PostForm)
	if err != nil {
		var fields []models.FieldError
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			fields = verr.Errors
		}
		view.Detail = "Some fields could not be read."
		view.Sections = buildSections(r.PostForm, fields)
		h.render(w, http.StatusOK, "form", view)
		return
	}

	token := bearerToken(r)
	var res *apiclient.MutationResult
	if id == 0 {
		res, err = h.api.CreateInspection(r.Context(), token, in)
	} else {
		res, err = h.api.UpdateInspection(r.Context(), token, id, in)
	}
	if err != nil {
		var apiErr *apiclient.APIError
		var fields []models.FieldError
		if errors.As(err, &apiErr) {
			fields = apiErr.Fields
		}
		h.expired(w, err)
		view.Detail = detailOf(err)
		view.Sections = buildSections(r.PostForm, fields)
		h.render(w, http.StatusOK, "form", view)
		return
	}

	verb := "added"
	if id != 0 {
		verb = "updated"
	}
	trigger(w, map[string]any{"refresh": true, "flash": fmt.Sprintf("Inspection #%d %s.", res.ID, verb)})
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) DeleteInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	res, err := h.api.DeleteInspection(r.Context(), bearerToken(r), id)
	if err != nil {
		h.expired(w, err)
		h.render(w, http.StatusOK, "alert", detailOf(err))
		return
	}

	trigger(w, map[string]any{"refresh": true})
	h.render(w, http.StatusOK, "alert", fmt.Sprintf("Inspection #%d deleted.", res.ID))
}

func (h *Handler) Help(w http.ResponseWriter, r *http.Request) {
	view, ok := h.help.lookup(chi.URLParam(r, "field"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.render(w, http.StatusOK, "help", view)
}

// expired tells the browser to drop its token when the API rejected it.
func (h *Handler) expired(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return false
	}
	trigger(w, map[string]any{"sessionExpired": true})
	return true
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.render(w, http.StatusOK, "alert", "Invalid inspection id")
		return 0, false
	}
	return id, true
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error("dashboard: render template", zap.String("template", name), zap.Error(err))
	}
}

// trigger sets HX-Trigger so htmx raises the named events in the browser.
func trigger(w http.ResponseWriter, events map[string]any) {
	data, err := json.Marshal(events)
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(data))
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func detailOf(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return "The inspection service is unavailable. Please try again."
}
