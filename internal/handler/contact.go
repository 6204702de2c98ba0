package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/router"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/deppfellow/portfolio-backend/internal/service"
	"github.com/deppfellow/portfolio-backend/internal/validation"
)

// ContactControllerName is the registry name of the contact controller.
const ContactControllerName = "contact"

type CreateContactRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Subject string `json:"subject" validate:"required,max=500"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Validate checks the trimmed values, so whitespace-only fields count as
// missing.
func (r *CreateContactRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
	return validation.Struct(r)
}

type ListContactsRequest struct {
	Page  int `json:"-"`
	Limit int `json:"-"`
}

// BindQuery reads page and limit. Values that are not integers fall back to
// the defaults; the service clamps the rest.
func (r *ListContactsRequest) BindQuery(query url.Values) error {
	r.Page, _ = strconv.Atoi(query.Get("page"))
	r.Limit, _ = strconv.Atoi(query.Get("limit"))
	return nil
}

func (r *ListContactsRequest) Validate() error { return nil }

type ContactIDRequest struct {
	ID int64 `json:"-" validate:"gt=0"`
}

func (r *ContactIDRequest) BindParams(params []string) error {
	if len(params) == 0 {
		return errs.NewBadRequestError("Message ID is required", true, nil, nil, nil)
	}
	id, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil || id <= 0 {
		return errs.NewBadRequestError("Invalid message ID", true, nil, nil, nil)
	}
	r.ID = id
	return nil
}

func (r *ContactIDRequest) Validate() error {
	return validation.Struct(r)
}

// ContactController serves the contact form and its admin endpoints. Its
// actions are bound by name through the router registry.
type ContactController struct {
	Handler
	contacts *service.ContactService
	now      func() time.Time
}

func NewContactController(s *server.Server, contacts *service.ContactService) *ContactController {
	return &ContactController{
		Handler:  NewHandler(s),
		contacts: contacts,
		now:      time.Now,
	}
}

func (c *ContactController) Actions() map[string]router.HandlerFunc {
	return map[string]router.HandlerFunc{
		"create":  Handle(c.Handler, c.create, http.StatusCreated, func() *CreateContactRequest { return &CreateContactRequest{} }),
		"list":    Handle(c.Handler, c.list, http.StatusOK, func() *ListContactsRequest { return &ListContactsRequest{} }),
		"stats":   Handle(c.Handler, c.stats, http.StatusOK, newNoPayload),
		"get":     Handle(c.Handler, c.get, http.StatusOK, func() *ContactIDRequest { return &ContactIDRequest{} }),
		"delete":  Handle(c.Handler, c.delete, http.StatusOK, func() *ContactIDRequest { return &ContactIDRequest{} }),
		"test":    Handle(c.Handler, c.testEmail, http.StatusOK, newNoPayload),
		"options": c.options,
	}
}

func (c *ContactController) timestamp() string {
	return c.now().UTC().Format(time.RFC3339)
}

func (c *ContactController) create(req *envelope.Request, payload *CreateContactRequest) (map[string]any, error) {
	result, err := c.contacts.Create(req.Context(), service.CreateContactInput{
		Name:      payload.Name,
		Email:     payload.Email,
		Subject:   payload.Subject,
		Message:   payload.Message,
		IPAddress: req.ClientIP(),
		UserAgent: req.UserAgent(),
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success": true,
		"message": "Contact message sent successfully",
		"data":    result,
	}, nil
}

func (c *ContactController) list(req *envelope.Request, payload *ListContactsRequest) (map[string]any, error) {
	page, err := c.contacts.List(req.Context(), payload.Page, payload.Limit)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":    true,
		"messages":   page.Messages,
		"pagination": page.Pagination,
	}, nil
}

func (c *ContactController) stats(req *envelope.Request, _ *NoPayload) (map[string]any, error) {
	stats, err := c.contacts.Stats(req.Context())
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":   true,
		"stats":     stats,
		"timestamp": c.timestamp(),
	}, nil
}

func (c *ContactController) get(req *envelope.Request, payload *ContactIDRequest) (map[string]any, error) {
	msg, err := c.contacts.Get(req.Context(), payload.ID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":   true,
		"data":      msg,
		"timestamp": c.timestamp(),
	}, nil
}

func (c *ContactController) delete(req *envelope.Request, payload *ContactIDRequest) (map[string]any, error) {
	if err := c.contacts.Delete(req.Context(), payload.ID); err != nil {
		return nil, err
	}

	return map[string]any{
		"success":   true,
		"message":   "Contact message deleted",
		"timestamp": c.timestamp(),
	}, nil
}

// testEmail answers 500 when the sample notification could not be sent.
func (c *ContactController) testEmail(req *envelope.Request, _ *NoPayload) (*envelope.Response, error) {
	result := c.contacts.TestEmail(req.Context())

	status := http.StatusOK
	if !result.TestSuccessful {
		status = http.StatusInternalServerError
	}

	return envelope.NewResponse(status, map[string]any{
		"success": result.TestSuccessful,
		"message": result.Message,
		"data": map[string]any{
			"provider":        result.Provider,
			"configured":      result.Configured,
			"test_successful": result.TestSuccessful,
		},
		"timestamp": c.timestamp(),
	}), nil
}

var preflightLabels = map[string]string{
	"/api/contact":          "contact endpoint",
	"/api/contact/messages": "contact messages endpoint",
	"/api/contact/stats":    "contact stats endpoint",
	"/api/contact/test":     "contact test endpoint",
}

func (c *ContactController) options(req *envelope.Request, _ ...string) (any, error) {
	label, ok := preflightLabels[req.Path()]
	if !ok {
		label = "contact endpoint"
	}
	return map[string]any{"message": "CORS preflight for " + label}, nil
}
