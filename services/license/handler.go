package license

import (
	"context"
	"net/http"
	"time"

	"smallbiznis-license/pkg/db/pagination"
	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/httpapi"
	"smallbiznis-license/pkg/i18n"
	"smallbiznis-license/pkg/middleware"
	"smallbiznis-license/services/access"
	"smallbiznis-license/services/auditlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

const (
	AdminSecretHeader = "X-Admin-Secret"

	dateLayout = "2006-01-02"
	// recentActivity is how many log entries the license detail route returns.
	recentActivity = 20
)

type activityLister interface {
	List(ctx context.Context, key string, page pagination.Pagination) ([]*auditlog.Entry, *pagination.PageInfo, error)
}

type Handler struct {
	svc      *Service
	guard    *access.Guard
	activity activityLister
	printer  *i18n.Printer
}

type HandlerParams struct {
	fx.In
	Service  *Service
	Guard    *access.Guard
	Activity *auditlog.Service
	Printer  *i18n.Printer
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		svc:      p.Service,
		guard:    p.Guard,
		activity: p.Activity,
		printer:  p.Printer,
	}
}

func (h *Handler) Register(api *httpapi.API) {
	api.Public.POST("/activate", h.Activate)
	api.Public.POST("/verify", h.Verify)

	api.Admin.POST("/create", h.Create)
	api.Admin.GET("/licenses", h.List)
	api.Admin.GET("/licenses/:key", h.Get)
	api.Admin.POST("/reset", h.Reset)
	api.Admin.POST("/status", h.SetStatus)
}

type licenseResponse struct {
	ID          uint64     `json:"id"`
	LicenseKey  string     `json:"license_key"`
	ClientName  string     `json:"client_name"`
	ClientEmail string     `json:"client_email,omitempty"`
	MachineID   *string    `json:"machine_id"`
	ActivatedAt *time.Time `json:"activated_at"`
	ExpiresAt   string     `json:"expires_at"`
	IsActive    bool       `json:"is_active"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toResponse(l *License) licenseResponse {
	return licenseResponse{
		ID:          l.ID,
		LicenseKey:  l.LicenseKey,
		ClientName:  l.ClientName,
		ClientEmail: l.ClientEmail,
		MachineID:   l.MachineID,
		ActivatedAt: l.ActivatedAt,
		ExpiresAt:   l.ExpiresAt.Format(dateLayout),
		IsActive:    l.IsActive,
		Notes:       l.Notes,
		CreatedAt:   l.CreatedAt,
	}
}

func source(c *gin.Context) auditlog.Source {
	return auditlog.Source{
		Address:   c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: middleware.GetRequestID(c),
	}
}

// adminSecret prefers the header, then the secret carried in the body.
func adminSecret(c *gin.Context, fromBody string) string {
	if s := c.GetHeader(AdminSecretHeader); s != "" {
		return s
	}
	return fromBody
}

func (h *Handler) invalidBody(err error) error {
	return errutil.BadRequest(h.printer.Sprintf(i18n.InvalidBody), err)
}

func (h *Handler) invalid(msg string, err error) error {
	return errutil.ValidationFailed(h.printer.Sprintf(msg), err,
		errutil.WithDetails(middleware.ValidationDetails(err)...))
}

type machineRequest struct {
	LicenseKey string `json:"license_key" validate:"required"`
	MachineID  string `json:"machine_id" validate:"required"`
}

func (h *Handler) bindMachineRequest(c *gin.Context) (*machineRequest, error) {
	var req machineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, h.invalidBody(err)
	}
	if err := middleware.Validate(req); err != nil {
		return nil, h.invalid(msgKeyMachineRequired, err)
	}
	return &req, nil
}

func (h *Handler) Activate(c *gin.Context) {
	req, err := h.bindMachineRequest(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	res, err := h.svc.Activate(c.Request.Context(), ActivateRequest{
		LicenseKey: req.LicenseKey,
		MachineID:  req.MachineID,
		Source:     source(c),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        res.Message,
		"client_name":    res.ClientName,
		"expires_at":     res.ExpiresAt.Format(dateLayout),
		"days_remaining": res.DaysRemaining,
	})
}

func (h *Handler) Verify(c *gin.Context) {
	req, err := h.bindMachineRequest(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	res, err := h.svc.Verify(c.Request.Context(), VerifyRequest{
		LicenseKey: req.LicenseKey,
		MachineID:  req.MachineID,
		Source:     source(c),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	body := gin.H{
		"success": true,
		"valid":   res.Valid,
		"message": res.Message,
	}
	if res.Found {
		body["client_name"] = res.ClientName
		body["expires_at"] = res.ExpiresAt.Format(dateLayout)
		body["days_remaining"] = res.DaysRemaining
		body["is_active"] = res.IsActive
	}
	c.JSON(http.StatusOK, body)
}

type createRequest struct {
	AdminSecret string `json:"admin_secret"`
	ClientName  string `json:"client_name" validate:"required"`
	ClientEmail string `json:"client_email" validate:"omitempty,email"`
	ExpiresAt   string `json:"expires_at" validate:"required"`
	Notes       string `json:"notes"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	bindErr := c.ShouldBindJSON(&req)

	if err := h.guard.Authorize(c.Request.Context(), adminSecret(c, req.AdminSecret), access.OpCreate); err != nil {
		_ = c.Error(err)
		return
	}
	if bindErr != nil {
		_ = c.Error(h.invalidBody(bindErr))
		return
	}
	if err := middleware.Validate(req); err != nil {
		_ = c.Error(h.invalid(msgNameExpiryRequired, err))
		return
	}

	expiresAt, err := time.Parse(dateLayout, req.ExpiresAt)
	if err != nil {
		_ = c.Error(errutil.ValidationFailed(h.printer.Sprintf(msgInvalidExpiryFormat), err,
			errutil.WithDetails(errutil.Detail{Field: "expires_at", Message: dateLayout})))
		return
	}

	lic, err := h.svc.Create(c.Request.Context(), CreateRequest{
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ExpiresAt:   expiresAt,
		Notes:       req.Notes,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"license_key": lic.LicenseKey,
		"license":     toResponse(lic),
	})
}

func (h *Handler) List(c *gin.Context) {
	if err := h.guard.Authorize(c.Request.Context(), adminSecret(c, ""), access.OpList); err != nil {
		_ = c.Error(err)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.BadRequest(err.Error(), err))
		return
	}

	res, err := h.svc.List(c.Request.Context(), ListRequest{Pagination: page})
	if err != nil {
		_ = c.Error(err)
		return
	}

	licenses := make([]licenseResponse, 0, len(res.Licenses))
	for _, l := range res.Licenses {
		licenses = append(licenses, toResponse(l))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"licenses":  licenses,
		"total":     res.Total,
		"page_info": res.PageInfo,
	})
}

func (h *Handler) Get(c *gin.Context) {
	if err := h.guard.Authorize(c.Request.Context(), adminSecret(c, ""), access.OpRead); err != nil {
		_ = c.Error(err)
		return
	}

	lic, err := h.svc.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	entries, _, err := h.activity.List(c.Request.Context(), lic.LicenseKey, pagination.Pagination{Limit: recentActivity})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"license":    toResponse(lic),
		"activities": entries,
	})
}

type resetRequest struct {
	AdminSecret string `json:"admin_secret"`
	LicenseKey  string `json:"license_key"`
}

// Reset unbinds the machine. An empty key is reported as not found.
func (h *Handler) Reset(c *gin.Context) {
	var req resetRequest
	bindErr := c.ShouldBindJSON(&req)

	if err := h.guard.Authorize(c.Request.Context(), adminSecret(c, req.AdminSecret), access.OpReset); err != nil {
		_ = c.Error(err)
		return
	}
	if bindErr != nil {
		_ = c.Error(h.invalidBody(bindErr))
		return
	}

	lic, err := h.svc.ResetMachine(c.Request.Context(), req.LicenseKey, source(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": h.printer.Sprintf(msgMachineReset),
		"license": toResponse(lic),
	})
}

type statusRequest struct {
	AdminSecret string `json:"admin_secret"`
	LicenseKey  string `json:"license_key"`
	IsActive    *bool  `json:"is_active" validate:"required"`
}

func (h *Handler) SetStatus(c *gin.Context) {
	var req statusRequest
	bindErr := c.ShouldBindJSON(&req)

	if err := h.guard.Authorize(c.Request.Context(), adminSecret(c, req.AdminSecret), access.OpStatus); err != nil {
		_ = c.Error(err)
		return
	}
	if bindErr != nil {
		_ = c.Error(h.invalidBody(bindErr))
		return
	}
	if err := middleware.Validate(req); err != nil {
		_ = c.Error(h.invalid(i18n.InvalidBody, err))
		return
	}

	lic, err := h.svc.SetActive(c.Request.Context(), req.LicenseKey, *req.IsActive, source(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	msg := h.printer.Sprintf(msgDeactivated)
	if lic.IsActive {
		msg = h.printer.Sprintf(msgReactivated)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msg,
		"license": toResponse(lic),
	})
}
