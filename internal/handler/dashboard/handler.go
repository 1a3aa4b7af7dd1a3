package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-admin/internal/handler"
	"github.com/jwalitptl/dental-admin/internal/middleware"
	"github.com/jwalitptl/dental-admin/internal/service/dashboard"
	"github.com/jwalitptl/dental-admin/internal/service/records"
)

type Handler struct {
	svc  *records.Service
	now  func() time.Time
	memo dashboard.Memo
}

// NewHandler serves dashboards computed at now(); nil means time.Now.
func NewHandler(svc *records.Service, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{svc: svc, now: now}
}

// RegisterAdminRoutes expects a group already restricted to admins.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard/admin", h.AdminDashboard)
}

// RegisterPatientRoutes expects a group already restricted to patients.
func (h *Handler) RegisterPatientRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard/patient", h.PatientDashboard)
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	patients, incidents, version := h.svc.Snapshot()
	summary := h.memo.Admin(version, patients, incidents, h.now())

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) PatientDashboard(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	patients, incidents, _ := h.svc.Snapshot()
	summary := dashboard.BuildPatientSummary(*account, patients, incidents, h.now())

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}
