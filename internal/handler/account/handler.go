package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-admin/internal/handler"
	"github.com/jwalitptl/dental-admin/internal/middleware"
	"github.com/jwalitptl/dental-admin/internal/service/records"
)

// Handler serves the logged-in patient's own records.
type Handler struct {
	svc *records.Service
}

func NewHandler(svc *records.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	me := r.Group("/me")
	{
		me.GET("/profile", h.GetProfile)
		me.GET("/incidents", h.ListIncidents)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	patient, ok := h.svc.Patient(account.PatientID)
	if !ok {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("patient record not found"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) ListIncidents(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.svc.IncidentsForPatient(account.PatientID)))
}
