package incident

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-admin/internal/handler"
	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/internal/service/attachment"
	"github.com/jwalitptl/dental-admin/internal/service/records"
)

// FormFileField is the multipart field carrying an uploaded attachment.
const FormFileField = "file"

type Handler struct {
	svc     *records.Service
	encoder *attachment.Encoder
}

func NewHandler(svc *records.Service, encoder *attachment.Encoder) *Handler {
	return &Handler{svc: svc, encoder: encoder}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	incidents := r.Group("/incidents")
	{
		incidents.GET("", h.ListIncidents)
		incidents.POST("", h.CreateIncident)
		incidents.GET("/:id", h.GetIncident)
		incidents.PUT("/:id", h.UpdateIncident)
		incidents.DELETE("/:id", h.DeleteIncident)
		incidents.POST("/:id/files", h.UploadFile)
	}
}

// ListIncidents returns every incident, or one patient's when patientId is given.
func (h *Handler) ListIncidents(c *gin.Context) {
	if patientID := c.Query("patientId"); patientID != "" {
		c.JSON(http.StatusOK, handler.NewSuccessResponse(h.svc.IncidentsForPatient(patientID)))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.svc.Incidents()))
}

func (h *Handler) CreateIncident(c *gin.Context) {
	var req model.NewIncident
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	incident, err := h.svc.CreateIncident(c.Request.Context(), req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(incident))
}

func (h *Handler) GetIncident(c *gin.Context) {
	incident, ok := h.svc.Incident(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("incident not found"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(incident))
}

func (h *Handler) UpdateIncident(c *gin.Context) {
	var req model.IncidentPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	incident, err := h.svc.UpdateIncident(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(incident))
}

func (h *Handler) DeleteIncident(c *gin.Context) {
	if err := h.svc.DeleteIncident(c.Request.Context(), c.Param("id")); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("incident deleted successfully"))
}

// UploadFile encodes the multipart "file" part and appends it to the
// incident's attachments.
func (h *Handler) UploadFile(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.svc.Incident(id); !ok {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("incident not found"))
		return
	}

	fh, err := c.FormFile(FormFileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("failed to read uploaded file"))
		return
	}
	defer f.Close()

	// browsers send octet-stream for unknown types; let the encoder sniff it
	contentType := fh.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		contentType = ""
	}

	file, err := h.encoder.Encode(c.Request.Context(), fh.Filename, contentType, f)
	if err != nil {
		handler.Error(c, err)
		return
	}

	incident, err := h.svc.AttachFile(c.Request.Context(), id, file)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(incident))
}
