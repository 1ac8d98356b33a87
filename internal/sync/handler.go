package sync

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/platform/db"
	"github.com/roshan1595/crowndesk-backend-sub002/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sync/full", h.FullSync)
	api.POST("/sync/patients/:id/push", h.PushPatient)
	api.POST("/sync/:entity", h.TriggerSync)
	api.GET("/sync/status", h.SyncStatus)
	api.GET("/sync/mappings", h.GetMappings)
}

func (h *Handler) FullSync(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := db.TenantFromContext(ctx)

	results, err := h.svc.FullSync(ctx, tenantID)
	if err != nil {
		// Completed stages' results are still worth returning alongside the
		// failure.
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"results": results,
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": results})
}

func (h *Handler) TriggerSync(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := db.TenantFromContext(ctx)
	entity := EntityType(c.Param("entity"))

	res, err := h.svc.TriggerSync(ctx, tenantID, entity)
	switch {
	case errors.Is(err, ErrUnknownEntity):
		return c.JSON(http.StatusOK, map[string]string{
			"message": "no sync worker implemented for entity type: " + string(entity),
		})
	case errors.Is(err, ErrSyncInProgress):
		return echo.NewHTTPError(http.StatusConflict, ErrSyncInProgress.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) SyncStatus(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := db.TenantFromContext(ctx)

	status, err := h.svc.SyncStatus(ctx, tenantID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) GetMappings(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := db.TenantFromContext(ctx)
	entity := EntityType(c.QueryParam("entity"))

	page := pagination.FromContext(c)
	mappings, total, err := h.svc.Mappings(ctx, tenantID, entity, page.Limit, page.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(mappings, total, page.Limit, page.Offset))
}

func (h *Handler) PushPatient(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := db.TenantFromContext(ctx)

	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	externalID, err := h.svc.PushPatient(ctx, tenantID, patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"external_id": externalID})
}
