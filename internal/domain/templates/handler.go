package templates

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tvusvet/backend/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/templates")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/seed", h.Seed)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var in TemplateInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	t, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) List(c echo.Context) error {
	f := Filter{
		Lang:     c.QueryParam("lang"),
		ExamType: c.QueryParam("exam_type"),
		Organ:    c.QueryParam("organ"),
		Query:    c.QueryParam("q"),
	}
	items, err := h.svc.List(c.Request().Context(), f, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	t, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Update(c echo.Context) error {
	var patch TemplatePatch
	if err := c.Bind(&patch); err != nil {
		return err
	}
	t, err := h.svc.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": true, "template_id": id})
}

func (h *Handler) Seed(c echo.Context) error {
	res, err := h.svc.Seed(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"seeded":          true,
		"inserted":        res.Inserted,
		"updated":         res.Updated,
		"total_templates": res.Total,
	})
}
