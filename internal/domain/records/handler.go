package records

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tvusvet/backend/pkg/apperror"
	"github.com/tvusvet/backend/pkg/pagination"
)

// ImageCacheControl is sent with raw image content.
const ImageCacheControl = "private, max-age=3600"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.PATCH("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)

	api.POST("/exams", h.CreateExam)
	api.GET("/exams", h.ListExams)
	api.GET("/exams/:id", h.GetExam)
	api.PATCH("/exams/:id", h.UpdateExam)
	api.DELETE("/exams/:id", h.DeleteExam)
	api.POST("/exams/:id/reconcile-images", h.ReconcileExamImages)

	api.POST("/images", h.UploadImage)
	api.GET("/images", h.ListImages)
	api.GET("/images/:id", h.GetImage)
	api.GET("/images/:id/content", h.GetImageContent)
	api.DELETE("/images/:id", h.DeleteImage)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var in PatientInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	items, err := h.svc.ListPatients(c.Request().Context(),
		PatientFilter{Query: c.QueryParam("q")}, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var patch PatientPatch
	if err := c.Bind(&patch); err != nil {
		return err
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	res, err := h.svc.DeletePatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateExam(c echo.Context) error {
	var in ExamInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	e, err := h.svc.CreateExam(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListExams(c echo.Context) error {
	items, err := h.svc.ListExams(c.Request().Context(),
		ExamFilter{PatientID: c.QueryParam("patient_id")}, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetExam(c echo.Context) error {
	e, err := h.svc.GetExam(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) UpdateExam(c echo.Context) error {
	var patch ExamPatch
	if err := c.Bind(&patch); err != nil {
		return err
	}
	e, err := h.svc.UpdateExam(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteExam(c echo.Context) error {
	res, err := h.svc.DeleteExam(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ReconcileExamImages(c echo.Context) error {
	e, err := h.svc.ReconcileExamImages(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// UploadImage accepts a multipart "file" field; patient_id, exam_id and tags
// come from the query string.
func (h *Handler) UploadImage(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		// The body limit surfaces while the multipart form is parsed.
		if apperror.IsKind(err, apperror.KindPayloadTooLarge) {
			return err
		}
		return apperror.Validation("file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return apperror.Internal("open uploaded file", err)
	}
	defer f.Close()

	up := ImageUpload{
		Filename:  fh.Filename,
		MIMEType:  fh.Header.Get(echo.HeaderContentType),
		PatientID: c.QueryParam("patient_id"),
		ExamID:    c.QueryParam("exam_id"),
		Tags:      ParseTags(c.QueryParam("tags")),
	}
	img, err := h.svc.UploadImage(c.Request().Context(), up, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, img)
}

func (h *Handler) ListImages(c echo.Context) error {
	f := ImageFilter{PatientID: c.QueryParam("patient_id"), ExamID: c.QueryParam("exam_id")}
	items, err := h.svc.ListImages(c.Request().Context(), f, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetImage(c echo.Context) error {
	img, err := h.svc.GetImage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, img)
}

func (h *Handler) GetImageContent(c echo.Context) error {
	img, err := h.svc.GetImageContent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, ImageCacheControl)
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(img.Content)))
	return c.Stream(http.StatusOK, img.MIMEType, bytes.NewReader(img.Content))
}

func (h *Handler) DeleteImage(c echo.Context) error {
	res, err := h.svc.DeleteImage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
