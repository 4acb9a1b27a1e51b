package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Brownie44l1/image-validator/internal/inference"
	"github.com/Brownie44l1/image-validator/internal/model"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// FormField is the multipart field carrying the uploaded image.
const FormField = "file"

// DefaultMaxUpload caps request bodies at 10MB.
const DefaultMaxUpload = 10 << 20

type Classifier interface {
	Classify(ctx context.Context, data []byte) (inference.Prediction, error)
}

type ModelStatus interface {
	Loaded() bool
}

// Reporter forwards server-side failures to an error tracker.
type Reporter func(err error, tags map[string]string)

type Handler struct {
	classifier Classifier
	models     ModelStatus
	maxUpload  int64
	report     Reporter
}

type Option func(*Handler)

func WithMaxUpload(n int64) Option {
	return func(h *Handler) { h.maxUpload = n }
}

func WithReporter(r Reporter) Option {
	return func(h *Handler) { h.report = r }
}

func NewHandler(classifier Classifier, models ModelStatus, opts ...Option) *Handler {
	h := &Handler{
		classifier: classifier,
		models:     models,
		maxUpload:  DefaultMaxUpload,
		report:     func(error, map[string]string) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": h.models.Loaded(),
	})
}

// ValidateImage classifies the image uploaded in the "file" form field.
func (h *Handler) ValidateImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	fileHeader, err := c.FormFile(FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image too large", "message": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "No image file provided. Use 'file' as the form field name",
			"message": err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open form file", "message": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read form file", "message": err.Error()})
		return
	}

	log.WithFields(log.Fields{
		"request_id": c.GetString(requestIDKey),
		"filename":   fileHeader.Filename,
		"size":       len(data),
	}).Debug("[Validate] Received file")

	result, err := h.classifier.Classify(c.Request.Context(), data)
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			log.WithField("request_id", c.GetString(requestIDKey)).Error("[Validate] Prediction error: ", err.Error())
			h.report(err, map[string]string{
				"kind":       model.KindOf(err).String(),
				"request_id": c.GetString(requestIDKey),
			})
		}
		c.JSON(status, gin.H{"error": msg, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func statusFor(err error) (int, string) {
	switch model.KindOf(err) {
	case model.KindInput:
		return http.StatusBadRequest, "Invalid image data"
	case model.KindConfiguration:
		return http.StatusInternalServerError, "Model unavailable"
	case model.KindModelIncompatibility:
		return http.StatusInternalServerError, "Model incompatible with expected architecture"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, "Request cancelled"
	}
	return http.StatusInternalServerError, "Prediction failed"
}
