package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/Brownie44l1/image-validator/internal/inference"
	"github.com/Brownie44l1/image-validator/internal/model"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
}

func equals(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got: %#v, want: %#v", got, want)
	}
}

type fakeClassifier struct {
	pred inference.Prediction
	err  error
	got  []byte
}

func (f *fakeClassifier) Classify(ctx context.Context, data []byte) (inference.Prediction, error) {
	f.got = data
	return f.pred, f.err
}

type fakeStatus bool

func (s fakeStatus) Loaded() bool { return bool(s) }

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, "upload.png")
	ok(t, err)
	_, err = part.Write(data)
	ok(t, err)
	ok(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/validate-image/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func TestValidateImageReturnsPrediction(t *testing.T) {
	classifier := &fakeClassifier{pred: inference.Prediction{Label: "valid", Score: 0.75, Probs: []float64{0.25, 0.75}}}
	h := NewHandler(classifier, fakeStatus(true))

	rec := serve(h, uploadRequest(t, FormField, []byte("image bytes")))
	equals(t, rec.Code, http.StatusOK)
	equals(t, classifier.got, []byte("image bytes"))

	var got map[string]interface{}
	ok(t, json.Unmarshal(rec.Body.Bytes(), &got))
	equals(t, got["label"], "valid")
	equals(t, got["score"], 0.75)
	equals(t, got["probs"], []interface{}{0.25, 0.75})
}

func TestValidateImageErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReport bool
	}{
		{
			name:       "input",
			err:        model.InputError(errors.New("image: unknown format")),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing weights",
			err:        &model.Error{Kind: model.KindConfiguration, Op: "load model", Err: model.ErrModelNotFound},
			wantStatus: http.StatusInternalServerError,
			wantReport: true,
		},
		{
			name:       "shape mismatch",
			err:        &model.Error{Kind: model.KindModelIncompatibility, Op: "check model graph", Err: model.ErrModelIncompatible},
			wantStatus: http.StatusInternalServerError,
			wantReport: true,
		},
		{
			name:       "cancelled wait",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reported []error
			h := NewHandler(&fakeClassifier{err: tt.err}, fakeStatus(false),
				WithReporter(func(err error, tags map[string]string) { reported = append(reported, err) }))

			rec := serve(h, uploadRequest(t, FormField, []byte("x")))
			equals(t, rec.Code, tt.wantStatus)

			var body map[string]string
			ok(t, json.Unmarshal(rec.Body.Bytes(), &body))
			equals(t, body["message"], tt.err.Error())
			equals(t, len(reported) == 1, tt.wantReport)
		})
	}
}

func TestValidateImageMissingField(t *testing.T) {
	classifier := &fakeClassifier{}
	h := NewHandler(classifier, fakeStatus(true))

	rec := serve(h, uploadRequest(t, "image", []byte("x")))
	equals(t, rec.Code, http.StatusBadRequest)
	equals(t, classifier.got, []byte(nil))
}

func TestValidateImageRejectsOversizedBody(t *testing.T) {
	classifier := &fakeClassifier{}
	h := NewHandler(classifier, fakeStatus(true), WithMaxUpload(64))

	rec := serve(h, uploadRequest(t, FormField, bytes.Repeat([]byte("x"), 1024)))
	equals(t, rec.Code, http.StatusRequestEntityTooLarge)
	equals(t, classifier.got, []byte(nil))

	var body map[string]string
	ok(t, json.Unmarshal(rec.Body.Bytes(), &body))
	equals(t, body["error"], "Image too large")
}

func TestHealth(t *testing.T) {
	rec := serve(NewHandler(&fakeClassifier{}, fakeStatus(true)), httptest.NewRequest(http.MethodGet, "/health", nil))
	equals(t, rec.Code, http.StatusOK)

	var got map[string]interface{}
	ok(t, json.Unmarshal(rec.Body.Bytes(), &got))
	equals(t, got["status"], "healthy")
	equals(t, got["model_loaded"], true)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/validate-image/", nil)
	rec := serve(NewHandler(&fakeClassifier{}, fakeStatus(true)), req)

	equals(t, rec.Code, http.StatusOK)
	equals(t, rec.Header().Get("Access-Control-Allow-Origin"), "*")
}

func TestRequestIDIsEchoedOrAssigned(t *testing.T) {
	h := NewHandler(&fakeClassifier{}, fakeStatus(true))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	equals(t, serve(h, req).Header().Get(requestIDHeader), "abc-123")

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if len(rec.Header().Get(requestIDHeader)) != 36 {
		t.Fatalf("expected a generated uuid, got %q", rec.Header().Get(requestIDHeader))
	}
}
