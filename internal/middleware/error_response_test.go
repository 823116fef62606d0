package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/salesperiod/internal/model"
)

// APIErrorが統一フォーマットのJSONで書き込まれることを検証
func TestWriteErrorResponse_UnifiedFormat(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteErrorResponse(rec, http.StatusConflict, model.NewScheduleConflictError("gid://shop/Product/42"))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if body.Code != model.ErrCodeScheduleConflict {
		t.Errorf("code = %q, want %s", body.Code, model.ErrCodeScheduleConflict)
	}
	if body.Category != "schedule" {
		t.Errorf("category = %q, want schedule", body.Category)
	}
	if body.Message == "" || body.Action == "" {
		t.Error("message and action should be populated")
	}
}

// 内部エラーのレスポンスが詳細を漏らさないことを検証
func TestWriteInternalServerError_GenericMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteInternalServerError(rec)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}
