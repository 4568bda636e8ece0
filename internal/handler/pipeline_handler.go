// Package handler はHTTP APIハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdeck/internal/model"
)

// PipelineService はパイプラインハンドラーが必要とするサービスインターフェース。
type PipelineService interface {
	// RunFullSweep は全アクティブソースのスイープを実行する。
	RunFullSweep(ctx context.Context) (model.SweepResult, error)
	// RunSource は単一ソースのオンデマンド取り込みを実行する。
	RunSource(ctx context.Context, sourceID string) (*model.Source, model.SweepResult, error)
}

// PipelineHandler は取り込みパイプラインの手動トリガーAPIハンドラー。
type PipelineHandler struct {
	service PipelineService
}

// NewPipelineHandler はPipelineHandlerを生成する。
func NewPipelineHandler(service PipelineService) *PipelineHandler {
	return &PipelineHandler{service: service}
}

// sweepResponse は全ソーススイープのAPIレスポンス。
type sweepResponse struct {
	CreatedCount int `json:"created_count"`
	ErrorCount   int `json:"error_count"`
}

// sourceSweepResponse は単一ソース取り込みのAPIレスポンス。
type sourceSweepResponse struct {
	SourceName   string `json:"source_name"`
	CreatedCount int    `json:"created_count"`
	ErrorCount   int    `json:"error_count"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// RefreshAll は全アクティブソースのスイープを同期実行する。
// POST /api/pipeline/refresh
func (h *PipelineHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunFullSweep(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(sweepResponse{
		CreatedCount: result.Created,
		ErrorCount:   result.Errors,
	})
}

// RefreshSource は単一ソースの取り込みを同期実行する。
// POST /api/pipeline/refresh/{id}
func (h *PipelineHandler) RefreshSource(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "id")

	source, result, err := h.service.RunSource(r.Context(), sourceID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(sourceSweepResponse{
		SourceName:   source.Name,
		CreatedCount: result.Created,
		ErrorCount:   result.Errors,
	})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeSourceNotFound:
		return http.StatusNotFound
	case model.ErrCodeNoActiveSubscribers:
		return http.StatusConflict
	case model.ErrCodeInvalidSchedule:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
