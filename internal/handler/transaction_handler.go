package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kakeibo/internal/ledger"
	"github.com/hitoshi/kakeibo/internal/middleware"
	"github.com/hitoshi/kakeibo/internal/model"
)

// TransactionServiceInterface は取引ハンドラーが必要とするサービスインターフェース。
type TransactionServiceInterface interface {
	// Kind はこのサービスが扱う取引種別を返す。
	Kind() model.TransactionKind
	// List は所有者の全取引を日付降順で返す。
	List(ctx context.Context, ownerID string) ([]*model.Transaction, error)
	// Create は認証済み呼び出し元を所有者とする取引を作成する。
	Create(ctx context.Context, ownerID string, input ledger.CreateInput) (*model.Transaction, error)
	// Update はIDと所有者の両方が一致する取引に部分更新を適用する。
	Update(ctx context.Context, ownerID, id string, patch *model.TransactionPatch) (*model.Transaction, error)
	// Delete はIDと所有者の両方が一致する取引を削除する。
	Delete(ctx context.Context, ownerID, id string) error
}

// TransactionHandler は1種別（収入または支出）の取引CRUDのHTTPハンドラー。
// 収入用と支出用に同じ実装を2インスタンス生成して使う。
type TransactionHandler struct {
	service TransactionServiceInterface
}

// NewTransactionHandler はTransactionHandlerを生成する。
func NewTransactionHandler(service TransactionServiceInterface) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// createTransactionRequest は取引作成リクエストのボディ。
// idや所有者をボディで指定しても無視される。
type createTransactionRequest struct {
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

// updateTransactionRequest は取引部分更新リクエストのボディ。
// 省略されたフィールドは既存の値を維持する。
type updateTransactionRequest struct {
	Category    *string  `json:"category"`
	Amount      *float64 `json:"amount"`
	Date        *string  `json:"date"`
	Description *string  `json:"description"`
}

// transactionResponse は取引1件のAPIレスポンス。
type transactionResponse struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// List は取引一覧を返す。
// GET /api/incomes, GET /api/expenses
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]transactionResponse, 0, len(list))
	for _, tr := range list {
		responses = append(responses, toTransactionResponse(tr))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// Create は取引を作成する。
// POST /api/incomes, POST /api/expenses
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("date はISO 8601形式で指定してください"))
		return
	}

	tr, err := h.service.Create(r.Context(), userID, ledger.CreateInput{
		Category:    req.Category,
		Amount:      req.Amount,
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	kind := h.service.Kind()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message":    fmt.Sprintf("%sを登録しました。", kind.Label()),
		string(kind): toTransactionResponse(tr),
	})
}

// Update は取引を部分更新する。
// PUT /api/incomes/:id, PUT /api/expenses/:id
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	patch := &model.TransactionPatch{
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("date はISO 8601形式で指定してください"))
			return
		}
		patch.Date = &date
	}

	tr, err := h.service.Update(r.Context(), userID, id, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	kind := h.service.Kind()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message":    fmt.Sprintf("%sを更新しました。", kind.Label()),
		string(kind): toTransactionResponse(tr),
	})
}

// Delete は取引を削除する。
// DELETE /api/incomes/:id, DELETE /api/expenses/:id
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message": fmt.Sprintf("%sを削除しました。", h.service.Kind().Label()),
	})
}

// toTransactionResponse はmodel.TransactionからAPIレスポンスに変換する。
func toTransactionResponse(tr *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tr.ID,
		Category:    tr.Category,
		Amount:      tr.Amount,
		Date:        tr.Date,
		Description: tr.Description,
		CreatedAt:   tr.CreatedAt,
	}
}

// parseDate は日付文字列を解析する。空文字列はゼロ値を返す（サーバー側で現在時刻を補完）。
// RFC 3339形式と日付のみ（YYYY-MM-DD）の両方を受け付ける。
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
