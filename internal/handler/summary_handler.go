package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/kakeibo/internal/ledger"
	"github.com/hitoshi/kakeibo/internal/middleware"
	"github.com/hitoshi/kakeibo/internal/model"
)

// SummaryServiceInterface はサマリーハンドラーが必要とするサービスインターフェース。
type SummaryServiceInterface interface {
	// Summarize は所有者の全取引を集計する。
	Summarize(ctx context.Context, ownerID string) (*ledger.Summary, error)
}

// SummaryHandler はダッシュボード集計のHTTPハンドラー。
type SummaryHandler struct {
	service SummaryServiceInterface
}

// NewSummaryHandler はSummaryHandlerを生成する。
func NewSummaryHandler(service SummaryServiceInterface) *SummaryHandler {
	return &SummaryHandler{service: service}
}

// categoryTotalResponse はカテゴリ別集計のAPIレスポンス。
type categoryTotalResponse struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// recentTransactionResponse は直近取引のAPIレスポンス。
// 収入・支出が混在するため種別フィールドを含む。
type recentTransactionResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
}

// summaryResponse はダッシュボード集計のAPIレスポンス。
type summaryResponse struct {
	TotalIncome       float64                     `json:"total_income"`
	TotalExpense      float64                     `json:"total_expense"`
	Balance           float64                     `json:"balance"`
	IncomeByCategory  []categoryTotalResponse     `json:"income_by_category"`
	ExpenseByCategory []categoryTotalResponse     `json:"expense_by_category"`
	Recent            []recentTransactionResponse `json:"recent"`
}

// GetSummary は認証済みユーザーの取引集計を返す。
// GET /api/summary
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	summary, err := h.service.Summarize(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSummaryResponse(summary))
}

// toSummaryResponse はledger.SummaryからAPIレスポンスに変換する。
func toSummaryResponse(summary *ledger.Summary) summaryResponse {
	recent := make([]recentTransactionResponse, 0, len(summary.Recent))
	for _, tr := range summary.Recent {
		recent = append(recent, recentTransactionResponse{
			ID:          tr.ID,
			Kind:        string(tr.Kind),
			Category:    tr.Category,
			Amount:      tr.Amount,
			Date:        tr.Date,
			Description: tr.Description,
		})
	}

	return summaryResponse{
		TotalIncome:       summary.TotalIncome,
		TotalExpense:      summary.TotalExpense,
		Balance:           summary.Balance,
		IncomeByCategory:  toCategoryTotalResponses(summary.IncomeByCategory),
		ExpenseByCategory: toCategoryTotalResponses(summary.ExpenseByCategory),
		Recent:            recent,
	}
}

func toCategoryTotalResponses(totals []ledger.CategoryTotal) []categoryTotalResponse {
	responses := make([]categoryTotalResponse, 0, len(totals))
	for _, ct := range totals {
		responses = append(responses, categoryTotalResponse{
			Category: ct.Category,
			Total:    ct.Total,
			Count:    ct.Count,
		})
	}
	return responses
}
