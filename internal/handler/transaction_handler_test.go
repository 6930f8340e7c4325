package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kakeibo/internal/ledger"
	"github.com/hitoshi/kakeibo/internal/middleware"
	"github.com/hitoshi/kakeibo/internal/model"
)

// mockTransactionService はTransactionServiceInterfaceのモック実装。
type mockTransactionService struct {
	kind     model.TransactionKind
	listFn   func(ctx context.Context, ownerID string) ([]*model.Transaction, error)
	createFn func(ctx context.Context, ownerID string, input ledger.CreateInput) (*model.Transaction, error)
	updateFn func(ctx context.Context, ownerID, id string, patch *model.TransactionPatch) (*model.Transaction, error)
	deleteFn func(ctx context.Context, ownerID, id string) error
}

func (m *mockTransactionService) Kind() model.TransactionKind {
	return m.kind
}

func (m *mockTransactionService) List(ctx context.Context, ownerID string) ([]*model.Transaction, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return nil, errors.New("list not configured")
}

func (m *mockTransactionService) Create(ctx context.Context, ownerID string, input ledger.CreateInput) (*model.Transaction, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerID, input)
	}
	return nil, errors.New("create not configured")
}

func (m *mockTransactionService) Update(ctx context.Context, ownerID, id string, patch *model.TransactionPatch) (*model.Transaction, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ownerID, id, patch)
	}
	return nil, errors.New("update not configured")
}

func (m *mockTransactionService) Delete(ctx context.Context, ownerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, id)
	}
	return errors.New("delete not configured")
}

// authedRequest は認証済みコンテキスト付きのテストリクエストを生成する。
func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
}

// TestTransactionHandler_List_ReturnsArray は一覧が配列で返ることを検証する。
func TestTransactionHandler_List_ReturnsArray(t *testing.T) {
	date := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := &mockTransactionService{
		kind: model.KindIncome,
		listFn: func(ctx context.Context, ownerID string) ([]*model.Transaction, error) {
			if ownerID != "user-1" {
				t.Errorf("ownerID = %q, want user-1", ownerID)
			}
			return []*model.Transaction{
				{ID: "t-1", UserID: ownerID, Kind: model.KindIncome, Category: "Salary", Amount: 8000, Date: date},
			}, nil
		},
	}
	h := NewTransactionHandler(service)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/incomes", ""))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("len(resp) = %d, want 1", len(resp))
	}
	if resp[0]["id"] != "t-1" || resp[0]["category"] != "Salary" {
		t.Errorf("unexpected entry: %+v", resp[0])
	}
}

// TestTransactionHandler_List_Empty は0件の場合にnullではなく空配列が返ることを検証する。
func TestTransactionHandler_List_Empty(t *testing.T) {
	service := &mockTransactionService{
		kind: model.KindExpense,
		listFn: func(ctx context.Context, ownerID string) ([]*model.Transaction, error) {
			return nil, nil
		},
	}
	h := NewTransactionHandler(service)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/expenses", ""))

	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

// TestTransactionHandler_Create_Success は作成成功時に201と作成レコードが返ることを検証する。
func TestTransactionHandler_Create_Success(t *testing.T) {
	service := &mockTransactionService{
		kind: model.KindExpense,
		createFn: func(ctx context.Context, ownerID string, input ledger.CreateInput) (*model.Transaction, error) {
			if input.Category != "Food" || input.Amount != 400 || input.Description != "Lunch at cafe" {
				t.Errorf("unexpected input: %+v", input)
			}
			return &model.Transaction{
				ID:          "t-new",
				UserID:      ownerID,
				Kind:        model.KindExpense,
				Category:    input.Category,
				Amount:      input.Amount,
				Date:        input.Date,
				Description: input.Description,
			}, nil
		},
	}
	h := NewTransactionHandler(service)

	body := `{"category":"Food","amount":400,"date":"2025-06-01","description":"Lunch at cafe"}`
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/api/expenses", body))

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["message"] == "" {
		t.Error("message must be populated")
	}
	record, ok := resp["expense"].(map[string]any)
	if !ok {
		t.Fatalf("response must contain expense object, got: %+v", resp)
	}
	if record["id"] != "t-new" || record["category"] != "Food" {
		t.Errorf("unexpected record: %+v", record)
	}
}

// TestTransactionHandler_Create_InvalidDate は解析できない日付で400が返ることを検証する。
func TestTransactionHandler_Create_InvalidDate(t *testing.T) {
	h := NewTransactionHandler(&mockTransactionService{kind: model.KindIncome})

	body := `{"category":"Salary","amount":8000,"date":"not-a-date"}`
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/api/incomes", body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// TestTransactionHandler_Create_ValidationError はサービス層のバリデーションエラーで400が返ることを検証する。
func TestTransactionHandler_Create_ValidationError(t *testing.T) {
	service := &mockTransactionService{
		kind: model.KindIncome,
		createFn: func(ctx context.Context, ownerID string, input ledger.CreateInput) (*model.Transaction, error) {
			return nil, model.NewValidationError("amount は0より大きい数値を指定してください")
		},
	}
	h := NewTransactionHandler(service)

	body := `{"category":"Salary","amount":-100}`
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/api/incomes", body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeValidation {
		t.Errorf("error code = %q, want %q", resp.Code, model.ErrCodeValidation)
	}
}

// TestTransactionHandler_Update_Success は更新成功時に200と更新後レコードが返ることを検証する。
func TestTransactionHandler_Update_Success(t *testing.T) {
	service := &mockTransactionService{
		kind: model.KindIncome,
		updateFn: func(ctx context.Context, ownerID, id string, patch *model.TransactionPatch) (*model.Transaction, error) {
			if id != "t-1" || ownerID != "user-1" {
				t.Errorf("id = %q ownerID = %q, want t-1 user-1", id, ownerID)
			}
			if patch.Amount == nil || *patch.Amount != 9000 {
				t.Errorf("patch.Amount = %v, want 9000", patch.Amount)
			}
			if patch.Category != nil {
				t.Errorf("patch.Category = %v, want nil", patch.Category)
			}
			return &model.Transaction{ID: id, UserID: ownerID, Kind: model.KindIncome, Category: "Salary", Amount: 9000}, nil
		},
	}

	r := chi.NewRouter()
	r.Put("/api/incomes/{id}", NewTransactionHandler(service).Update)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPut, "/api/incomes/t-1", `{"amount":9000}`))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	record, ok := resp["income"].(map[string]any)
	if !ok {
		t.Fatalf("response must contain income object, got: %+v", resp)
	}
	if record["amount"] != float64(9000) {
		t.Errorf("amount = %v, want 9000", record["amount"])
	}
}

// TestTransactionHandler_Update_NotFound は対象なし（他ユーザー所有を含む）で404が返ることを検証する。
func TestTransactionHandler_Update_NotFound(t *testing.T) {
	service := &mockTransactionService{
		kind: model.KindExpense,
		updateFn: func(ctx context.Context, ownerID, id string, patch *model.TransactionPatch) (*model.Transaction, error) {
			return nil, model.NewTransactionNotFoundError(model.KindExpense)
		},
	}

	r := chi.NewRouter()
	r.Put("/api/expenses/{id}", NewTransactionHandler(service).Update)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPut, "/api/expenses/other-users", `{"amount":1}`))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var resp middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeTransactionNotFound {
		t.Errorf("error code = %q, want %q", resp.Code, model.ErrCodeTransactionNotFound)
	}
}

// TestTransactionHandler_Delete_Success は削除成功時に200とメッセージが返ることを検証する。
func TestTransactionHandler_Delete_Success(t *testing.T) {
	service := &mockTransactionService{
		kind: model.KindIncome,
		deleteFn: func(ctx context.Context, ownerID, id string) error {
			if id != "t-1" {
				t.Errorf("id = %q, want t-1", id)
			}
			return nil
		},
	}

	r := chi.NewRouter()
	r.Delete("/api/incomes/{id}", NewTransactionHandler(service).Delete)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodDelete, "/api/incomes/t-1", ""))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["message"] == "" {
		t.Error("message must be populated")
	}
}

// TestTransactionHandler_Delete_NotFound は削除対象なしで404が返ることを検証する。
func TestTransactionHandler_Delete_NotFound(t *testing.T) {
	service := &mockTransactionService{
		kind: model.KindIncome,
		deleteFn: func(ctx context.Context, ownerID, id string) error {
			return model.NewTransactionNotFoundError(model.KindIncome)
		},
	}

	r := chi.NewRouter()
	r.Delete("/api/incomes/{id}", NewTransactionHandler(service).Delete)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodDelete, "/api/incomes/gone", ""))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestTransactionHandler_Unauthenticated は認証コンテキストなしで401が返ることを検証する。
func TestTransactionHandler_Unauthenticated(t *testing.T) {
	h := NewTransactionHandler(&mockTransactionService{kind: model.KindIncome})

	req := httptest.NewRequest(http.MethodGet, "/api/incomes", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
