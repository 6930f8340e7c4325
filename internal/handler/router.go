package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kakeibo/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	TokenVerifier     middleware.TokenVerifier
	HTTPMetrics       middleware.HTTPMetricsRecorder

	// 公開エンドポイント
	MetricsHandler http.Handler
	HealthPinger   HealthPinger

	// サービス
	AuthService    AuthServiceInterface
	IncomeService  TransactionServiceInterface
	ExpenseService TransactionServiceInterface
	SummaryService SummaryServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → (認証ルートのみ) Auth
//
// /health と /metrics は認証不要。/api/auth/register と /api/auth/login も
// トークン取得前に呼ばれるため認証不要。それ以外の/api/*は有効なトークンが必須。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.HTTPMetrics))

	authHandler := NewAuthHandler(deps.AuthService)
	incomeHandler := NewTransactionHandler(deps.IncomeService)
	expenseHandler := NewTransactionHandler(deps.ExpenseService)
	summaryHandler := NewSummaryHandler(deps.SummaryService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthPinger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		// GET /api/auth/user のみ認証が必要
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
			r.Get("/user", authHandler.GetUser)
		})
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))

		// 収入管理
		r.Route("/api/incomes", func(r chi.Router) {
			r.Get("/", incomeHandler.List)
			r.Post("/", incomeHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", incomeHandler.Update)
				r.Delete("/", incomeHandler.Delete)
			})
		})

		// 支出管理
		r.Route("/api/expenses", func(r chi.Router) {
			r.Get("/", expenseHandler.List)
			r.Post("/", expenseHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", expenseHandler.Update)
				r.Delete("/", expenseHandler.Delete)
			})
		})

		// ダッシュボード集計
		r.Get("/api/summary", summaryHandler.GetSummary)
	})

	return r
}
