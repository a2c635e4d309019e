package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xulioguimaraes/sportstips/internal/config"
	catalogsvc "github.com/xulioguimaraes/sportstips/internal/services/catalog"
	entsvc "github.com/xulioguimaraes/sportstips/internal/services/entitlements"
	paymentsvc "github.com/xulioguimaraes/sportstips/internal/services/payments"
	pixsvc "github.com/xulioguimaraes/sportstips/internal/services/pix"
	tipsvc "github.com/xulioguimaraes/sportstips/internal/services/tips"
	"github.com/xulioguimaraes/sportstips/internal/transport/http/handlers"
)

type Dependencies struct {
	CatalogService     *catalogsvc.Service
	PixService         *pixsvc.Service
	PaymentService     *paymentsvc.Service
	EntitlementService *entsvc.Service
	TipsService        *tipsvc.Service
	Logger             *zap.Logger
	Config             config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	pixHandler := handlers.NewPixHandler(deps.PixService)
	webhookHandler := handlers.NewWebhookHandler(deps.PaymentService)
	purchaseHandler := handlers.NewPurchaseHandler(deps.EntitlementService)
	tipsHandler := handlers.NewTipsHandler(deps.TipsService, deps.EntitlementService)
	plansHandler := handlers.NewPlansHandler(deps.CatalogService)
	webhookAuthMW := WebhookAuthMiddleware(deps.Config.Asaas.WebhookToken, deps.Logger)

	r.Get("/healthz", handlers.Health)

	r.Route("/api", func(api chi.Router) {
		api.Route("/asaas", func(asaas chi.Router) {
			asaas.Post("/pix", pixHandler.CreateCharge)
			asaas.With(webhookAuthMW).Get("/webhook", webhookHandler.Ping)
			asaas.With(webhookAuthMW).Post("/webhook", webhookHandler.Handle)
		})

		api.Route("/tips", func(tips chi.Router) {
			tips.Get("/", tipsHandler.List)
			tips.Post("/", tipsHandler.Create)
			tips.Put("/", tipsHandler.Update)
			tips.Post("/purchase", purchaseHandler.Purchase)
			tips.Get("/purchased", purchaseHandler.Purchased)
			tips.Get("/balance", purchaseHandler.Balance)
			tips.Get("/{id}", tipsHandler.Get)
		})

		api.Route("/plans", func(plans chi.Router) {
			plans.Get("/", plansHandler.List)
			plans.Get("/{id}", plansHandler.Get)
		})
	})
}
