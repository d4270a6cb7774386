package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/glazeops/internal/attachment"
	attachmentdomain "github.com/smallbiznis/glazeops/internal/attachment/domain"
	"github.com/smallbiznis/glazeops/internal/audit"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	"github.com/smallbiznis/glazeops/internal/auth"
	authdomain "github.com/smallbiznis/glazeops/internal/auth/domain"
	"github.com/smallbiznis/glazeops/internal/authorization"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/customer"
	customerdomain "github.com/smallbiznis/glazeops/internal/customer/domain"
	"github.com/smallbiznis/glazeops/internal/invoice"
	invoicedomain "github.com/smallbiznis/glazeops/internal/invoice/domain"
	"github.com/smallbiznis/glazeops/internal/observability"
	obsmiddleware "github.com/smallbiznis/glazeops/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/glazeops/internal/observability/metrics"
	obstracing "github.com/smallbiznis/glazeops/internal/observability/tracing"
	"github.com/smallbiznis/glazeops/internal/payment"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	"github.com/smallbiznis/glazeops/internal/providers"
	"github.com/smallbiznis/glazeops/internal/ratelimit"
	"github.com/smallbiznis/glazeops/internal/receipt"
	receiptdomain "github.com/smallbiznis/glazeops/internal/receipt/domain"
	"github.com/smallbiznis/glazeops/internal/settings"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"github.com/smallbiznis/glazeops/internal/sitevisit"
	sitevisitdomain "github.com/smallbiznis/glazeops/internal/sitevisit/domain"
	"github.com/smallbiznis/glazeops/internal/whatsapp"
	whatsappdomain "github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"github.com/smallbiznis/glazeops/internal/whatsapp/realtime"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	settings.Module,
	customer.Module,
	sitevisit.Module,
	invoice.Module,
	receipt.Module,
	attachment.Module,
	payment.Module,
	providers.Module,
	ratelimit.Module,
	whatsapp.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	settingsSvc     settingsdomain.Service
	customerSvc     customerdomain.Service
	siteVisitSvc    sitevisitdomain.Service
	invoiceSvc      invoicedomain.Service
	paymentSvc      paymentdomain.Service
	webhookSvc      paymentdomain.WebhookService
	checkoutSvc     paymentdomain.CheckoutService
	verificationSvc paymentdomain.VerificationService
	exportSvc       paymentdomain.ExportService
	receiptSvc      receiptdomain.Service
	attachmentSvc   attachmentdomain.Service
	conversationSvc whatsappdomain.ConversationService
	quickReplySvc   whatsappdomain.QuickReplyService
	waWebhookSvc    whatsappdomain.WebhookService
	marketingSvc    whatsappdomain.MarketingService
	assistantSvc    whatsappdomain.AssistantService
	hub             *realtime.Hub
	limiter         *ratelimit.TokenBucket
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	SettingsSvc     settingsdomain.Service
	CustomerSvc     customerdomain.Service
	SiteVisitSvc    sitevisitdomain.Service
	InvoiceSvc      invoicedomain.Service
	PaymentSvc      paymentdomain.Service
	WebhookSvc      paymentdomain.WebhookService
	CheckoutSvc     paymentdomain.CheckoutService
	VerificationSvc paymentdomain.VerificationService
	ExportSvc       paymentdomain.ExportService
	ReceiptSvc      receiptdomain.Service
	AttachmentSvc   attachmentdomain.Service
	ConversationSvc whatsappdomain.ConversationService
	QuickReplySvc   whatsappdomain.QuickReplyService
	WAWebhookSvc    whatsappdomain.WebhookService
	MarketingSvc    whatsappdomain.MarketingService
	AssistantSvc    whatsappdomain.AssistantService
	Hub             *realtime.Hub
	Redis           *redis.Client `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		settingsSvc:     p.SettingsSvc,
		customerSvc:     p.CustomerSvc,
		siteVisitSvc:    p.SiteVisitSvc,
		invoiceSvc:      p.InvoiceSvc,
		paymentSvc:      p.PaymentSvc,
		webhookSvc:      p.WebhookSvc,
		checkoutSvc:     p.CheckoutSvc,
		verificationSvc: p.VerificationSvc,
		exportSvc:       p.ExportSvc,
		receiptSvc:      p.ReceiptSvc,
		attachmentSvc:   p.AttachmentSvc,
		conversationSvc: p.ConversationSvc,
		quickReplySvc:   p.QuickReplySvc,
		waWebhookSvc:    p.WAWebhookSvc,
		marketingSvc:    p.MarketingSvc,
		assistantSvc:    p.AssistantSvc,
		hub:             p.Hub,
		limiter:         ratelimit.NewTokenBucket(p.Redis),
	}

	svc.registerFunctionRoutes()
	svc.registerWebhookRoutes()
	svc.registerAuthRoutes()
	svc.registerPublicRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerFunctionRoutes serves the checkout endpoints called from the public
// booking page. They keep a flat {"error": "..."} body.
func (s *Server) registerFunctionRoutes() {
	fn := s.engine.Group("/functions", CORS(publicCORSConfig()))

	fn.OPTIONS("/paypal/create-order", preflight)
	fn.POST("/paypal/create-order", s.PublicRateLimit("paypal-create-order", 0.5, 10), s.CreatePayPalOrder)
	fn.OPTIONS("/paypal/capture-order", preflight)
	fn.POST("/paypal/capture-order", s.PublicRateLimit("paypal-capture-order", 0.5, 10), s.CapturePayPalOrder)
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")

	hooks.POST("/stripe", s.HandleStripeWebhook)
	hooks.GET("/whatsapp", s.VerifyWhatsAppWebhook)
	hooks.POST("/whatsapp", s.HandleWhatsAppWebhook)
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth", CORS(s.apiCORSConfig()))

	auth.OPTIONS("/login", preflight)
	auth.POST("/login", s.PublicRateLimit("auth-login", 0.2, 5), s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public", CORS(publicCORSConfig()))

	public.OPTIONS("/site-visit-bookings", preflight)
	public.POST("/site-visit-bookings", s.PublicRateLimit("site-visit-booking", 0.1, 5), s.CreateSiteVisitBooking)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", CORS(s.apiCORSConfig()))
	api.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`.*/stream$`})))
	api.Use(s.AuthRequired())

	// -------- Settings --------
	settingsManage := s.authorize(authorization.ObjectSettings, authorization.ActionSettingsManage)
	api.GET("/settings/paypal", settingsManage, s.GetPayPalSettings)
	api.PUT("/settings/paypal", settingsManage, s.UpsertPayPalSettings)
	api.PATCH("/settings/paypal/status", settingsManage, s.SetPayPalStatus)
	api.GET("/settings/stripe", settingsManage, s.GetStripeSettings)
	api.PUT("/settings/stripe", settingsManage, s.UpsertStripeSettings)
	api.PATCH("/settings/stripe/status", settingsManage, s.SetStripeStatus)
	api.GET("/settings/bank-transfer", settingsManage, s.GetBankTransferSettings)
	api.PUT("/settings/bank-transfer", settingsManage, s.UpsertBankTransferSettings)
	api.GET("/settings/email", settingsManage, s.GetEmailSettings)
	api.PUT("/settings/email", settingsManage, s.UpsertEmailSettings)
	api.GET("/settings/brand", settingsManage, s.GetBrandSettings)
	api.PUT("/settings/brand", settingsManage, s.UpsertBrandSettings)
	api.GET("/settings/ai", settingsManage, s.GetAISettings)
	api.PUT("/settings/ai", settingsManage, s.UpsertAISettings)

	// -------- Users --------
	api.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.ListUsers)
	api.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.CreateUser)
	api.PATCH("/users/:id/status", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.SetUserStatus)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)

	// -------- Customers --------
	api.GET("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
	api.POST("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionCreate), s.CreateCustomer)
	api.GET("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomerByID)
	api.PUT("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.UpdateCustomer)
	api.DELETE("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionDelete), s.DeleteCustomer)

	// -------- Site visits --------
	api.GET("/site-visits", s.authorize(authorization.ObjectSiteVisit, authorization.ActionView), s.ListSiteVisits)
	api.POST("/site-visits", s.authorize(authorization.ObjectSiteVisit, authorization.ActionCreate), s.CreateSiteVisit)
	api.GET("/site-visits/:id", s.authorize(authorization.ObjectSiteVisit, authorization.ActionView), s.GetSiteVisitByID)

	// -------- Invoices --------
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.CreateInvoice)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceByID)

	// -------- Payments --------
	api.POST("/payments/bank-transfer", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentSubmit), s.SubmitBankTransfer)
	api.GET("/payments/pending", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentReview), s.ListPendingPayments)
	api.GET("/payments/export", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentExport), s.ExportPayments)
	api.GET("/payments/:id/proof", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentReview), s.GetPaymentProof)
	api.POST("/payments/:id/verify", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentReview), s.VerifyPayment)
	api.POST("/payments/:id/reject", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentReview), s.RejectPayment)

	// -------- Receipts --------
	api.GET("/receipts/:id", s.authorize(authorization.ObjectReceipt, authorization.ActionView), s.GetReceipt)
	api.GET("/receipts/:id/pdf", s.authorize(authorization.ObjectReceipt, authorization.ActionView), s.DownloadReceiptPDF)

	// -------- Attachments --------
	api.POST("/attachments", s.authorize(authorization.ObjectAttachment, authorization.ActionCreate), s.UploadAttachment)
	api.GET("/attachments", s.authorize(authorization.ObjectAttachment, authorization.ActionView), s.ListAttachments)
	api.GET("/attachments/:id/url", s.authorize(authorization.ObjectAttachment, authorization.ActionView), s.GetAttachmentURL)
	api.DELETE("/attachments/:id", s.authorize(authorization.ObjectAttachment, authorization.ActionDelete), s.DeleteAttachment)

	// -------- WhatsApp --------
	wa := api.Group("/whatsapp")
	wa.GET("/conversations", s.authorize(authorization.ObjectWhatsApp, authorization.ActionView), s.ListConversations)
	wa.POST("/conversations", s.authorize(authorization.ObjectWhatsApp, authorization.ActionMessageSend), s.UpsertConversation)
	wa.GET("/conversations/:id", s.authorize(authorization.ObjectWhatsApp, authorization.ActionView), s.GetConversation)
	wa.POST("/conversations/:id/read", s.authorize(authorization.ObjectWhatsApp, authorization.ActionView), s.MarkConversationRead)
	wa.GET("/conversations/:id/messages", s.authorize(authorization.ObjectWhatsApp, authorization.ActionView), s.ListMessages)
	wa.POST("/conversations/:id/messages", s.authorize(authorization.ObjectWhatsApp, authorization.ActionMessageSend), s.SendMessage)
	wa.GET("/conversations/:id/stream", s.authorize(authorization.ObjectWhatsApp, authorization.ActionView), s.StreamConversation)
	wa.GET("/conversations/:id/suggestions", s.authorize(authorization.ObjectAIAssistant, authorization.ActionSuggest), s.ListSuggestions)
	wa.POST("/suggest-reply", s.authorize(authorization.ObjectAIAssistant, authorization.ActionSuggest), s.SuggestReply)

	wa.GET("/quick-replies", s.authorize(authorization.ObjectWhatsApp, authorization.ActionView), s.ListQuickReplies)
	wa.POST("/quick-replies", s.authorize(authorization.ObjectWhatsApp, authorization.ActionMessageSend), s.CreateQuickReply)
	wa.DELETE("/quick-replies/:id", s.authorize(authorization.ObjectWhatsApp, authorization.ActionMessageSend), s.DeleteQuickReply)

	// -------- Campaigns --------
	wa.GET("/contact-lists", s.authorize(authorization.ObjectCampaign, authorization.ActionView), s.ListContactLists)
	wa.POST("/contact-lists", s.authorize(authorization.ObjectCampaign, authorization.ActionCreate), s.CreateContactList)
	wa.GET("/contact-lists/:id", s.authorize(authorization.ObjectCampaign, authorization.ActionView), s.GetContactList)
	wa.PATCH("/contact-lists/:id", s.authorize(authorization.ObjectCampaign, authorization.ActionUpdate), s.UpdateContactList)
	wa.DELETE("/contact-lists/:id", s.authorize(authorization.ObjectCampaign, authorization.ActionDelete), s.DeleteContactList)
	wa.GET("/contact-lists/:id/contacts", s.authorize(authorization.ObjectCampaign, authorization.ActionView), s.ListContacts)
	wa.POST("/contact-lists/:id/contacts", s.authorize(authorization.ObjectCampaign, authorization.ActionCreate), s.AddContact)
	wa.DELETE("/contact-lists/:id/contacts/:contactId", s.authorize(authorization.ObjectCampaign, authorization.ActionDelete), s.RemoveContact)

	wa.GET("/campaigns", s.authorize(authorization.ObjectCampaign, authorization.ActionView), s.ListCampaigns)
	wa.POST("/campaigns", s.authorize(authorization.ObjectCampaign, authorization.ActionCreate), s.CreateCampaign)
	wa.GET("/campaigns/:id", s.authorize(authorization.ObjectCampaign, authorization.ActionView), s.GetCampaign)
	wa.POST("/campaigns/:id/send", s.authorize(authorization.ObjectCampaign, authorization.ActionCampaignSend), s.SendCampaign)
	wa.GET("/campaigns/:id/analytics", s.authorize(authorization.ObjectCampaign, authorization.ActionView), s.GetCampaignAnalytics)
	wa.GET("/campaigns/:id/recipients", s.authorize(authorization.ObjectCampaign, authorization.ActionView), s.ListCampaignRecipients)
}
