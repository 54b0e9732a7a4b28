package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ticket-marketplace/config"
	"ticket-marketplace/internal/clock"
	"ticket-marketplace/internal/handlers"
	"ticket-marketplace/internal/services"
	"ticket-marketplace/internal/services/gateway"
	"ticket-marketplace/internal/services/gateway/mockpay"
	"ticket-marketplace/internal/services/gateway/pesapal"
	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/security"
	"ticket-marketplace/utils"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	_ "ticket-marketplace/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PubNub for buyer notifications
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}
	notifier := services.NewNotifier(pn)

	// Initialize payment gateway
	gw, mock, err := newGateway(ctx, cfg)
	if err != nil {
		return err
	}
	defer gw.Close()

	// Initialize services
	st := store.NewPB(app)
	purchaseService := services.NewPurchaseService(st)
	paymentService := services.NewPaymentService(st, purchaseService, gw, notifier, cfg.Currency, clock.NewSystem())
	sweeper := services.NewSweeper(st, clock.NewSystem(), cfg.SweepInterval)

	// Route asynchronous gateway notifications into reconciliation
	notifCh := make(chan *gateway.Notification, 16)
	gw.SetNotificationChannel(notifCh)
	go consumeNotifications(ctx, notifCh, paymentService)

	// Initialize handlers
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, gw)
	adminHandler := handlers.NewAdminHandler(st, purchaseService, sweeper)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		sweeper.Stop()
		cancel()
		return e.Next()
	})

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		syncPurchasableEvents(app, redisClient)
		sweeper.Start()

		api := e.Router.Group("/api/v1")

		// Purchase endpoints (anonymous buyers)
		buyers := api.Group("")
		buyers.BindFunc(rateLimiter.PurchaseRateLimit())
		buyers.POST("/purchases", purchaseHandler.CreatePurchase)
		buyers.GET("/purchases", purchaseHandler.ListPurchasesByEmail)
		buyers.GET("/purchases/{purchaseId}", purchaseHandler.GetPurchase)
		buyers.POST("/purchases/{purchaseId}/cancel", purchaseHandler.CancelPurchase)
		buyers.GET("/purchases/{purchaseId}/qr", purchaseHandler.GetTicketQR)

		// Payment endpoints
		buyers.POST("/payments", paymentHandler.InitiatePayment)
		buyers.GET("/payments/{paymentId}", paymentHandler.GetPayment)
		api.POST("/payments/callback", paymentHandler.GatewayCallback)

		// Admin endpoints
		api.GET("/admin/dashboard", adminHandler.GetDashboard)
		api.GET("/admin/purchases", adminHandler.ListPurchases)
		api.GET("/admin/payments", adminHandler.ListPayments)
		api.PATCH("/admin/purchases/{purchaseId}", adminHandler.UpdatePurchaseStatus)
		api.DELETE("/admin/purchases/{purchaseId}", adminHandler.DeletePurchase)
		api.POST("/admin/payments/{paymentId}/refund", paymentHandler.RefundPayment)
		api.GET("/admin/sweeper", adminHandler.GetSweeperStatus)
		api.POST("/admin/sweeper/run", adminHandler.TriggerSweep)
		api.POST("/admin/sweeper/start", adminHandler.StartSweeper)
		api.POST("/admin/sweeper/stop", adminHandler.StopSweeper)

		// Test endpoints for settling mock charges
		if cfg.Environment == "development" && mock != nil {
			api.POST("/test/settle-payment", settleMockPayment(mock))
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupEventHooks(app, redisClient)

		return e.Next()
	})

	if cfg.EnableMetrics {
		go serveMetrics(cfg.MetricsPort)
	}

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// newGateway picks the payment provider. The mock gateway is also returned
// directly so development routes can settle its charges.
func newGateway(ctx context.Context, cfg *config.Config) (gateway.Gateway, *mockpay.MockPay, error) {
	switch cfg.PaymentProvider {
	case string(gateway.ProviderPesapal):
		gw, err := pesapal.New(ctx, &pesapal.Config{
			BaseURL:        cfg.PesapalBaseURL,
			ConsumerKey:    cfg.PesapalKey,
			ConsumerSecret: cfg.PesapalSecret,
			CallbackURL:    cfg.PesapalCallbackURL,
			IPNID:          cfg.PesapalIPNID,
			WebhookSecret:  cfg.PesapalWebhookKey,

			PNSubKey:    cfg.GatewayPNSubKey,
			PNSubSecret: cfg.GatewayPNSecret,
			PNUUID:      cfg.GatewayPNUUID,
			PNChannel:   cfg.GatewayPNChannel,
			PNCipherKey: cfg.GatewayPNCipherKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return gw, nil, nil

	default:
		mock := mockpay.New()
		return mock, mock, nil
	}
}

func consumeNotifications(ctx context.Context, ch chan *gateway.Notification, paymentService *services.PaymentService) {
	for {
		select {
		case n := <-ch:
			slog.Info("gateway notification received", "reference", n.Reference, "outcome", n.Outcome)

			var err error
			switch n.Outcome {
			case gateway.OutcomeCompleted:
				err = paymentService.Confirm(ctx, services.ConfirmInput{
					Reference:  n.Reference,
					TrackingID: n.TrackingID,
					Amount:     n.Amount,
				})
			case gateway.OutcomeFailed:
				err = paymentService.Fail(ctx, n.Reference, n.Reason)
			}

			switch {
			case err == nil:
			case errors.Is(err, status.ErrPaymentNotFound), errors.Is(err, status.ErrAlreadyFinalized):
				slog.Info("gateway notification ignored", "reference", n.Reference, "reason", err.Error())
			default:
				slog.Error("gateway notification processing failed", "reference", n.Reference, "error", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

func settleMockPayment(mock *mockpay.MockPay) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req struct {
			Reference string          `json:"reference"`
			Outcome   string          `json:"outcome"`
			Amount    decimal.Decimal `json:"amount"`
			Reason    string          `json:"reason"`
		}
		if err := e.BindBody(&req); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
		}

		var err error
		if req.Outcome == gateway.OutcomeFailed {
			err = mock.Fail(req.Reference, req.Reason)
		} else {
			err = mock.Complete(req.Reference, req.Amount)
		}
		if err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return e.JSON(http.StatusOK, map[string]string{"message": "Payment settlement sent"})
	}
}

func syncPurchasableEvents(app *pocketbase.PocketBase, redisClient *redis.Client) {
	ctx := context.Background()

	var records []dbx.NullStringMap
	if err := app.DB().NewQuery(
		"SELECT id FROM events WHERE status = 'approved'",
	).All(&records); err != nil {
		log.Printf("Error fetching purchasable events: %v", err)
		return
	}

	redisClient.Del(ctx, "purchasable_events")

	if len(records) > 0 {
		var eventIDs []interface{}
		for _, record := range records {
			if id := record["id"].String; id != "" {
				eventIDs = append(eventIDs, id)
			}
		}

		if len(eventIDs) > 0 {
			redisClient.SAdd(ctx, "purchasable_events", eventIDs...)
			log.Printf("Synced %d purchasable events to Redis", len(eventIDs))
		}
	}
}

// setupEventHooks mirrors approved events into the Redis purchasable set.
// The set is a listing fast-path only; the authoritative check happens inside
// the reservation transaction, so hook failures are logged and swallowed.
func setupEventHooks(app *pocketbase.PocketBase, redisClient *redis.Client) {
	app.OnRecordCreateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}
		ctx := e.Request.Context()

		if e.Record.GetString("status") == "approved" {
			if err := redisClient.SAdd(ctx, "purchasable_events", e.Record.Id).Err(); err != nil {
				slog.Error("Failed to add purchasable event to Redis", "eventID", e.Record.Id, "error", err)
			}
		}
		return nil
	})

	app.OnRecordUpdateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}
		ctx := e.Request.Context()

		if e.Record.GetString("status") == "approved" {
			if err := redisClient.SAdd(ctx, "purchasable_events", e.Record.Id).Err(); err != nil {
				slog.Error("Failed to add purchasable event to Redis", "eventID", e.Record.Id, "error", err)
			}
		} else {
			if err := redisClient.SRem(ctx, "purchasable_events", e.Record.Id).Err(); err != nil {
				slog.Error("Failed to remove event from Redis", "eventID", e.Record.Id, "error", err)
			}
		}
		return nil
	})

	app.OnRecordDeleteRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}
		ctx := e.Request.Context()

		if err := redisClient.SRem(ctx, "purchasable_events", e.Record.Id).Err(); err != nil {
			slog.Error("Failed to remove deleted event from Redis", "eventID", e.Record.Id, "error", err)
		}
		return nil
	})
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("Metrics server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
