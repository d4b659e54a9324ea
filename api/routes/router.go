package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rigforge/rigforge-backend/api/controllers"
	"github.com/rigforge/rigforge-backend/api/middleware"
	"github.com/rigforge/rigforge-backend/internal/blacklist"
	"github.com/rigforge/rigforge-backend/internal/cart"
	"github.com/rigforge/rigforge-backend/internal/catalog"
	checkoutsvc "github.com/rigforge/rigforge-backend/internal/checkout"
	"github.com/rigforge/rigforge-backend/internal/coupons"
	"github.com/rigforge/rigforge-backend/internal/notifications"
	"github.com/rigforge/rigforge-backend/internal/orders"
	"github.com/rigforge/rigforge-backend/internal/wallet"
	"github.com/rigforge/rigforge-backend/pkg/config"
	"github.com/rigforge/rigforge-backend/pkg/logger"
	"github.com/rigforge/rigforge-backend/pkg/redis"
)

// Services bundles everything the router mounts.
type Services struct {
	Catalog       catalog.Service
	Cart          cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Wallet        wallet.Service
	Coupons       coupons.Service
	Blacklist     blacklist.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	idemStore redis.IdempotencyStore,
	healthDeps map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps))
	})

	// Catalog reads are public; everything else carries gateway identity.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/components", controllers.ListComponents(svcs.Catalog, logg))
		r.Get("/components/{componentId}", controllers.GetComponent(svcs.Catalog, logg))
		r.Get("/products", controllers.ListProducts(svcs.Catalog, logg))
		r.Get("/products/{productId}", controllers.GetProduct(svcs.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(svcs.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(svcs.Cart, logg))
			r.Post("/coupon", controllers.CartApplyCoupon(svcs.Cart, logg))
			r.Delete("/coupon", controllers.CartRemoveCoupon(svcs.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			r.Post("/{orderId}/pay", controllers.PayOrder(svcs.Orders, logg))
			r.Post("/{orderId}/items/{itemId}/return", controllers.RequestReturn(svcs.Orders, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(svcs.Wallet, logg))
			r.Get("/transactions", controllers.WalletTransactions(svcs.Wallet, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.RequireRole(middleware.RoleAdmin, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/advance", controllers.AdminAdvanceOrder(svcs.Orders, logg))
			r.Post("/{orderId}/items/{itemId}/return/approve", controllers.AdminApproveReturn(svcs.Orders, logg))
			r.Post("/{orderId}/items/{itemId}/return/reject", controllers.AdminRejectReturn(svcs.Orders, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.AdminListCoupons(svcs.Coupons, logg))
			r.Post("/", controllers.AdminCreateCoupon(svcs.Coupons, logg))
			r.Delete("/{couponId}", controllers.AdminDeactivateCoupon(svcs.Coupons, logg))
		})

		r.Get("/blacklist", controllers.AdminListBlacklist(svcs.Blacklist, logg))
	})

	return r
}
