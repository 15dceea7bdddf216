package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lamnguyen/vestika-backend/api/controllers"
	"github.com/lamnguyen/vestika-backend/api/middleware"
	authsvc "github.com/lamnguyen/vestika-backend/internal/auth"
	cartsvc "github.com/lamnguyen/vestika-backend/internal/cart"
	"github.com/lamnguyen/vestika-backend/internal/notifications"
	ordersvc "github.com/lamnguyen/vestika-backend/internal/orders"
	productsvc "github.com/lamnguyen/vestika-backend/internal/products"
	reviewsvc "github.com/lamnguyen/vestika-backend/internal/reviews"
	usersvc "github.com/lamnguyen/vestika-backend/internal/users"
	"github.com/lamnguyen/vestika-backend/pkg/config"
	"github.com/lamnguyen/vestika-backend/pkg/db"
	"github.com/lamnguyen/vestika-backend/pkg/enums"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
	"github.com/lamnguyen/vestika-backend/pkg/redis"
	"github.com/lamnguyen/vestika-backend/pkg/storage/gcs"
)

// Deps bundles everything the router wires into handlers. Optional fields
// (Redis, Uploader, GCSPinger) may be nil and their surfaces degrade.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger  db.Pinger
	Redis     *redis.Client
	GCSPinger gcs.Pinger
	Uploader  gcs.Uploader

	Auth          authsvc.Service
	Users         usersvc.Service
	Products      productsvc.Service
	Cart          cartsvc.Service
	Orders        ordersvc.Service
	Reviews       reviewsvc.Service
	Notifications notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Frontend.BaseURL),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	requireAuth := middleware.Auth(cfg.JWT, logg)
	requireAdmin := middleware.RequireRole(string(enums.UserRoleAdmin), logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DBPinger, d.Redis, d.GCSPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/forgot-password", controllers.AuthForgotPassword(d.Auth, logg))
			r.Post("/reset-password", controllers.AuthResetPassword(d.Auth, logg))

			if cfg.GoogleOAuth.Enabled() {
				r.Get("/google", controllers.AuthGoogleRedirect(d.Auth, logg))
				r.Get("/google/callback", controllers.AuthGoogleCallback(d.Auth, logg))
			}

			r.With(requireAuth).Get("/me", controllers.AuthMe(d.Auth, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(d.Products, logg))
			r.Get("/{slug}", controllers.CategoryDetail(d.Products, logg))
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", controllers.CreateCategory(d.Products, logg))
				r.Put("/{categoryID}", controllers.UpdateCategory(d.Products, logg))
				r.Delete("/{categoryID}", controllers.DeleteCategory(d.Products, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(d.Products, logg))
			r.Get("/{productID}", controllers.ProductDetail(d.Products, logg))
			r.Get("/{productID}/variants", controllers.ListVariants(d.Products, logg))
			r.Get("/{productID}/reviews", controllers.ListProductReviews(d.Reviews, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/{productID}/reviews/can-review", controllers.CanReviewProduct(d.Reviews, logg))
				r.Post("/{productID}/reviews", controllers.SubmitReview(d.Reviews, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", controllers.CreateProduct(d.Products, logg))
				r.Put("/{productID}", controllers.UpdateProduct(d.Products, logg))
				r.Delete("/{productID}", controllers.DeleteProduct(d.Products, logg))
				r.Post("/{productID}/variants", controllers.AddVariant(d.Products, logg))
				r.Put("/{productID}/variants/{variantID}", controllers.UpdateVariant(d.Products, logg))
				r.Delete("/{productID}/variants/{variantID}", controllers.DeleteVariant(d.Products, logg))
				r.Post("/{productID}/variants/{variantID}/restock", controllers.RestockVariant(d.Products, logg))
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Use(requireAuth)
			r.Delete("/{reviewID}", controllers.DeleteReview(d.Reviews, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", controllers.CartList(d.Cart, logg))
			r.Post("/", controllers.CartAdd(d.Cart, logg))
			r.Post("/sync", controllers.CartSync(d.Cart, logg))
			r.Put("/{itemID}", controllers.CartUpdateItem(d.Cart, logg))
			r.Delete("/{itemID}", controllers.CartRemoveItem(d.Cart, logg))
			r.Delete("/", controllers.CartClear(d.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", controllers.PlaceOrder(d.Orders, logg))
			r.Get("/", controllers.ListOrders(d.Orders, logg))
			r.Get("/{orderID}", controllers.OrderDetail(d.Orders, logg))
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Put("/{orderID}", controllers.UpdateOrderStatus(d.Orders, logg))
				r.Delete("/{orderID}", controllers.DeleteOrder(d.Orders, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
			r.Delete("/{notificationID}", controllers.DeleteNotification(d.Notifications, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			r.Put("/me", controllers.UpdateProfile(d.Users, logg))
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", controllers.AdminListUsers(d.Users, logg))
				r.Put("/{userID}/role", controllers.AdminChangeUserRole(d.Users, logg))
			})
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Post("/images", controllers.UploadImage(d.Uploader, logg))
		})
	})

	return r
}
