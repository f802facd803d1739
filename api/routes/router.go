package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velmora/unicart/api/controllers"
	"github.com/velmora/unicart/api/middleware"
	"github.com/velmora/unicart/pkg/config"
	"github.com/velmora/unicart/pkg/logger"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Cart    *controllers.CartController
	Health  *controllers.HealthController
	Metrics prometheus.Gatherer
}

// New assembles the HTTP surface: health probes, metrics, and the cart API.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.CORS())

	r.Get("/health/live", deps.Health.Live)
	r.Get("/health/ready", deps.Health.Ready)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.Session(deps.Config.JWT, deps.Logger))

		r.Get("/", deps.Cart.GetCart)
		r.Delete("/", deps.Cart.ClearCart)
		r.Post("/items", deps.Cart.AddItem)
		r.Patch("/items/{variantId}", deps.Cart.SetQuantity)
		r.Delete("/items/{variantId}", deps.Cart.RemoveItem)
		r.Post("/panel/open", deps.Cart.OpenPanel)
		r.Post("/panel/close", deps.Cart.ClosePanel)
	})

	return r
}
