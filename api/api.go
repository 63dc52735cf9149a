package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/foodie/api/background"
	"github.com/irsalhamdi/foodie/api/middleware"
	"github.com/irsalhamdi/foodie/api/web"
	"github.com/irsalhamdi/foodie/config"
	"github.com/irsalhamdi/foodie/core/auth"
	"github.com/irsalhamdi/foodie/core/cart"
	"github.com/irsalhamdi/foodie/core/comment"
	"github.com/irsalhamdi/foodie/core/menu"
	"github.com/irsalhamdi/foodie/core/notify"
	"github.com/irsalhamdi/foodie/core/order"
	"github.com/irsalhamdi/foodie/core/payment"
	"github.com/irsalhamdi/foodie/core/reservation"
	"github.com/irsalhamdi/foodie/core/user"
	"github.com/irsalhamdi/foodie/email"
	"github.com/irsalhamdi/foodie/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Mailer           email.Mailer
	Background       *background.Background
	Carts            *cart.Registry
	Calculator       cart.Calculator
	Orders           order.Repository
	Submitter        *order.Submitter
	Payments         *payment.Service
	Paypal           *payment.Paypal
	StripeCfg        config.Stripe
	Hub              *notify.Hub
	Counter          *notify.Counter
	Publisher        notify.Publisher
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	LoginLimiter     *rate.Limiter
	CommentLimiter   *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)
	optional := auth.Optional(cfg.Session)
	notifier := notify.NewNotifier(cfg.Publisher, cfg.Log)

	loginLimit := middleware.RateLimit(cfg.LoginLimiter)
	commentLimit := middleware.RateLimit(cfg.CommentLimiter)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), loginLimit)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), loginLimit)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPost, "/users", user.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/menu", menu.HandleList(cfg.DB), optional)
	a.Handle(http.MethodGet, "/menu/{id}", menu.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/menu/{id}/comments", comment.HandleListByMenuItem(cfg.DB))
	a.Handle(http.MethodPost, "/menu", menu.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/menu/{id}", menu.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/menu/{id}", menu.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.Carts, cfg.Calculator), authen)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.Carts), authen)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.DB, cfg.Carts, cfg.Calculator), authen)
	a.Handle(http.MethodPost, "/cart/items/{id}/decrease", cart.HandleDecreaseItem(cfg.Carts, cfg.Calculator), authen)
	a.Handle(http.MethodDelete, "/cart/items/{id}", cart.HandleDeleteItem(cfg.Carts, cfg.Calculator), authen)

	a.Handle(http.MethodPost, "/orders", order.HandleCheckout(cfg.Log, cfg.Carts, cfg.Submitter, cfg.Orders, cfg.Payments), authen)
	a.Handle(http.MethodGet, "/orders", order.HandleListMine(cfg.Orders), authen)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.Orders), authen)

	a.Handle(http.MethodPost, "/payments/paypal/{id}/capture", payment.HandlePaypalCapture(cfg.Payments, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/payments/stripe/webhook", payment.HandleStripeWebhook(cfg.Payments, cfg.StripeCfg))

	a.Handle(http.MethodPost, "/reservations", reservation.HandleCreate(cfg.DB, notifier, cfg.Mailer, cfg.Background), authen)
	a.Handle(http.MethodGet, "/reservations", reservation.HandleListMine(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/reservations/{id}", reservation.HandleCancel(cfg.DB), authen)

	a.Handle(http.MethodGet, "/comments", comment.HandleListRecent(cfg.DB))
	a.Handle(http.MethodPost, "/comments", comment.HandleCreate(cfg.DB, notifier), authen, commentLimit)
	a.Handle(http.MethodDelete, "/comments/{id}", comment.HandleDelete(cfg.DB), authen)

	a.Handle(http.MethodGet, "/admin/orders", order.HandleList(cfg.Orders), admin)
	a.Handle(http.MethodPut, "/admin/orders/{id}/status", order.HandleUpdateStatus(cfg.Orders), admin)
	a.Handle(http.MethodDelete, "/admin/orders/{id}", order.HandleDelete(cfg.Orders), admin)

	a.Handle(http.MethodGet, "/admin/payments", payment.HandleList(cfg.DB), admin)
	a.Handle(http.MethodPut, "/admin/payments/{id}/status", payment.HandleUpdateStatus(cfg.Payments), admin)
	a.Handle(http.MethodDelete, "/admin/payments/{id}", payment.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodGet, "/admin/reservations", reservation.HandleList(cfg.DB), admin)
	a.Handle(http.MethodPut, "/admin/reservations/{id}/status", reservation.HandleUpdateStatus(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/admin/reservations/{id}", reservation.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodGet, "/admin/events", notify.HandleStream(cfg.Hub), admin)
	a.Handle(http.MethodGet, "/admin/counts", notify.HandleCounts(cfg.Counter), admin)
	a.Handle(http.MethodPost, "/admin/counts/{table}/seen", notify.HandleSeen(cfg.Publisher), admin)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
