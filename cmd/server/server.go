package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/foodie/api"
	"github.com/irsalhamdi/foodie/api/background"
	"github.com/irsalhamdi/foodie/config"
	"github.com/irsalhamdi/foodie/core/auth"
	"github.com/irsalhamdi/foodie/core/cart"
	"github.com/irsalhamdi/foodie/core/notify"
	"github.com/irsalhamdi/foodie/core/order"
	"github.com/irsalhamdi/foodie/core/payment"
	"github.com/irsalhamdi/foodie/database"
	"github.com/irsalhamdi/foodie/email"
	"github.com/irsalhamdi/foodie/rate"
	"github.com/plutov/paypal/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "FOODIE"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	// Workers started below stop when ctx is cancelled during shutdown.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.DB.Name); err != nil {
		return fmt.Errorf("failed to migrate the database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	calc, err := cart.NewCalculator(cfg.Cart.Surcharge)
	if err != nil {
		return fmt.Errorf("invalid cart surcharge %q: %w", cfg.Cart.Surcharge, err)
	}

	carts := cart.NewRegistry(
		cart.NewRedisPersister(rdb, cfg.Cart.TTL),
		logger,
		cfg.Cart.StoreTimeout,
		cfg.Cart.SaveTimeout,
	)
	go carts.Run(ctx, cfg.Cart.SweepInterval, cfg.Cart.IdleTimeout)

	hub := notify.NewHub()
	defer hub.Close()

	counter := notify.NewCounter()
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	go counter.Run(ctx, events)

	var pub notify.Publisher = hub
	if cfg.AMQP.URL != "" {
		broker, err := notify.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to the event broker: %w", err)
		}
		defer broker.Close()

		go func() {
			if err := broker.Consume(ctx, hub); err != nil {
				logger.WithField("message", err).Error("event consumer stopped")
			}
		}()
		pub = broker
	}
	notifier := notify.NewNotifier(pub, logger)

	orders := order.NewStore(db, notifier)
	submitter := order.NewSubmitter(orders, calc, cfg.Order.SubmitTimeout)

	pp, err := paypal.NewClient(
		cfg.Paypal.ClientID,
		cfg.Paypal.Secret,
		cfg.Paypal.URL,
	)
	if err != nil {
		return fmt.Errorf("failed to build the paypal client: %w", err)
	}
	paypalGw := payment.NewPaypal(pp, cfg.Paypal.Currency)

	strp := &stripecl.API{}
	strp.Init(cfg.Stripe.APISecret, nil)

	gateways := map[order.Method]payment.Gateway{
		order.QR: payment.NewQR(cfg.Stripe.Currency),
	}
	if cfg.Stripe.APISecret != "" {
		gateways[order.Card] = payment.NewStripe(strp, cfg.Stripe)
	}
	if cfg.Paypal.ClientID != "" {
		if _, err = pp.GetAccessToken(ctx); err != nil {
			return fmt.Errorf("failed to get the first paypal access token: %w", err)
		}
		gateways[order.Paypal] = paypalGw
	}
	payments := payment.NewService(db, notifier, cfg.Order.SubmitTimeout, gateways)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Auth.SessionLifetime

	mail := email.New(cfg.Email.Address, cfg.Email.Password, cfg.Email.Host, cfg.Email.Port)

	bg := background.New(logger)

	dctx, cancel := context.WithTimeout(ctx, cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(dctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	loginLimiter := rate.NewLimiter(cfg.Rate.LoginBurst, cfg.Rate.Expiry, cfg.Rate.LoginEvery)
	commentLimiter := rate.NewLimiter(cfg.Rate.CommentBurst, cfg.Rate.Expiry, cfg.Rate.CommentEvery)
	go loginLimiter.Run(ctx, time.Minute)
	go commentLimiter.Run(ctx, time.Minute)

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		Mailer:           mail,
		Background:       bg,
		Carts:            carts,
		Calculator:       calc,
		Orders:           orders,
		Submitter:        submitter,
		Payments:         payments,
		Paypal:           paypalGw,
		StripeCfg:        cfg.Stripe,
		Hub:              hub,
		Counter:          counter,
		Publisher:        pub,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
		LoginLimiter:     loginLimiter,
		CommentLimiter:   commentLimiter,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Event streams never end on their own.
		hub.Close()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := carts.Close(ctx); err != nil {
			logger.WithField("message", err).Error("could not flush every cart")
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}
