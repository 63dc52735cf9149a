package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
)

type Config struct {
	conf.Version
	Web    Web
	DB     DB
	Redis  Redis
	AMQP   AMQP
	Auth   Auth
	Oauth  Oauth
	Email  Email
	Stripe Stripe
	Paypal Paypal
	Cart   Cart
	Order  Order
	Rate   Rate
	Cors   Cors
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:foodie"`
	MaxIdleConns int    `conf:"default:0"`
	MaxOpenConns int    `conf:"default:0"`
	DisableTLS   bool   `conf:"default:true"`
}

type Redis struct {
	Address  string `conf:"default:localhost:6379"`
	Password string `conf:"mask"`
	DB       int    `conf:"default:0"`
}

// AMQP is optional. Events stay in process when URL is empty.
type AMQP struct {
	URL      string `conf:"mask"`
	Exchange string `conf:"default:foodie.events"`
}

type Auth struct {
	SessionLifetime time.Duration `conf:"default:24h"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Email struct {
	Address  string `conf:"default:foodie@example.com"`
	Password string `conf:"mask"`
	Host     string `conf:"default:localhost"`
	Port     int    `conf:"default:587"`
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:3000/success"`
	CancelURL     string `conf:"default:http://localhost:3000/cancel"`
	Currency      string `conf:"default:usd"`
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api-m.sandbox.paypal.com"`
	Currency string `conf:"default:USD"`
}

// Cart stores stay in memory while a shopper is active. TTL bounds how long
// an abandoned cart survives in Redis.
type Cart struct {
	Surcharge     string        `conf:"default:0"`
	SaveTimeout   time.Duration `conf:"default:3s"`
	StoreTimeout  time.Duration `conf:"default:5s"`
	TTL           time.Duration `conf:"default:168h"`
	IdleTimeout   time.Duration `conf:"default:30m"`
	SweepInterval time.Duration `conf:"default:1m"`
}

type Order struct {
	SubmitTimeout time.Duration `conf:"default:10s"`
}

type Rate struct {
	LoginEvery   time.Duration `conf:"default:2s"`
	LoginBurst   int           `conf:"default:5"`
	CommentEvery time.Duration `conf:"default:30s"`
	CommentBurst int           `conf:"default:3"`
	Expiry       time.Duration `conf:"default:10m"`
}

type Cors struct {
	Origin string
}
