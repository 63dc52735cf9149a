package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/foodie/api"
	"github.com/irsalhamdi/foodie/api/background"
	"github.com/irsalhamdi/foodie/config"
	"github.com/irsalhamdi/foodie/core/cart"
	"github.com/irsalhamdi/foodie/core/claims"
	"github.com/irsalhamdi/foodie/core/notify"
	"github.com/irsalhamdi/foodie/core/order"
	"github.com/irsalhamdi/foodie/core/payment"
	"github.com/irsalhamdi/foodie/core/user"
	"github.com/irsalhamdi/foodie/database"
	"github.com/irsalhamdi/foodie/rate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/plutov/paypal/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const surcharge = "2.50"

type TestEnv struct {
	*httptest.Server
	DB            *sqlx.DB
	Mail          *mailbox
	Paypal        *mockPaypal
	Stripe        *mockStripe
	WebhookSecret string
	AdminEmail    string
	AdminPass     string
	UserEmail     string
	UserPass      string
}

type mailbox struct {
	mu  sync.Mutex
	msg []string
}

func (m *mailbox) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msg = append(m.msg, to+"\n"+subject+"\n"+body)
	return nil
}

func (m *mailbox) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.msg...)
}

// NewTestEnv starts a Postgres container, an in-memory Redis, mocked payment
// providers and the API server. Tests are skipped when docker is unavailable.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}

	db := startPostgres(t, name)

	if err := database.Migrate(db, name); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	env := &TestEnv{
		DB:            db,
		Mail:          &mailbox{},
		Paypal:        &mockPaypal{},
		Stripe:        &mockStripe{},
		WebhookSecret: "whsec_test",
		AdminEmail:    "admin@foodie.test",
		AdminPass:     "admin-password",
		UserEmail:     "user@foodie.test",
		UserPass:      "user-password",
	}

	if err := env.addUser("Admin", env.AdminEmail, env.AdminPass, claims.RoleAdmin); err != nil {
		return nil, err
	}
	if err := env.addUser("User", env.UserEmail, env.UserPass, claims.RoleUser); err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	calc, err := cart.NewCalculator(surcharge)
	if err != nil {
		return nil, err
	}

	carts := cart.NewRegistry(cart.NewRedisPersister(rdb, time.Hour), log, time.Second, time.Second)
	t.Cleanup(func() { carts.Close(context.Background()) })

	hub := notify.NewHub()
	t.Cleanup(hub.Close)
	counter := notify.NewCounter()
	events, unsubscribe := hub.Subscribe()
	t.Cleanup(unsubscribe)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go counter.Run(ctx, events)

	notifier := notify.NewNotifier(hub, log)
	orders := order.NewStore(db, notifier)

	ppSrv := httptest.NewServer(env.Paypal.handle())
	t.Cleanup(ppSrv.Close)
	pp, err := paypal.NewClient("client", "secret", ppSrv.URL)
	if err != nil {
		return nil, err
	}
	paypalGw := payment.NewPaypal(pp, "USD")

	stSrv := httptest.NewServer(env.Stripe.handle())
	t.Cleanup(stSrv.Close)
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{URL: stripe.String(stSrv.URL)})
	strp := &stripecl.API{}
	strp.Init("sk_test_foodie", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	stripeCfg := config.Stripe{
		WebhookSecret: env.WebhookSecret,
		SuccessURL:    "http://localhost/success",
		CancelURL:     "http://localhost/cancel",
		Currency:      "usd",
	}

	payments := payment.NewService(db, notifier, 5*time.Second, map[order.Method]payment.Gateway{
		order.Card:   payment.NewStripe(strp, stripeCfg),
		order.Paypal: paypalGw,
		order.QR:     payment.NewQR("usd"),
	})

	bg := background.New(log)
	t.Cleanup(func() { bg.Shutdown(context.Background()) })

	mux := api.APIMux(api.APIConfig{
		Log:            log,
		DB:             db,
		Session:        scs.New(),
		Mailer:         env.Mail,
		Background:     bg,
		Carts:          carts,
		Calculator:     calc,
		Orders:         orders,
		Submitter:      order.NewSubmitter(orders, calc, 5*time.Second),
		Payments:       payments,
		Paypal:         paypalGw,
		StripeCfg:      stripeCfg,
		Hub:            hub,
		Counter:        counter,
		Publisher:      hub,
		Providers:      nil,
		LoginLimiter:   rate.NewLimiter(100, time.Minute, time.Millisecond),
		CommentLimiter: rate.NewLimiter(2, time.Minute, time.Hour),
	})

	env.Server = httptest.NewServer(mux)
	t.Cleanup(env.Server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	env.Server.Client().Jar = jar

	return env, nil
}

func startPostgres(t *testing.T, name string) *sqlx.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("starting postgres: %v", err)
	}
	t.Cleanup(func() { pool.Purge(res) })
	res.Expire(120)

	cfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       res.GetHostPort("5432/tcp"),
		Name:       name,
		DisableTLS: true,
	}

	var db *sqlx.DB
	pool.MaxWait = time.Minute
	err = pool.Retry(func() error {
		var err error
		if db, err = database.Open(cfg); err != nil {
			return err
		}
		return database.StatusCheck(context.Background(), db)
	})
	if err != nil {
		t.Fatalf("waiting for postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func (env *TestEnv) addUser(name, email, pass, role string) error {
	u, err := user.New(user.UserNew{
		Name:            name,
		Email:           email,
		Role:            role,
		Password:        pass,
		PasswordConfirm: pass,
	}, time.Now().UTC())
	if err != nil {
		return err
	}
	return user.Create(context.Background(), env.DB, u)
}

func Login(server *httptest.Server, email, pass string) error {
	status, err := call(server, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": pass}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("login of %s failed with status %d", email, status)
	}
	return nil
}

func Logout(server *httptest.Server) error {
	_, err := call(server, http.MethodPost, "/auth/logout", nil, nil)
	return err
}

// call sends in as JSON and decodes the response into out when both are set.
func call(server *httptest.Server, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, server.URL+path, body)
	if err != nil {
		return 0, err
	}

	w, err := server.Client().Do(r)
	if err != nil {
		return 0, err
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			return w.StatusCode, fmt.Errorf("decoding %s %s: %w", method, path, err)
		}
	}
	return w.StatusCode, nil
}

// expect is call for tests: any transport failure or unexpected status is
// fatal.
func (env *TestEnv) expect(t *testing.T, method, path string, in, out any, status int) {
	t.Helper()

	got, err := call(env.Server, method, path, in, out)
	if err != nil {
		t.Fatal(err)
	}
	if got != status {
		t.Fatalf("%s %s: expected status %d, got %d", method, path, status, got)
	}
}

// waitCounts polls the admin counters, which trail the requests that produce
// them by one hop through the hub.
func (env *TestEnv) waitCounts(t *testing.T, exp notify.Counts) {
	t.Helper()

	var got notify.Counts
	for deadline := time.Now().Add(2 * time.Second); time.Now().Before(deadline); time.Sleep(20 * time.Millisecond) {
		got = nil
		env.expect(t, http.MethodGet, "/admin/counts", nil, &got, http.StatusOK)
		if cmp.Equal(exp, got) {
			return
		}
	}
	t.Fatalf("counts mismatch (-want +got):\n%s", cmp.Diff(exp, got))
}
