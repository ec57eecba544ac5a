package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/glift-app/glift-billing/internal/models"
)

// request то, что тестовый сервер Stripe получил от клиента.
type request struct {
	method         string
	path           string
	form           url.Values
	idempotencyKey string
}

type fakeStripe struct {
	mu       sync.Mutex
	requests []request
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(body))
	for k, v := range r.URL.Query() {
		form[k] = v
	}
	f.mu.Lock()
	f.requests = append(f.requests, request{
		method:         r.Method,
		path:           r.URL.Path,
		form:           form,
		idempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	f.respond(w, r)
}

func (f *fakeStripe) last(t *testing.T) request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

type countingErrors struct {
	ops []string
}

func (c *countingErrors) ExternalError(op string) {
	c.ops = append(c.ops, op)
}

func newTestClient(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeStripe, *countingErrors) {
	t.Helper()
	fake := &fakeStripe{respond: respond}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	counter := &countingErrors{}
	c := NewClient("sk_test_123", "whsec_test", WithBackends(&stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	}), WithErrorCounter(counter))
	return c, fake, counter
}

func reply(status int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

const stripeError = `{"error":{"type":"api_error","message":"boom"}}`

func TestFindCustomerByEmail(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantID    string
		wantFound bool
		wantErr   bool
	}{
		{
			name:      "found",
			status:    http.StatusOK,
			body:      `{"object":"list","url":"/v1/customers","has_more":false,"data":[{"id":"cus_1","object":"customer","email":"a@b.c"}]}`,
			wantID:    "cus_1",
			wantFound: true,
		},
		{
			name:   "not found",
			status: http.StatusOK,
			body:   `{"object":"list","url":"/v1/customers","has_more":false,"data":[]}`,
		},
		{
			name:    "provider error",
			status:  http.StatusInternalServerError,
			body:    stripeError,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake, counter := newTestClient(t, reply(tt.status, tt.body))

			id, found, err := c.FindCustomerByEmail(context.Background(), "a@b.c")
			if tt.wantErr {
				require.ErrorIs(t, err, models.ErrExternalService)
				assert.Equal(t, []string{"paymentprovider.FindCustomerByEmail"}, counter.ops)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantFound, found)
			assert.Empty(t, counter.ops)

			req := fake.last(t)
			assert.Equal(t, http.MethodGet, req.method)
			assert.Equal(t, "/v1/customers", req.path)
			assert.Equal(t, "a@b.c", req.form.Get("email"))
			assert.Equal(t, "1", req.form.Get("limit"))
		})
	}
}

func TestCreateCustomer(t *testing.T) {
	c, fake, _ := newTestClient(t, reply(http.StatusOK, `{"id":"cus_new","object":"customer"}`))

	id, err := c.CreateCustomer(context.Background(), "a@b.c", "user-1", "glift-customer-key")
	require.NoError(t, err)
	assert.Equal(t, "cus_new", id)

	req := fake.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/v1/customers", req.path)
	assert.Equal(t, "a@b.c", req.form.Get("email"))
	assert.Equal(t, "user-1", req.form.Get("metadata[user_id]"))
	assert.Equal(t, "glift-customer-key", req.idempotencyKey)
}

func TestGetCustomerUserID(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantID    string
		wantFound bool
	}{
		{
			name:      "metadata present",
			body:      `{"id":"cus_1","object":"customer","metadata":{"user_id":"user-1"}}`,
			wantID:    "user-1",
			wantFound: true,
		},
		{
			name: "metadata missing",
			body: `{"id":"cus_1","object":"customer","metadata":{}}`,
		},
		{
			name: "deleted customer",
			body: `{"id":"cus_1","object":"customer","deleted":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake, _ := newTestClient(t, reply(http.StatusOK, tt.body))

			id, found, err := c.GetCustomerUserID(context.Background(), "cus_1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, "/v1/customers/cus_1", fake.last(t).path)
		})
	}
}

func TestListSubscriptions(t *testing.T) {
	c, fake, _ := newTestClient(t, reply(http.StatusOK, `{
		"object":"list","url":"/v1/subscriptions","has_more":false,
		"data":[
			{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active","cancel_at_period_end":true,
			 "items":{"object":"list","data":[
				{"id":"si_1","object":"subscription_item","price":{"id":"price_premium","object":"price"},"current_period_end":1790000000},
				{"id":"si_2","object":"subscription_item","price":{"id":"price_addon","object":"price"},"current_period_end":1790500000}
			 ]}},
			{"id":"sub_0","object":"subscription","customer":"cus_1","status":"canceled","trial_end":1780000000,
			 "items":{"object":"list","data":[]}}
		]}`))

	subs, err := c.ListSubscriptions(context.Background(), "cus_1")
	require.NoError(t, err)
	require.Len(t, subs, 2)

	periodEnd := time.Unix(1790500000, 0).UTC()
	assert.Equal(t, models.ExternalSubscription{
		ID:                "sub_1",
		CustomerID:        "cus_1",
		Status:            models.StatusActive,
		PriceID:           "price_premium",
		PeriodEnd:         &periodEnd,
		CancelAtPeriodEnd: true,
	}, withoutMetadata(subs[0]))

	trialEnd := time.Unix(1780000000, 0).UTC()
	assert.Equal(t, models.StatusCanceled, subs[1].Status)
	assert.Equal(t, &trialEnd, subs[1].TrialEnd)
	assert.Nil(t, subs[1].PeriodEnd)

	req := fake.last(t)
	assert.Equal(t, "/v1/subscriptions", req.path)
	assert.Equal(t, "cus_1", req.form.Get("customer"))
	assert.Equal(t, "all", req.form.Get("status"))
}

func withoutMetadata(s models.ExternalSubscription) models.ExternalSubscription {
	s.Metadata = nil
	return s
}

func TestCreateSubscription(t *testing.T) {
	tests := []struct {
		name          string
		trialDays     int64
		body          string
		wantTrial     string
		wantSetup     string
		wantPaymentCS string
	}{
		{
			name:      "trial returns setup intent secret",
			trialDays: 30,
			body: `{"id":"sub_1","object":"subscription","customer":"cus_1","status":"trialing",
				"pending_setup_intent":{"id":"seti_1","object":"setup_intent","client_secret":"seti_secret"}}`,
			wantTrial: "30",
			wantSetup: "seti_secret",
		},
		{
			name: "no trial returns invoice confirmation secret",
			body: `{"id":"sub_2","object":"subscription","customer":"cus_1","status":"incomplete",
				"latest_invoice":{"id":"in_1","object":"invoice","confirmation_secret":{"client_secret":"pi_secret","type":"payment_intent"}}}`,
			wantPaymentCS: "pi_secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake, _ := newTestClient(t, reply(http.StatusOK, tt.body))

			created, err := c.CreateSubscription(context.Background(), models.CreateSubscriptionParams{
				CustomerID:      "cus_1",
				PriceID:         "price_premium",
				TrialDays:       tt.trialDays,
				PaymentBehavior: "default_incomplete",
				UserID:          "user-1",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSetup, created.SetupIntentClientSecret)
			assert.Equal(t, tt.wantPaymentCS, created.PaymentIntentClientSecret)
			assert.Equal(t, "cus_1", created.Subscription.CustomerID)

			req := fake.last(t)
			assert.Equal(t, http.MethodPost, req.method)
			assert.Equal(t, "/v1/subscriptions", req.path)
			assert.Equal(t, "cus_1", req.form.Get("customer"))
			assert.Equal(t, "price_premium", req.form.Get("items[0][price]"))
			assert.Equal(t, "default_incomplete", req.form.Get("payment_behavior"))
			assert.Equal(t, "on_subscription", req.form.Get("payment_settings[save_default_payment_method]"))
			assert.Equal(t, "user-1", req.form.Get("metadata[user_id]"))
			assert.Equal(t, tt.wantTrial, req.form.Get("trial_period_days"))
			assert.ElementsMatch(t,
				[]string{"pending_setup_intent", "latest_invoice.confirmation_secret"},
				[]string{req.form.Get("expand[0]"), req.form.Get("expand[1]")})
		})
	}
}

func TestSetCancelAtPeriodEnd(t *testing.T) {
	c, fake, _ := newTestClient(t, reply(http.StatusOK,
		`{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active","cancel_at_period_end":true}`))

	sub, err := c.SetCancelAtPeriodEnd(context.Background(), "sub_1", true)
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)

	req := fake.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/v1/subscriptions/sub_1", req.path)
	assert.Equal(t, "true", req.form.Get("cancel_at_period_end"))
}

func TestProviderErrorsAreExternal(t *testing.T) {
	c, _, counter := newTestClient(t, reply(http.StatusBadRequest,
		`{"error":{"type":"invalid_request_error","message":"No such subscription"}}`))
	ctx := context.Background()

	_, err := c.SetCancelAtPeriodEnd(ctx, "sub_missing", false)
	require.ErrorIs(t, err, models.ErrExternalService)

	var stripeErr *stripe.Error
	require.True(t, errors.As(err, &stripeErr), fmt.Sprintf("unexpected error %T", err))
	assert.Equal(t, http.StatusBadRequest, stripeErr.HTTPStatusCode)

	_, err = c.CreateCustomer(ctx, "a@b.c", "user-1", "key")
	require.ErrorIs(t, err, models.ErrExternalService)

	assert.Equal(t, []string{
		"paymentprovider.SetCancelAtPeriodEnd",
		"paymentprovider.CreateCustomer",
	}, counter.ops)
}
