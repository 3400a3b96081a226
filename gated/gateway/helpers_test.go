//go:build unit

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/idempotency"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/LerianStudio/lib-gated/gated/reserve"
	"github.com/LerianStudio/lib-gated/gated/wrapper"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	treasury      gated.Identity = "treasury"
	treasuryFunds int64          = 1000
)

type testGateway struct {
	app     *fiber.App
	reg     *registry.Registry
	ledger  *ledger.Ledger
	source  *reserve.Memory
	adapter *wrapper.Adapter
	store   *idempotency.Memory
}

type gatewayConfig struct {
	noAdapter bool
	operator  bool
}

func newTestGateway(t *testing.T, cfg gatewayConfig, authorized ...gated.Identity) *testGateway {
	t.Helper()

	reg := registry.New()
	for _, id := range authorized {
		reg.Grant(context.Background(), id)
	}

	l, err := ledger.New(reg, ledger.WithDecimals(0))
	require.NoError(t, err)

	src := reserve.NewMemory(0)
	tg := &testGateway{reg: reg, ledger: l, source: src, store: idempotency.NewMemory()}

	opts := []Option{
		WithIdempotency(tg.store, 0),
		WithReserveOperations(cfg.operator),
		WithTreasury(treasury),
	}

	if !cfg.noAdapter {
		adapter, err := wrapper.New(l, src)
		require.NoError(t, err)

		tg.adapter = adapter
		opts = append(opts, WithAdapter(adapter))
	}

	if cfg.operator {
		tg.fund(t, treasury, treasuryFunds)
	}

	h, err := New(reg, l, opts...)
	require.NoError(t, err)

	tg.app = NewApp(AppConfig{}, h)

	return tg
}

func (tg *testGateway) fund(t *testing.T, id gated.Identity, amount int64) {
	t.Helper()

	require.NoError(t, tg.source.Credit(id, decimal.NewFromInt(amount)))
}

type response struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

func (tg *testGateway) do(t *testing.T, method, path string, payload any, headers ...string) response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := tg.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}

	return out
}

func (tg *testGateway) balance(id gated.Identity) string {
	return tg.ledger.BalanceOf(id).String()
}

func requireError(t *testing.T, r response, status int, code string) {
	t.Helper()

	require.Equal(t, status, r.status, "body: %s", r.raw)
	require.Equal(t, code, r.body["code"], "body: %s", r.raw)
}

func requireStatus(t *testing.T, r response, status int) {
	t.Helper()

	require.Equal(t, status, r.status, "body: %s", r.raw)
}
