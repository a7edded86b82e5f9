package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-reservation/internal/ledger"
	"github.com/iliyamo/flight-seat-reservation/internal/payment"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

const webhookSecret = "whsec_handler"

type stubOutcomes struct {
	mu         sync.Mutex
	confirmErr error
	declineErr error
	confirms   []service.ConfirmInput
	declines   []uint64
	// gate, when set, blocks ConfirmHold until closed
	gate chan struct{}
}

func (s *stubOutcomes) ConfirmHold(_ context.Context, in service.ConfirmInput) (service.ConfirmResult, error) {
	s.mu.Lock()
	s.confirms = append(s.confirms, in)
	gate, err := s.gate, s.confirmErr
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return service.ConfirmResult{BookingID: in.HoldID}, err
}

func (s *stubOutcomes) DeclineHold(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declines = append(s.declines, id)
	return s.declineErr
}

func (s *stubOutcomes) confirmCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.confirms)
}

func sign(payload string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func event(id, typ, metadata string) string {
	return `{"id":"` + id + `","object":"event","type":"` + typ +
		`","data":{"object":{"object":"payment_intent","metadata":` + metadata + `}}}`
}

type webhookFixture struct {
	e      *echo.Echo
	svc    *stubOutcomes
	ledger *ledger.Store
}

func newWebhookFixture(t *testing.T) webhookFixture {
	t.Helper()
	store, err := ledger.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := &stubOutcomes{}
	log, _ := test.NewNullLogger()
	h := NewWebhookHandler(payment.NewVerifier(webhookSecret), store, svc, log)
	e := echo.New()
	e.POST("/api/webhook", h.Handle)
	return webhookFixture{e: e, svc: svc, ledger: store}
}

func (f webhookFixture) post(body, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(body))
	if sig != "" {
		req.Header.Set(payment.SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookConfirmsOnce(t *testing.T) {
	f := newWebhookFixture(t)
	body := event("evt_1", payment.EventPaymentSucceeded,
		`{"booking_id":"42","passport":"X1","first_name":"Ada","last_name":"L","email":"a@b.c","phone":"1","clerkId":"user_1"}`)

	rec := f.post(body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	require.Len(t, f.svc.confirms, 1)
	in := f.svc.confirms[0]
	assert.Equal(t, uint64(42), in.HoldID)
	assert.Equal(t, "X1", in.Passport)
	assert.Equal(t, "user_1", in.ClerkID)

	rec = f.post(body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true,"duplicate":true}`, rec.Body.String())
	assert.Len(t, f.svc.confirms, 1)

	r, err := f.ledger.Get("evt_1")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", r.Outcome)
}

func TestWebhookConcurrentDuplicateDispatchesOnce(t *testing.T) {
	f := newWebhookFixture(t)
	f.svc.gate = make(chan struct{})
	body := event("evt_8", payment.EventPaymentSucceeded, `{"booking_id":"11","passport":"X1"}`)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- f.post(body, sign(body)) }()
	require.Eventually(t, func() bool { return f.svc.confirmCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	rec := f.post(body, sign(body))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"event is being processed"}`, rec.Body.String())

	close(f.svc.gate)
	select {
	case rec = <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first delivery did not finish")
	}
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, 1, f.svc.confirmCount())

	rec = f.post(body, sign(body))
	assert.JSONEq(t, `{"received":true,"duplicate":true}`, rec.Body.String())
	assert.Equal(t, 1, f.svc.confirmCount())
}

func TestWebhookDeclinesOnExpiry(t *testing.T) {
	f := newWebhookFixture(t)
	body := event("evt_2", payment.EventCheckoutExpired, `{"booking_id":"7"}`)
	rec := f.post(body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint64{7}, f.svc.declines)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	body := event("evt_3", payment.EventPaymentSucceeded, `{"booking_id":"42"}`)

	assert.Equal(t, http.StatusBadRequest, f.post(body, "").Code)
	assert.Equal(t, http.StatusBadRequest, f.post(body, "t=1,v1=deadbeef").Code)
	forged := event("evt_3", payment.EventPaymentSucceeded, `{"booking_id":"43"}`)
	assert.Equal(t, http.StatusBadRequest, f.post(forged, sign(body)).Code)
	assert.Empty(t, f.svc.confirms)

	seen, err := f.ledger.Seen("evt_3")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestWebhookMissingBookingID(t *testing.T) {
	f := newWebhookFixture(t)
	body := event("evt_4", payment.EventPaymentSucceeded, `{"passport":"X1"}`)
	assert.Equal(t, http.StatusBadRequest, f.post(body, sign(body)).Code)
	assert.Empty(t, f.svc.confirms)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	f := newWebhookFixture(t)
	body := event("evt_5", "charge.refunded", `{"booking_id":"1"}`)
	rec := f.post(body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true,"ignored":true}`, rec.Body.String())
	assert.Empty(t, f.svc.confirms)
	assert.Empty(t, f.svc.declines)
}

func TestWebhookPermanentFailureIsRecorded(t *testing.T) {
	f := newWebhookFixture(t)
	f.svc.confirmErr = service.ErrHoldNotFound
	body := event("evt_6", payment.EventPaymentSucceeded, `{"booking_id":"99","passport":"X1"}`)

	rec := f.post(body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true,"ignored":true}`, rec.Body.String())

	seen, _ := f.ledger.Seen("evt_6")
	assert.True(t, seen)
}

func TestWebhookInternalErrorIsRetried(t *testing.T) {
	f := newWebhookFixture(t)
	f.svc.confirmErr = errors.New("db down")
	body := event("evt_7", payment.EventPaymentSucceeded, `{"booking_id":"5","passport":"X1"}`)

	assert.Equal(t, http.StatusInternalServerError, f.post(body, sign(body)).Code)
	seen, _ := f.ledger.Seen("evt_7")
	assert.False(t, seen)

	f.svc.confirmErr = nil
	assert.Equal(t, http.StatusOK, f.post(body, sign(body)).Code)
	assert.Len(t, f.svc.confirms, 2)
}

func TestWebhookBodyLimit(t *testing.T) {
	f := newWebhookFixture(t)
	body := strings.Repeat("x", maxWebhookBody+1)
	assert.Equal(t, http.StatusRequestEntityTooLarge, f.post(body, sign(body)).Code)
}
