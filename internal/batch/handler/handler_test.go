package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pharmachain/internal/batch/handler/mocks"
	"pharmachain/internal/batch/models"
	"pharmachain/pkg/domain"
	dErrors "pharmachain/pkg/domain-errors"
	"pharmachain/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/batch-mocks.go -package=mocks Service

const (
	manufacturerHex = "0x1111111111111111111111111111111111111111"
	distributorHex  = "0x2222222222222222222222222222222222222222"
	validToken      = "manufacturer-token"
)

var manufacturer = domain.MustParseAddress(manufacturerHex)

type staticResolver map[string]domain.Address

func (s staticResolver) Resolve(token string) (domain.Address, error) {
	addr, ok := s[token]
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return addr, nil
}

type BatchHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *BatchHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestBatchHandlerSuite(t *testing.T) {
	suite.Run(t, new(BatchHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockService, chi.Router) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := New(mockService, staticResolver{validToken: manufacturer}, logger, nil, time.Second)
	r := chi.NewRouter()
	handler.Register(r)
	return handler, mockService, r
}

func event(t models.EventType, batchID string, seq int64) *models.BatchEvent {
	return &models.BatchEvent{ID: uuid.New(), Type: t, BatchID: batchID, Sequence: seq, Actor: manufacturer}
}

func authed(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	return testutil.WithBearer(testutil.NewJSONRequest(t, method, path, body), validToken)
}

func (s *BatchHandlerSuite) TestHandleRegister() {
	handler, mockService, _ := newTestHandler(s.T())
	body := models.RegisterBatchRequest{
		BatchID:         "B1",
		DrugName:        "Amoxicillin",
		Manufacturer:    "Acme",
		Origin:          "DE",
		ManufactureTime: 1_700_000_000,
		ExpiryTime:      1_800_000_000,
		CertificateHash: "QmCert",
	}
	mockService.EXPECT().Register(gomock.Any(), manufacturer, body.ToRegistration()).
		Return(event(models.EventBatchRegistered, "B1", 1), nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/batches", body)
	req = testutil.WithCaller(req, manufacturerHex)
	w := httptest.NewRecorder()
	handler.handleRegister(w, req)

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	resp := testutil.UnmarshalResponse[models.EventResponse](s.T(), w)
	assert.Equal(s.T(), models.EventBatchRegistered, resp.Event)
	assert.Equal(s.T(), "B1", resp.BatchID)
	assert.EqualValues(s.T(), 1, resp.Sequence)
}

func (s *BatchHandlerSuite) TestHandleRegisterDuplicate() {
	handler, mockService, _ := newTestHandler(s.T())
	mockService.EXPECT().Register(gomock.Any(), manufacturer, gomock.Any()).
		Return(nil, dErrors.NewFor(dErrors.CodeAlreadyExists, "B1", "batch already exists"))

	req := httptest.NewRequest(http.MethodPost, "/batches", strings.NewReader(`{"batch_id":"B1"}`))
	req = testutil.WithCaller(req, manufacturerHex)
	w := httptest.NewRecorder()
	handler.handleRegister(w, req)

	testutil.AssertError(s.T(), w, http.StatusConflict, "already_exists", "B1")
}

func (s *BatchHandlerSuite) TestHandleRegisterRejectsMalformedBody() {
	handler, _, _ := newTestHandler(s.T())

	for name, raw := range map[string]string{
		"not json":      `{batch_id`,
		"unknown field": `{"batch_id":"B1","owner":"x"}`,
	} {
		s.Run(name, func() {
			req := httptest.NewRequest(http.MethodPost, "/batches", strings.NewReader(raw))
			req = testutil.WithCaller(req, manufacturerHex)
			w := httptest.NewRecorder()
			handler.handleRegister(w, req)

			testutil.AssertError(s.T(), w, http.StatusBadRequest, "bad_request", "")
		})
	}
}

func (s *BatchHandlerSuite) TestMissingCallerIsInternal() {
	handler, _, _ := newTestHandler(s.T())
	req := httptest.NewRequest(http.MethodPost, "/batches/B1/expire", nil)
	w := httptest.NewRecorder()
	handler.handleAutoExpire(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
}

func (s *BatchHandlerSuite) TestMutationsRequireBearerToken() {
	_, _, router := newTestHandler(s.T())

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"unknown token", "Bearer forged"},
		{"wrong scheme", "Basic " + validToken},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := httptest.NewRequest(http.MethodPost, "/batches/B1/transfer",
				strings.NewReader(`{"new_holder":"`+distributorHex+`"}`))
			req.Header.Set("Content-Type", "application/json")
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
		})
	}
}

func (s *BatchHandlerSuite) TestTransferThroughRouter() {
	_, mockService, router := newTestHandler(s.T())
	mockService.EXPECT().Transfer(gomock.Any(), manufacturer, "B1", distributorHex).
		Return(event(models.EventBatchTransferred, "B1", 2), nil)

	req := authed(s.T(), http.MethodPost, "/batches/B1/transfer", models.TransferBatchRequest{NewHolder: distributorHex})
	w := testutil.DoRequest(router, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), models.EventBatchTransferred, testutil.UnmarshalResponse[models.EventResponse](s.T(), w).Event)
	assert.NotEmpty(s.T(), w.Header().Get("X-Request-ID"))
}

func (s *BatchHandlerSuite) TestTransferByNonHolderIsForbidden() {
	_, mockService, router := newTestHandler(s.T())
	mockService.EXPECT().Transfer(gomock.Any(), manufacturer, "B1", distributorHex).
		Return(nil, dErrors.NewFor(dErrors.CodeNotHolder, "B1", "caller is not the current holder"))

	req := authed(s.T(), http.MethodPost, "/batches/B1/transfer", models.TransferBatchRequest{NewHolder: distributorHex})
	w := testutil.DoRequest(router, req)

	testutil.AssertError(s.T(), w, http.StatusForbidden, "not_holder", "B1")
}

func (s *BatchHandlerSuite) TestEmptyCertificateHashIsBadRequest() {
	_, mockService, router := newTestHandler(s.T())
	mockService.EXPECT().UpdateCertificateHash(gomock.Any(), manufacturer, "B1", "").
		Return(nil, dErrors.NewFor(dErrors.CodeValidation, "B1", "certificate hash is required"))

	req := authed(s.T(), http.MethodPut, "/batches/B1/certificate", models.UpdateCertificateRequest{})
	w := testutil.DoRequest(router, req)

	testutil.AssertError(s.T(), w, http.StatusBadRequest, "validation_error", "B1")
}

func (s *BatchHandlerSuite) TestMutationsRejectNonJSONContentType() {
	_, _, router := newTestHandler(s.T())
	req := httptest.NewRequest(http.MethodPost, "/batches/B1/spoil", strings.NewReader("reason=heat"))
	req.Header.Set("Authorization", "Bearer "+validToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusUnsupportedMediaType, w.Code)
}

func (s *BatchHandlerSuite) TestSpoilExpireAndCertificateRoutes() {
	_, mockService, router := newTestHandler(s.T())
	gomock.InOrder(
		mockService.EXPECT().UpdateCertificateHash(gomock.Any(), manufacturer, "B1", "QmNew").
			Return(event(models.EventCertificateUpdated, "B1", 2), nil),
		mockService.EXPECT().MarkAsSpoiled(gomock.Any(), manufacturer, "B1", "temperature excursion").
			Return(event(models.EventBatchSpoiled, "B1", 3), nil),
		mockService.EXPECT().AutoExpire(gomock.Any(), manufacturer, "B2").
			Return(nil, dErrors.NewFor(dErrors.CodeNotYetExpired, "B2", "batch has not reached its expiry time")),
	)

	cases := []struct {
		method string
		path   string
		body   any
		status int
	}{
		{http.MethodPut, "/batches/B1/certificate", models.UpdateCertificateRequest{CertificateHash: "QmNew"}, http.StatusOK},
		{http.MethodPost, "/batches/B1/spoil", models.SpoilBatchRequest{Reason: "temperature excursion"}, http.StatusOK},
		{http.MethodPost, "/batches/B2/expire", nil, http.StatusConflict},
	}
	for _, tc := range cases {
		w := testutil.DoRequest(router, authed(s.T(), tc.method, tc.path, tc.body))
		assert.Equal(s.T(), tc.status, w.Code, "%s %s", tc.method, tc.path)
	}
}

func (s *BatchHandlerSuite) TestGetBatchDetails() {
	_, mockService, router := newTestHandler(s.T())
	rec := &models.BatchRecord{
		BatchID:         "B1",
		DrugName:        "Amoxicillin",
		ExpiryTime:      1_800_000_000,
		CurrentHolder:   domain.MustParseAddress("0xab5801a7d398351b8be11c439e05c5b3259aec9b"),
		CertificateHash: "QmCert",
		Version:         1,
	}
	mockService.EXPECT().GetBatchDetails(gomock.Any(), "B1").
		Return(&models.BatchDetails{Record: rec, DaysRemaining: 3}, nil)

	w := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/batches/B1", nil))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	resp := testutil.UnmarshalResponse[models.BatchDetailsResponse](s.T(), w)
	assert.Equal(s.T(), "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", resp.CurrentHolder)
	assert.Equal(s.T(), models.StatusActive, resp.Status)
	assert.EqualValues(s.T(), 3, resp.DaysRemaining)
}

func (s *BatchHandlerSuite) TestReadsAreUnauthenticated() {
	_, mockService, router := newTestHandler(s.T())
	mockService.EXPECT().CheckBatchValidity(gomock.Any(), "B1").Return(false, nil)
	mockService.EXPECT().BatchExists(gomock.Any(), "B9").Return(false, nil)

	w := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/batches/B1/validity", nil))
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.False(s.T(), testutil.UnmarshalResponse[models.ValidityResponse](s.T(), w).Valid)

	w = testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/batches/B9/exists", nil))
	assert.Equal(s.T(), http.StatusOK, w.Code)
	exists := testutil.UnmarshalResponse[models.ExistsResponse](s.T(), w)
	assert.Equal(s.T(), "B9", exists.BatchID)
	assert.False(s.T(), exists.Exists)
}

func (s *BatchHandlerSuite) TestUnknownBatchIsNotFound() {
	_, mockService, router := newTestHandler(s.T())
	mockService.EXPECT().CheckBatchValidity(gomock.Any(), "nope").
		Return(false, dErrors.NewFor(dErrors.CodeNotFound, "nope", "batch not found"))

	w := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/batches/nope/validity", nil))

	testutil.AssertError(s.T(), w, http.StatusNotFound, "not_found", "nope")
}

func (s *BatchHandlerSuite) TestInternalErrorsHideDetails() {
	_, mockService, router := newTestHandler(s.T())
	mockService.EXPECT().GetBatchDetails(gomock.Any(), "B1").
		Return(nil, dErrors.Wrap(errors.New("connection refused"), dErrors.CodeInternal, "failed to load batch"))

	w := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/batches/B1", nil))

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	assert.NotContains(s.T(), w.Body.String(), "connection refused")
}
