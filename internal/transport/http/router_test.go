package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	periodmodels "parrainage/internal/period/models"
	"parrainage/internal/platform/metrics"
	rollmodels "parrainage/internal/rollimport/models"
	importservice "parrainage/internal/rollimport/service"
	sponsorshipmodels "parrainage/internal/sponsorship/models"
	statsmodels "parrainage/internal/statistics/models"
	"parrainage/internal/transport/http/mocks"
	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/platform/middleware/caller"
)

//go:generate mockgen -source=handlers_periods.go -destination=mocks/periods-mocks.go -package=mocks PeriodService
//go:generate mockgen -source=handlers_sponsorships.go -destination=mocks/sponsorships-mocks.go -package=mocks SponsorshipService
//go:generate mockgen -source=handlers_imports.go -destination=mocks/imports-mocks.go -package=mocks ImportService
//go:generate mockgen -source=handlers_statistics.go -destination=mocks/statistics-mocks.go -package=mocks StatisticsService

type RouterSuite struct {
	suite.Suite
	periods      *mocks.MockPeriodService
	sponsorships *mocks.MockSponsorshipService
	imports      *mocks.MockImportService
	stats        *mocks.MockStatisticsService
	pingErr      error
	router       chi.Router
	callerID     uuid.UUID
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.periods = mocks.NewMockPeriodService(ctrl)
	s.sponsorships = mocks.NewMockSponsorshipService(ctrl)
	s.imports = mocks.NewMockImportService(ctrl)
	s.stats = mocks.NewMockStatisticsService(ctrl)
	s.pingErr = nil
	s.callerID = uuid.New()

	reg := prometheus.NewRegistry()
	h := New(Services{
		Periods:      s.periods,
		Sponsorships: s.sponsorships,
		Imports:      s.imports,
		Statistics:   s.stats,
	},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.New(reg), reg),
		WithMaxUploadBytes(256),
		WithReadinessChecks(ReadinessCheck{Name: "postgres", Ping: func(context.Context) error { return s.pingErr }}),
	)
	s.router = h.Router()
}

func (s *RouterSuite) do(method, path string, role id.Role, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if role != "" {
		req.Header.Set(caller.HeaderCallerID, s.callerID.String())
		req.Header.Set(caller.HeaderCallerRole, string(role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) jsonBody(v any) io.Reader {
	b, err := json.Marshal(v)
	s.Require().NoError(err)
	return bytes.NewReader(b)
}

func (s *RouterSuite) errorCode(w *httptest.ResponseRecorder) string {
	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body["error"]
}

func (s *RouterSuite) TestCallerHeadersRequired() {
	w := s.do(http.MethodGet, "/statistics/global", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("unauthorized", s.errorCode(w))
}

func (s *RouterSuite) TestAdminRoutesRejectVoters() {
	w := s.do(http.MethodPost, "/periods/"+uuid.NewString()+"/open", id.RoleVoter, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/imports", id.RoleCandidate, strings.NewReader("x"))
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RouterSuite) TestCreatePeriod() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)
	periodID := id.PeriodID(uuid.New())
	s.periods.EXPECT().CreatePeriod(gomock.Any(), start, end).
		Return(&periodmodels.Period{ID: periodID, Start: start, End: end, State: periodmodels.StateClosed}, nil)

	w := s.do(http.MethodPost, "/periods", id.RoleAdmin, s.jsonBody(map[string]any{"start": start, "end": end}))

	s.Equal(http.StatusCreated, w.Code, w.Body.String())
	var got periodmodels.Period
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	s.Equal(periodID, got.ID)
	s.Equal(periodmodels.StateClosed, got.State)
}

func (s *RouterSuite) TestCreatePeriodRejectsBadBodies() {
	w := s.do(http.MethodPost, "/periods", id.RoleAdmin, strings.NewReader(`{"start":`))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/periods", id.RoleAdmin, strings.NewReader(`{"start":"2026-01-01T00:00:00Z","extra":1}`))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/periods", id.RoleAdmin, strings.NewReader(`{"start":"2026-01-01T00:00:00Z"}`))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestPeriodTransitionsMapErrors() {
	periodID := id.PeriodID(uuid.New())
	path := "/periods/" + periodID.String()

	s.periods.EXPECT().OpenPeriod(gomock.Any(), periodID).
		Return(nil, dErrors.New(dErrors.CodeConflict, "another period is open"))
	w := s.do(http.MethodPost, path+"/open", id.RoleAdmin, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("conflict", s.errorCode(w))

	s.periods.EXPECT().OpenPeriod(gomock.Any(), periodID).
		Return(nil, dErrors.New(dErrors.CodeExpired, "period ended"))
	w = s.do(http.MethodPost, path+"/open", id.RoleAdmin, nil)
	s.Equal(http.StatusGone, w.Code)

	s.periods.EXPECT().ClosePeriod(gomock.Any(), periodID).
		Return(&periodmodels.Period{ID: periodID, State: periodmodels.StateClosed}, nil)
	w = s.do(http.MethodPost, path+"/close", id.RoleAdmin, nil)
	s.Equal(http.StatusOK, w.Code)

	s.periods.EXPECT().TerminatePeriod(gomock.Any(), periodID).
		Return(nil, dErrors.New(dErrors.CodeInvalidState, "period is TERMINATED"))
	w = s.do(http.MethodPost, path+"/terminate", id.RoleAdmin, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("invalid_state", s.errorCode(w))
}

func (s *RouterSuite) TestInvalidPeriodIDIsBadRequest() {
	w := s.do(http.MethodGet, "/periods/not-a-uuid/window", id.RoleVoter, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestWindowAndCurrent() {
	periodID := id.PeriodID(uuid.New())
	s.periods.EXPECT().IsWindowOpen(gomock.Any(), periodID).Return(true, nil)
	w := s.do(http.MethodGet, "/periods/"+periodID.String()+"/window", id.RoleVoter, nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"period_id":"`+periodID.String()+`","open":true}`, w.Body.String())

	s.periods.EXPECT().CurrentPeriod(gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNoActivePeriod, "no open period"))
	w = s.do(http.MethodGet, "/periods/current", id.RoleVoter, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("no_active_period", s.errorCode(w))
}

func (s *RouterSuite) TestCreateSponsorshipUsesCallerAsVoter() {
	candidateID := id.CandidateID(uuid.New())
	receipt := &sponsorshipmodels.Receipt{
		SponsorshipID:    id.SponsorshipID(uuid.New()),
		VerificationCode: "AB12CD",
		PeriodID:         id.PeriodID(uuid.New()),
	}
	s.sponsorships.EXPECT().CreateSponsorship(gomock.Any(), id.VoterID(s.callerID), candidateID).Return(receipt, nil)

	w := s.do(http.MethodPost, "/sponsorships", id.RoleVoter, s.jsonBody(map[string]string{"candidate_id": candidateID.String()}))

	s.Equal(http.StatusCreated, w.Code, w.Body.String())
	var got sponsorshipmodels.Receipt
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	s.Equal(*receipt, got)
}

func (s *RouterSuite) TestCreateSponsorshipErrors() {
	candidateID := id.CandidateID(uuid.New())
	body := func() io.Reader { return s.jsonBody(map[string]string{"candidate_id": candidateID.String()}) }

	s.sponsorships.EXPECT().CreateSponsorship(gomock.Any(), gomock.Any(), candidateID).
		Return(nil, dErrors.New(dErrors.CodeAlreadySponsored, "voter already sponsored a candidate in this period"))
	w := s.do(http.MethodPost, "/sponsorships", id.RoleVoter, body())
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("already_sponsored", s.errorCode(w))

	s.sponsorships.EXPECT().CreateSponsorship(gomock.Any(), gomock.Any(), candidateID).
		Return(nil, errors.New("pq: connection refused"))
	w = s.do(http.MethodPost, "/sponsorships", id.RoleVoter, body())
	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "connection refused")

	w = s.do(http.MethodPost, "/sponsorships", id.RoleVoter, s.jsonBody(map[string]string{"candidate_id": "nope"}))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/sponsorships", id.RoleAdmin, body())
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RouterSuite) TestWithdraw() {
	periodID := id.PeriodID(uuid.New())
	s.sponsorships.EXPECT().WithdrawSponsorship(gomock.Any(), id.VoterID(s.callerID), periodID).Return(nil)
	w := s.do(http.MethodDelete, "/periods/"+periodID.String()+"/sponsorships/mine", id.RoleVoter, nil)
	s.Equal(http.StatusNoContent, w.Code)

	s.sponsorships.EXPECT().WithdrawSponsorship(gomock.Any(), gomock.Any(), periodID).
		Return(dErrors.New(dErrors.CodePeriodClosed, "sponsorship window is closed"))
	w = s.do(http.MethodDelete, "/periods/"+periodID.String()+"/sponsorships/mine", id.RoleVoter, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("period_closed", s.errorCode(w))
}

func (s *RouterSuite) TestEligibility() {
	voterID := id.VoterID(uuid.New())
	s.sponsorships.EXPECT().CheckEligibility(gomock.Any(), "SN12345678", "1234567890123").
		Return(&sponsorshipmodels.Eligibility{Eligible: true, VoterID: voterID, LastName: "NDOYE", Region: "DAKAR"}, nil)
	w := s.do(http.MethodGet, "/eligibility?card_number=SN12345678&national_id=1234567890123", id.RoleCandidate, nil)
	s.Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("no-store", w.Header().Get("Cache-Control"))
	var got sponsorshipmodels.Eligibility
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	s.True(got.Eligible)
	s.Equal(voterID, got.VoterID)

	s.sponsorships.EXPECT().CheckEligibility(gomock.Any(), "SN00000000", "0000000000000").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "voter not found on the roll"))
	w = s.do(http.MethodGet, "/eligibility?card_number=SN00000000&national_id=0000000000000", id.RoleVoter, nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("not_found", s.errorCode(w))

	w = s.do(http.MethodGet, "/eligibility?card_number=SN12345678&national_id=1234567890123", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterSuite) TestVerifyAndValidate() {
	view := &sponsorshipmodels.SponsorshipView{VerificationCode: "ZX9Y8W", Status: sponsorshipmodels.StatusPending}
	s.sponsorships.EXPECT().VerifySponsorship(gomock.Any(), "ZX9Y8W").Return(view, nil)
	w := s.do(http.MethodGet, "/sponsorships/ZX9Y8W", id.RoleCandidate, nil)
	s.Equal(http.StatusOK, w.Code)

	s.sponsorships.EXPECT().VerifySponsorship(gomock.Any(), "UNKNWN").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "sponsorship not found"))
	w = s.do(http.MethodGet, "/sponsorships/UNKNWN", id.RoleVoter, nil)
	s.Equal(http.StatusNotFound, w.Code)

	validated := *view
	validated.Status = sponsorshipmodels.StatusValidated
	s.sponsorships.EXPECT().ValidateSponsorship(gomock.Any(), "ZX9Y8W").Return(&validated, nil)
	w = s.do(http.MethodPost, "/sponsorships/ZX9Y8W/validate", id.RoleAdmin, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"VALIDATED"`)
}

func (s *RouterSuite) TestStageImport() {
	raw := "national_id,card_number,last_name,first_name,region,polling_station\n"
	batchID := id.BatchID(uuid.New())
	s.imports.EXPECT().StageImportBatch(gomock.Any(), importservice.StageCommand{
		Raw:        []byte(raw),
		Checksum:   "abc",
		Encoding:   "ISO-8859-1",
		UploadedBy: s.callerID.String(),
	}).Return(&rollmodels.StageResult{BatchID: batchID, State: rollmodels.BatchStaged}, nil)

	w := s.do(http.MethodPost, "/imports", id.RoleAdmin, strings.NewReader(raw),
		HeaderChecksum, "abc", HeaderEncoding, "ISO-8859-1")

	s.Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal(batchID.String(), w.Header().Get(HeaderBatchID))
}

func (s *RouterSuite) TestStageImportRowErrors() {
	batchID := id.BatchID(uuid.New())
	s.imports.EXPECT().StageImportBatch(gomock.Any(), gomock.Any()).Return(&rollmodels.StageResult{
		BatchID: batchID,
		State:   rollmodels.BatchRejected,
		Errors:  []rollmodels.RowError{{Row: 1, Field: "national_id", Message: "must be 13 digits"}},
	}, nil)

	w := s.do(http.MethodPost, "/imports", id.RoleAdmin, strings.NewReader("x"))

	s.Equal(http.StatusUnprocessableEntity, w.Code)
	var got rollmodels.StageResult
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	s.Len(got.Errors, 1)
}

func (s *RouterSuite) TestStageImportGateFailure() {
	batchID := id.BatchID(uuid.New())
	s.imports.EXPECT().StageImportBatch(gomock.Any(), gomock.Any()).Return(
		&rollmodels.StageResult{BatchID: batchID, State: rollmodels.BatchRejected},
		dErrors.New(dErrors.CodeChecksumMismatch, "checksum does not match upload"),
	)

	w := s.do(http.MethodPost, "/imports", id.RoleAdmin, strings.NewReader("x"))

	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("checksum_mismatch", s.errorCode(w))
	s.Equal(batchID.String(), w.Header().Get(HeaderBatchID))
}

func (s *RouterSuite) TestStageImportLimits() {
	w := s.do(http.MethodPost, "/imports", id.RoleAdmin, strings.NewReader(strings.Repeat("a", 300)))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "exceeds 256 bytes")

	w = s.do(http.MethodPost, "/imports", id.RoleAdmin, strings.NewReader(""))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestPromoteRejectGet() {
	batchID := id.BatchID(uuid.New())
	path := "/imports/" + batchID.String()

	s.imports.EXPECT().PromoteImportBatch(gomock.Any(), batchID).
		Return(nil, dErrors.New(dErrors.CodeImportInProgress, "another import is in progress"))
	w := s.do(http.MethodPost, path+"/promote", id.RoleAdmin, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("import_in_progress", s.errorCode(w))

	s.imports.EXPECT().RejectImportBatch(gomock.Any(), batchID).
		Return(&rollmodels.Batch{ID: batchID, State: rollmodels.BatchRejected}, nil)
	w = s.do(http.MethodPost, path+"/reject", id.RoleAdmin, nil)
	s.Equal(http.StatusOK, w.Code)

	s.imports.EXPECT().GetBatch(gomock.Any(), batchID).
		Return(&rollmodels.Batch{ID: batchID, State: rollmodels.BatchPromoted}, nil)
	w = s.do(http.MethodGet, path, id.RoleAdmin, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"state":"PROMOTED"`)
}

func (s *RouterSuite) TestListAttempts() {
	s.imports.EXPECT().ListAttempts(gomock.Any(), s.callerID.String()).Return(nil, nil)
	w := s.do(http.MethodGet, "/imports/attempts", id.RoleAdmin, nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"attempts":[]}`, w.Body.String())

	s.imports.EXPECT().ListAttempts(gomock.Any(), "operator-7").Return([]*rollmodels.ImportAttempt{{Outcome: rollmodels.AttemptError}}, nil)
	w = s.do(http.MethodGet, "/imports/attempts?uploaded_by=operator-7", id.RoleAdmin, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"outcome":"ERROR"`)
}

func (s *RouterSuite) TestStatistics() {
	s.stats.EXPECT().GetStatistics(gomock.Any(), "region:Saint Louis").
		Return(&statsmodels.StatisticsView{Scope: "region:Saint Louis"}, nil)
	w := s.do(http.MethodGet, "/statistics/region:Saint%20Louis", id.RoleCandidate, nil)
	s.Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("no-store", w.Header().Get("Cache-Control"))

	s.stats.EXPECT().GetStatistics(gomock.Any(), "global").
		Return(nil, dErrors.New(dErrors.CodeCacheUnavailable, "statistics are being computed"))
	w = s.do(http.MethodGet, "/statistics/global", id.RoleVoter, nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)

	s.stats.EXPECT().GetStatistics(gomock.Any(), "planet:mars").
		Return(nil, dErrors.New(dErrors.CodeValidation, "unknown statistics scope"))
	w = s.do(http.MethodGet, "/statistics/planet:mars", id.RoleVoter, nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *RouterSuite) TestOpsEndpoints() {
	w := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/readyz", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok","checks":{"postgres":"ok"}}`, w.Body.String())

	s.pingErr = errors.New("connection refused")
	w = s.do(http.MethodGet, "/readyz", "", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "parrainage_http_requests_total")
}
