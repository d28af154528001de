package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"golang.org/x/text/encoding/charmap"

	"parrainage/internal/ledger/store"
	importmetrics "parrainage/internal/rollimport/metrics"
	"parrainage/internal/rollimport/models"
	"parrainage/internal/rollimport/parser"
	"parrainage/internal/rollimport/service"
	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/requestcontext"
)

const header = "national_id,card_number,last_name,first_name,region,polling_station\n"

type ImportServiceSuite struct {
	suite.Suite
	ledger  *store.Memory
	metrics *importmetrics.Metrics
	svc     *service.Service
	now     time.Time
	ctx     context.Context
}

func TestImportServiceSuite(t *testing.T) {
	suite.Run(t, new(ImportServiceSuite))
}

func (s *ImportServiceSuite) SetupTest() {
	s.ledger = store.NewMemory()
	s.metrics = importmetrics.New(prometheus.NewRegistry())
	runner := store.Bind(s.ledger, func(l store.Ledger) service.Store { return l })
	s.svc = service.New(runner, service.WithMetrics(s.metrics))
	s.now = time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func upload(body string) service.StageCommand {
	raw := []byte(body)
	return service.StageCommand{
		Raw:        raw,
		Checksum:   parser.Checksum(raw),
		Encoding:   "UTF-8",
		UploadedBy: "clerk-1",
	}
}

func rolls(rows ...string) string {
	return header + strings.Join(rows, "\n") + "\n"
}

func (s *ImportServiceSuite) stage(body string) *models.StageResult {
	res, err := s.svc.StageImportBatch(s.ctx, upload(body))
	s.Require().NoError(err)
	return res
}

func (s *ImportServiceSuite) countStaged(batchID id.BatchID) int {
	var n int
	s.Require().NoError(s.ledger.RunInTx(s.ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		n, err = l.CountStaged(ctx, batchID)
		return err
	}))
	return n
}

func (s *ImportServiceSuite) TestStage() {
	s.Run("clean upload is staged", func() {
		res := s.stage(rolls(
			"1234567890123,AB00000001,DIOP,Awa,Dakar,PS-01",
			"1234567890124,AB00000002,FALL,Moussa,Thies,PS-02",
		))
		s.Equal(models.BatchStaged, res.State)
		s.Equal(2, res.RowCount)
		s.Empty(res.Errors)
		s.InDelta(2, testutil.ToFloat64(s.metrics.RowsStaged), 0)
	})

	s.Run("checksum mismatch rejects the batch", func() {
		cmd := upload(rolls("1234567890125,AB00000003,NDIAYE,Fatou,Dakar,PS-01"))
		cmd.Checksum = strings.Repeat("0", 64)
		res, err := s.svc.StageImportBatch(s.ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeChecksumMismatch))
		s.Require().NotNil(res)
		s.Equal(models.BatchRejected, res.State)

		b, err := s.svc.GetBatch(s.ctx, res.BatchID)
		s.Require().NoError(err)
		s.Equal(models.BatchRejected, b.State)
		s.Zero(s.countStaged(res.BatchID))
	})

	s.Run("unknown encoding rejects the batch", func() {
		cmd := upload(rolls("1234567890125,AB00000003,NDIAYE,Fatou,Dakar,PS-01"))
		cmd.Encoding = "EBCDIC"
		res, err := s.svc.StageImportBatch(s.ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeEncoding))
		s.Require().NotNil(res)
		s.Equal(models.BatchRejected, res.State)
	})

	s.Run("invalid utf-8 rejects the batch", func() {
		cmd := upload(rolls("1234567890125,AB00000003,NDIAYE,Fatou,K\xe9dougou,PS-01"))
		res, err := s.svc.StageImportBatch(s.ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeEncoding))
		s.Require().NotNil(res)
		s.Equal(models.BatchRejected, res.State)
	})

	s.Run("latin-1 upload is decoded", func() {
		text := rolls("1234567890126,AB00000004,SENE,Aissatou,Thiès,PS-01")
		raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
		s.Require().NoError(err)
		res, err := s.svc.StageImportBatch(s.ctx, service.StageCommand{
			Raw:        raw,
			Checksum:   parser.Checksum(raw),
			Encoding:   "latin1",
			UploadedBy: "clerk-1",
		})
		s.Require().NoError(err)
		s.Equal(models.BatchStaged, res.State)
	})

	s.Run("row errors reject the batch without an error", func() {
		res := s.stage(rolls(
			"1234567890127,AB00000005,BA,Ibrahima,Dakar,PS-01",
			"bad,AB00000006,KANE,Ousmane,Dakar,PS-01",
		))
		s.Equal(models.BatchRejected, res.State)
		s.Require().NotEmpty(res.Errors)
		s.Equal(2, res.Errors[0].Row)
		s.Zero(s.countStaged(res.BatchID))
	})

	s.Run("one bad row among a thousand stages nothing", func() {
		lines := make([]string, 0, 1000)
		for i := 1; i <= 1000; i++ {
			last := "NDOYE"
			if i == 500 {
				last = "ND0YE"
			}
			lines = append(lines, fmt.Sprintf("%013d,CD%08d,%s,Astou,Dakar,PS-%03d", 2000000000000+int64(i), i, last, i%40))
		}
		res := s.stage(rolls(lines...))
		s.Equal(models.BatchRejected, res.State)
		s.Require().Len(res.Errors, 1)
		s.Equal(500, res.Errors[0].Row)
		s.Equal(parser.ColumnLastName, res.Errors[0].Field)
		s.Zero(res.RowCount)
		s.Zero(s.countStaged(res.BatchID))
	})

	s.Run("uploader is required", func() {
		cmd := upload(rolls("1234567890128,AB00000007,SY,Mariama,Dakar,PS-01"))
		cmd.UploadedBy = " "
		res, err := s.svc.StageImportBatch(s.ctx, cmd)
		s.Nil(res)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ImportServiceSuite) TestStageReportsLiveVotersAlongsideFormatErrors() {
	first := s.stage(rolls("1234567890190,AB00000090,WADE,Coumba,Ziguinchor,PS-08"))
	_, err := s.svc.PromoteImportBatch(s.ctx, first.BatchID)
	s.Require().NoError(err)

	res := s.stage(rolls(
		"1234567890190,AB00000090,WADE,Coumba,Ziguinchor,PS-08",
		"bad,AB00000091,TOURE,Modou,Ziguinchor,PS-08",
	))
	s.Equal(models.BatchRejected, res.State)
	s.Require().Len(res.Errors, 3)
	s.Equal(models.RowError{Row: 1, Field: parser.ColumnNationalID, Value: "1234567890190", Message: "voter already on the roll"}, res.Errors[0])
	s.Equal(models.RowError{Row: 1, Field: parser.ColumnCardNumber, Value: "AB00000090", Message: "voter already on the roll"}, res.Errors[1])
	s.Equal(2, res.Errors[2].Row)
	s.Equal(parser.ColumnNationalID, res.Errors[2].Field)
	s.Zero(s.countStaged(res.BatchID))
}

func (s *ImportServiceSuite) TestPromoteRejectsAbandonedUploads() {
	abandoned := models.NewBatch(id.BatchID(uuid.New()), "abc", models.EncodingUTF8, "clerk-2", s.now.Add(-2*time.Hour))
	s.Require().NoError(s.ledger.RunInTx(s.ctx, func(ctx context.Context, l store.Ledger) error {
		return l.CreateBatch(ctx, abandoned)
	}))
	res := s.stage(rolls("1234567890195,AB00000095,SARR,Ndeye,Fatick,PS-09"))

	b, err := s.svc.PromoteImportBatch(s.ctx, res.BatchID)
	s.Require().NoError(err)
	s.Equal(models.BatchPromoted, b.State)

	stale, err := s.svc.GetBatch(s.ctx, abandoned.ID)
	s.Require().NoError(err)
	s.Equal(models.BatchRejected, stale.State)
}

func (s *ImportServiceSuite) TestPromote() {
	s.Run("staged voters go live", func() {
		res := s.stage(rolls("1234567890123,AB00000001,DIOP,Awa,Dakar,PS-01"))
		b, err := s.svc.PromoteImportBatch(s.ctx, res.BatchID)
		s.Require().NoError(err)
		s.Equal(models.BatchPromoted, b.State)

		var live []*models.Voter
		s.Require().NoError(s.ledger.RunInTx(s.ctx, func(ctx context.Context, l store.Ledger) error {
			live, err = l.FindLiveVoters(ctx, []string{"1234567890123"}, nil)
			return err
		}))
		s.Len(live, 1)
	})

	s.Run("promoted batch cannot be promoted again", func() {
		res := s.stage(rolls("1234567890124,AB00000002,FALL,Moussa,Thies,PS-02"))
		_, err := s.svc.PromoteImportBatch(s.ctx, res.BatchID)
		s.Require().NoError(err)
		_, err = s.svc.PromoteImportBatch(s.ctx, res.BatchID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("re-uploading live voters is rejected at staging", func() {
		res := s.stage(rolls("1234567890123,AB00000009,DIOP,Awa,Dakar,PS-01"))
		s.Equal(models.BatchRejected, res.State)
		s.Require().Len(res.Errors, 1)
		s.Equal(parser.ColumnNationalID, res.Errors[0].Field)
	})

	s.Run("two staged batches with the same voter conflict on the second promotion", func() {
		first := s.stage(rolls("1234567890130,AB00000030,GUEYE,Khady,Dakar,PS-03"))
		second := s.stage(rolls("1234567890130,AB00000030,GUEYE,Khady,Dakar,PS-03"))
		_, err := s.svc.PromoteImportBatch(s.ctx, first.BatchID)
		s.Require().NoError(err)
		_, err = s.svc.PromoteImportBatch(s.ctx, second.BatchID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		b, err := s.svc.GetBatch(s.ctx, second.BatchID)
		s.Require().NoError(err)
		s.Equal(models.BatchStaged, b.State)
	})

	s.Run("pending upload blocks promotion", func() {
		res := s.stage(rolls("1234567890131,AB00000031,MBAYE,Cheikh,Louga,PS-04"))
		pending := models.NewBatch(id.BatchID(uuid.New()), "abc", models.EncodingUTF8, "clerk-2", s.now)
		s.Require().NoError(s.ledger.RunInTx(s.ctx, func(ctx context.Context, l store.Ledger) error {
			return l.CreateBatch(ctx, pending)
		}))
		_, err := s.svc.PromoteImportBatch(s.ctx, res.BatchID)
		s.True(dErrors.HasCode(err, dErrors.CodeImportInProgress))
	})

	s.Run("unknown batch", func() {
		_, err := s.svc.PromoteImportBatch(s.ctx, id.BatchID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ImportServiceSuite) TestReject() {
	res := s.stage(rolls("1234567890140,AB00000040,SOW,Aminata,Matam,PS-05"))
	b, err := s.svc.RejectImportBatch(s.ctx, res.BatchID)
	s.Require().NoError(err)
	s.Equal(models.BatchRejected, b.State)

	var staged int
	s.Require().NoError(s.ledger.RunInTx(s.ctx, func(ctx context.Context, l store.Ledger) error {
		staged, err = l.CountStaged(ctx, res.BatchID)
		return err
	}))
	s.Zero(staged)

	_, err = s.svc.RejectImportBatch(s.ctx, res.BatchID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ImportServiceSuite) TestListAttempts() {
	s.stage(rolls("1234567890150,AB00000050,CISSE,Omar,Kaolack,PS-06"))
	cmd := upload(rolls("1234567890151,AB00000051,CISSE,Awa,Kaolack,PS-06"))
	cmd.Checksum = "nope"
	_, err := s.svc.StageImportBatch(s.ctx, cmd)
	s.Require().Error(err)

	attempts, err := s.svc.ListAttempts(s.ctx, "clerk-1")
	s.Require().NoError(err)
	s.Require().Len(attempts, 2)
	outcomes := []models.AttemptOutcome{attempts[0].Outcome, attempts[1].Outcome}
	s.ElementsMatch([]models.AttemptOutcome{models.AttemptSuccess, models.AttemptError}, outcomes)

	none, err := s.svc.ListAttempts(s.ctx, "clerk-9")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *ImportServiceSuite) TestCleanup() {
	abandoned := models.NewBatch(id.BatchID(uuid.New()), "abc", models.EncodingUTF8, "clerk-2", s.now.Add(-2*time.Hour))
	s.Require().NoError(s.ledger.RunInTx(s.ctx, func(ctx context.Context, l store.Ledger) error {
		return l.CreateBatch(ctx, abandoned)
	}))
	fresh := s.stage(rolls("1234567890160,AB00000060,DIALLO,Binta,Kolda,PS-07"))

	res, err := s.svc.Cleanup(s.ctx, 30*24*time.Hour, time.Hour)
	s.Require().NoError(err)
	s.Equal(1, res.AbandonedBatches)
	s.Zero(res.DeletedBatches)

	b, err := s.svc.GetBatch(s.ctx, abandoned.ID)
	s.Require().NoError(err)
	s.Equal(models.BatchRejected, b.State)

	later := requestcontext.WithTime(context.Background(), s.now.Add(31*24*time.Hour))
	res, err = s.svc.Cleanup(later, 30*24*time.Hour, time.Hour)
	s.Require().NoError(err)
	s.Equal(int64(1), res.DeletedBatches)
	s.Equal(int64(1), res.DeletedAttempts)

	_, err = s.svc.GetBatch(s.ctx, abandoned.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	b, err = s.svc.GetBatch(s.ctx, fresh.BatchID)
	s.Require().NoError(err)
	s.Equal(models.BatchStaged, b.State)
}
