package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "parrainage/pkg/domain-errors"
)

// idParsers adapts every typed parser to one signature so the same inputs run
// through all of them.
var idParsers = map[string]func(string) (uuid.UUID, error){
	"voter": func(s string) (uuid.UUID, error) {
		v, err := ParseVoterID(s)
		return uuid.UUID(v), err
	},
	"candidate": func(s string) (uuid.UUID, error) {
		v, err := ParseCandidateID(s)
		return uuid.UUID(v), err
	},
	"period": func(s string) (uuid.UUID, error) {
		v, err := ParsePeriodID(s)
		return uuid.UUID(v), err
	},
	"sponsorship": func(s string) (uuid.UUID, error) {
		v, err := ParseSponsorshipID(s)
		return uuid.UUID(v), err
	},
	"batch": func(s string) (uuid.UUID, error) {
		v, err := ParseBatchID(s)
		return uuid.UUID(v), err
	},
}

func TestParseIDsRejectBadInput(t *testing.T) {
	inputs := map[string]string{
		"empty":             "",
		"blank":             "   ",
		"nil uuid":          uuid.Nil.String(),
		"national id":       "1234567890123",
		"verification code": "PRN-7K2Q9M",
		"sql fragment":      "'; DELETE FROM sponsorships;--",
		"embedded nul":      "550e8400\x00-e29b-41d4-a716-446655440000",
		"zero-width space":  "550e8400\u200b-e29b-41d4-a716-446655440000",
		"oversized":         strings.Repeat("f", 512),
	}

	for kind, parse := range idParsers {
		for name, input := range inputs {
			t.Run(kind+"/"+name, func(t *testing.T) {
				_, err := parse(input)
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			})
		}
	}
}

func TestParseIDsAcceptCanonicalAndUppercase(t *testing.T) {
	raw := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	for kind, parse := range idParsers {
		t.Run(kind, func(t *testing.T) {
			got, err := parse(raw.String())
			require.NoError(t, err)
			assert.Equal(t, raw, got)

			got, err = parse(strings.ToUpper(raw.String()))
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestParseIDErrorNamesTheKind(t *testing.T) {
	_, err := ParseCandidateID("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidate id")

	_, err = ParseBatchID(uuid.Nil.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch id")
}

func TestIDIsNil(t *testing.T) {
	assert.True(t, PeriodID{}.IsNil())
	assert.False(t, PeriodID(uuid.New()).IsNil())
	assert.True(t, VoterID(uuid.Nil).IsNil())
}

func TestParseRole(t *testing.T) {
	for _, want := range []Role{RoleVoter, RoleCandidate, RoleAdmin} {
		got, err := ParseRole(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "superuser", "Admin"} {
		_, err := ParseRole(bad)
		require.Error(t, err, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestIDsRenderAsUUIDStringsInJSON(t *testing.T) {
	type receipt struct {
		Sponsorship SponsorshipID `json:"sponsorship_id"`
		Period      PeriodID      `json:"period_id"`
	}
	in := receipt{Sponsorship: SponsorshipID(uuid.New()), Period: PeriodID(uuid.New())}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sponsorship_id":"`+in.Sponsorship.String()+`","period_id":"`+in.Period.String()+`"}`, string(b))

	var out receipt
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
