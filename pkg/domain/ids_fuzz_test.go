package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseIDs feeds header and path input to every ID parser: they must
// agree, never accept the nil UUID, and keep accepted values stable.
func FuzzParseIDs(f *testing.F) {
	for _, seed := range []string{
		"",
		"550e8400-e29b-41d4-a716-446655440000",
		"{550e8400-e29b-41d4-a716-446655440000}",
		"urn:uuid:550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
		"AB12CD",
		"'; DELETE FROM sponsorships;--",
		"550e8400-e29b-41d4-a716-446655440000\x00",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		voter, errVoter := ParseVoterID(input)
		_, errCandidate := ParseCandidateID(input)
		_, errPeriod := ParsePeriodID(input)
		_, errSponsorship := ParseSponsorshipID(input)
		_, errBatch := ParseBatchID(input)

		accepted := errVoter == nil
		for _, err := range []error{errCandidate, errPeriod, errSponsorship, errBatch} {
			if (err == nil) != accepted {
				t.Fatalf("parsers disagree on %q", input)
			}
		}
		if !accepted {
			return
		}
		if voter.IsNil() {
			t.Fatal("nil id accepted")
		}
		if !utf8.ValidString(input) {
			t.Fatal("non-UTF-8 input accepted")
		}
		again, err := ParseVoterID(voter.String())
		if err != nil || again != voter {
			t.Fatalf("canonical form of %q does not round trip", input)
		}
	})
}
