package ledger

import (
	"errors"
	"strings"
	"testing"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

func TestProfileRecordCheck(t *testing.T) {
	eligible := profileRecord{
		AccountStatus: "ACTIVE",
		HasProfile:    true,
		Verified:      true,
		AddressLine:   "12 MG Road",
		Area:          "Indiranagar",
		State:         "Karnataka",
		Country:       "India",
	}
	if err := eligible.check(); err != nil {
		t.Fatalf("eligible profile rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*profileRecord)
		wantMsg string
	}{
		{"suspended account", func(r *profileRecord) { r.AccountStatus = "SUSPENDED" }, "Your account is suspended"},
		{"blocked account", func(r *profileRecord) { r.AccountStatus = "BLOCKED" }, "Only active accounts"},
		{"missing profile", func(r *profileRecord) { r.HasProfile = false }, "Complete your profile"},
		{"unverified", func(r *profileRecord) { r.Verified = false }, "not verified"},
		{"missing address line", func(r *profileRecord) { r.AddressLine = "" }, "Complete address"},
		{"missing area", func(r *profileRecord) { r.Area = "" }, "Complete address"},
		{"missing state", func(r *profileRecord) { r.State = "" }, "Complete address"},
		{"missing country", func(r *profileRecord) { r.Country = "" }, "Complete address"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := eligible
			tc.mutate(&rec)
			err := rec.check()
			if err == nil {
				t.Fatalf("expected rejection")
			}
			var fe *types.ForbiddenError
			if !errors.As(err, &fe) {
				t.Fatalf("expected forbidden error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error = %q, want containing %q", err, tc.wantMsg)
			}
		})
	}
}
