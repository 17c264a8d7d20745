package guard

import (
	"errors"
	"testing"
)

func TestValidateScope(t *testing.T) {
	g := New("acme-corp", "webhook-service", nil)

	if err := g.ValidateScope("acme-corp", "webhook-service"); err != nil {
		t.Fatalf("ValidateScope for configured scope returned %v", err)
	}

	cases := []struct {
		owner, repo string
	}{
		{"acme-corp", "other-repo"},
		{"other-org", "webhook-service"},
		{"", ""},
		{"Acme-Corp", "webhook-service"},
	}
	for _, tc := range cases {
		err := g.ValidateScope(tc.owner, tc.repo)
		if !errors.Is(err, ErrRepoAccessDenied) {
			t.Fatalf("ValidateScope(%q, %q) = %v, want ErrRepoAccessDenied", tc.owner, tc.repo, err)
		}
	}
}

func TestValidateRef(t *testing.T) {
	g := New("acme-corp", "repo", []string{"webhook_bug_test", "webhook_bug_golden"})

	if err := g.ValidateRef("webhook_bug_baseline"); err != nil {
		t.Fatalf("ValidateRef for visible ref returned %v", err)
	}
	if err := g.ValidateRef("webhook_bug_golden"); !errors.Is(err, ErrBranchHidden) {
		t.Fatalf("ValidateRef for hidden ref = %v, want ErrBranchHidden", err)
	}

	// Hidden matching is exact and case-sensitive.
	if err := g.ValidateRef("Webhook_Bug_Golden"); err != nil {
		t.Fatalf("ValidateRef should be case-sensitive, got %v", err)
	}
	if err := g.ValidateRef("webhook_bug_golden2"); err != nil {
		t.Fatalf("ValidateRef should require exact match, got %v", err)
	}
}

func TestHiddenRefsSorted(t *testing.T) {
	g := New("o", "r", []string{"zeta", "alpha", "", "mid"})

	refs := g.HiddenRefs()
	want := []string{"alpha", "mid", "zeta"}
	if len(refs) != len(want) {
		t.Fatalf("HiddenRefs length = %d, want %d", len(refs), len(want))
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("HiddenRefs[%d] = %q, want %q", i, refs[i], want[i])
		}
	}
	if !g.IsHidden("alpha") || g.IsHidden("") {
		t.Fatal("IsHidden mismatch")
	}
}
