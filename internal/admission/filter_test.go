package admission

import "testing"

func TestAdmitAllowsPlainSelect(t *testing.T) {
	d := Admit("SELECT access_code FROM users WHERE role='Gatekeeper';")
	if !d.Allowed {
		t.Fatalf("plain SELECT blocked: %q", d.Reason)
	}
}

func TestAdmitBlocksDestructiveStatements(t *testing.T) {
	queries := []string{
		"DROP TABLE users;",
		"delete from users",
		"INSERT INTO users VALUES (1)",
		"UPDATE users SET role='Admin'",
		"ALTER TABLE users ADD COLUMN x",
		"TRUNCATE users",
		"create table evil (x)",
	}

	for _, q := range queries {
		if d := Admit(q); d.Allowed {
			t.Errorf("Admit(%q) allowed, want blocked", q)
		} else if d.Reason != "Unauthorized command detected" {
			t.Errorf("Admit(%q) reason = %q", q, d.Reason)
		}
	}
}

func TestAdmitSelectBypassesBlocklist(t *testing.T) {
	// The filter is a textual heuristic: a SELECT alongside a blocked
	// keyword goes through and the sandbox bounds the damage.
	queries := []string{
		"SELECT * FROM users; DROP TABLE users;",
		"INSERT INTO users SELECT * FROM users",
	}

	for _, q := range queries {
		if d := Admit(q); !d.Allowed {
			t.Errorf("Admit(%q) blocked, want allowed", q)
		}
	}
}

func TestAdmitRespectsWordBoundaries(t *testing.T) {
	// A blocked keyword inside an identifier must not trip the filter.
	// None of these contain "select", so the bypass branch cannot save
	// them; only word-boundary matching keeps them admitted.
	allowed := []string{
		"inserted_at",
		"show updates",
		"explain dropouts",
		"describe alteration_log",
	}

	for _, q := range allowed {
		if d := Admit(q); !d.Allowed {
			t.Errorf("Admit(%q) blocked, want allowed", q)
		}
	}

	// The same keyword as a whole word, still without "select", blocks.
	if d := Admit("insert into x values (1)"); d.Allowed {
		t.Error("whole-word INSERT without a SELECT should be blocked")
	}
}

func TestAdmitIsPure(t *testing.T) {
	q := "DROP TABLE users;"
	first := Admit(q)
	for i := 0; i < 10; i++ {
		if got := Admit(q); got != first {
			t.Fatalf("Admit not idempotent: call %d = %+v, first = %+v", i, got, first)
		}
	}
}
