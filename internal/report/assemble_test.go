package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestSortRecords(t *testing.T) {
	recs := []*Record{
		{Identity: "zoe", CheckIns: 5},
		{Identity: "Adam", CheckIns: 12},
		{Identity: "bob", CheckIns: 12},
		{Identity: "Cara", CheckIns: 0},
	}
	SortRecords(recs)

	// Check-ins descending, then identity case-insensitive ascending.
	for i := 0; i < len(recs)-1; i++ {
		a, b := recs[i], recs[i+1]
		if a.CheckIns < b.CheckIns {
			t.Fatalf("position %d: check-ins %d before %d", i, a.CheckIns, b.CheckIns)
		}
		if a.CheckIns == b.CheckIns && strings.ToLower(a.Identity) > strings.ToLower(b.Identity) {
			t.Fatalf("position %d: identity %q before %q", i, a.Identity, b.Identity)
		}
	}
	if recs[0].Identity != "Adam" || recs[1].Identity != "bob" {
		t.Errorf("tie not broken case-insensitively: %q, %q", recs[0].Identity, recs[1].Identity)
	}
}

func TestOutputHeaders_ExclusionsAndComputed(t *testing.T) {
	original := []string{"Username", "User Image", "Phone", "Email", "Created At", "Check ins", "Password", "Edit", "Send Email"}
	got := OutputHeaders(original, AssembleOptions{})

	want := []string{"Username", "Email", CheckInsHeader, DeductionHeader}
	if len(got) != len(want) {
		t.Fatalf("headers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("headers = %v, want %v", got, want)
		}
	}
}

func TestOutputHeaders_CheckInsAppendedWhenAbsent(t *testing.T) {
	got := OutputHeaders([]string{"Username", "Email"}, AssembleOptions{})
	if got[len(got)-2] != CheckInsHeader || got[len(got)-1] != DeductionHeader {
		t.Errorf("headers = %v, want check-ins then deduction appended", got)
	}
}

func TestOutputHeaders_SynonymsCollapseToOneColumn(t *testing.T) {
	got := OutputHeaders([]string{"Username", "Check Ins", "Checkins", "check ins"}, AssembleOptions{})
	count := 0
	for _, h := range got {
		if h == CheckInsHeader {
			count++
		}
	}
	if count != 1 {
		t.Errorf("check-ins columns = %d in %v, want 1", count, got)
	}
}

func TestAssemble_ZeroRowsHeaderOnly(t *testing.T) {
	out, err := Assemble([]string{"Username", "Email", "Check Ins"}, nil, AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want header only", len(lines))
	}
	if lines[0] != "Username,Email,Check Ins,Amount to be Deducted" {
		t.Errorf("header line = %q", lines[0])
	}
}

func TestAssemble_RowValues(t *testing.T) {
	rep, err := Parse(strings.NewReader(
		"Username,Email,Check ins,Phone\nAlice,alice@x.com,15,12345\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rep.Records[0].Deduction = 1375

	out, err := Assemble(rep.Headers, rep.Records, AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if lines[0] != "Username,Email,Check Ins,Amount to be Deducted" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "Alice,alice@x.com,15,1375" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestAssemble_OmitDeduction(t *testing.T) {
	out, err := Assemble([]string{"Username"}, nil, AssembleOptions{OmitDeduction: true})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if strings.Contains(string(out), DeductionHeader) {
		t.Errorf("output %q carries the deduction column", out)
	}
}

func TestAssemble_ByteIdempotent(t *testing.T) {
	csv := "Username,Email,Check ins,Subscription Status\n" +
		"Bob,bob@x.com,8,Active\nAlice,alice@x.com,15,Active\n"

	run := func() []byte {
		rep, err := Parse(strings.NewReader(csv))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		kept := Filter{RequireActive: true}.Apply(rep.Records)
		out, err := Assemble(rep.Headers, kept, AssembleOptions{})
		if err != nil {
			t.Fatalf("Assemble: %v", err)
		}
		return out
	}

	if !bytes.Equal(run(), run()) {
		t.Error("two runs over identical input produced different artifacts")
	}
}
