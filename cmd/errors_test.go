package cmd

import "testing"

func TestNotAuthenticatedError(t *testing.T) {
	err := &NotAuthenticatedError{Action: "blog create"}
	want := "blog create requires a session (run `seca-suite auth login` first)"
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}

	err = &NotAuthenticatedError{}
	want = "not logged in (run `seca-suite auth login` first)"
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
}

func TestUnsupportedFormatError(t *testing.T) {
	err := &UnsupportedFormatError{Format: "xml", Allowed: []string{"table", "json"}}
	want := `unsupported format "xml" (use table or json)`
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
}
