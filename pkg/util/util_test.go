package util

import "testing"

func TestMergeMaps(t *testing.T) {
	defaults := map[string]string{"username": "admin", "ssh_port": "22"}
	device := map[string]string{"mgmt_ip": "10.0.0.1"}

	got := MergeMaps(defaults, device)
	want := map[string]string{"username": "admin", "ssh_port": "22", "mgmt_ip": "10.0.0.1"}

	if len(got) != len(want) {
		t.Fatalf("MergeMaps() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("MergeMaps()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestMergeMapsOverride(t *testing.T) {
	defaults := map[string]string{"username": "admin"}
	device := map[string]string{"username": "operator"}

	got := MergeMaps(defaults, device)
	if got["username"] != "operator" {
		t.Errorf("device value should win over defaults, got %q", got["username"])
	}
}

func TestCoalesceString(t *testing.T) {
	if got := CoalesceString("", "", "fallback"); got != "fallback" {
		t.Errorf("CoalesceString() = %q, want %q", got, "fallback")
	}
	if got := CoalesceString("first", "second"); got != "first" {
		t.Errorf("CoalesceString() = %q, want %q", got, "first")
	}
	if got := CoalesceString("", ""); got != "" {
		t.Errorf("CoalesceString() = %q, want empty", got)
	}
}

func TestValidVLAN(t *testing.T) {
	cases := []struct {
		id   int
		want bool
	}{
		{0, false},
		{1, true},
		{4094, true},
		{4095, false},
		{300, true},
	}
	for _, c := range cases {
		if got := ValidVLAN(c.id); got != c.want {
			t.Errorf("ValidVLAN(%d) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestClampVLANOrZero(t *testing.T) {
	if got := ClampVLANOrZero(300); got != 300 {
		t.Errorf("ClampVLANOrZero(300) = %d, want 300", got)
	}
	if got := ClampVLANOrZero(5000); got != 0 {
		t.Errorf("ClampVLANOrZero(5000) = %d, want 0", got)
	}
}

func TestValidationBuilder(t *testing.T) {
	var vb ValidationBuilder
	vb.Add(true, "should not appear")
	vb.Add(false, "mgmt_ip is required")
	vb.AddErrorf("device %q is malformed", "leaf-99")

	if !vb.HasErrors() {
		t.Fatal("expected HasErrors() to be true")
	}

	err := vb.Build()
	if err == nil {
		t.Fatal("expected Build() to return an error")
	}

	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 2 {
		t.Fatalf("expected 2 accumulated errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func TestValidationBuilderNoErrors(t *testing.T) {
	var vb ValidationBuilder
	vb.Add(true, "fine")
	if vb.HasErrors() {
		t.Fatal("expected no errors")
	}
	if err := vb.Build(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
