package inventory

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
)

const sampleYAML = `
defaults:
  username: admin
  password: secret
  ssh_port: 22

LEAF-A:
  mgmt_ip: 10.0.0.1
  role: leaf

LEAF-B:
  mgmt_ip: 10.0.0.2
  username: operator
  role: leaf

LEAF-C:
  mgmt_ip: TBD
  role: leaf

LEAF-D:
  role: spine
`

func TestParseMergesDefaults(t *testing.T) {
	inv, err := parse("test.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	a := inv.Get("LEAF-A")
	if a == nil {
		t.Fatal("expected LEAF-A to be present")
	}
	if a.Username != "admin" {
		t.Errorf("LEAF-A.Username = %q, want inherited %q", a.Username, "admin")
	}
	if a.SSHPort != 22 {
		t.Errorf("LEAF-A.SSHPort = %d, want 22", a.SSHPort)
	}

	b := inv.Get("LEAF-B")
	if b.Username != "operator" {
		t.Errorf("LEAF-B.Username = %q, want device-specific override %q", b.Username, "operator")
	}
}

func TestListUsableExcludesPlaceholdersAndMissing(t *testing.T) {
	inv, err := parse("test.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	usable := inv.ListUsable()
	names := make([]string, len(usable))
	for i, d := range usable {
		names[i] = d.Name
	}
	got := strings.Join(names, ",")

	if strings.Contains(got, "LEAF-C") {
		t.Errorf("LEAF-C has placeholder mgmt_ip, should not be usable: %v", names)
	}
	if strings.Contains(got, "LEAF-D") {
		t.Errorf("LEAF-D has no mgmt_ip, should not be usable: %v", names)
	}
	if len(usable) != 2 {
		t.Errorf("expected 2 usable devices, got %d: %v", len(usable), names)
	}
}

func TestParseEmptyDocumentErrors(t *testing.T) {
	if _, err := parse("empty.yaml", []byte("")); err == nil {
		t.Fatal("expected error for empty inventory document")
	}
}

func TestParseMalformedYAMLErrors(t *testing.T) {
	if _, err := parse("bad.yaml", []byte("not: valid: yaml: [")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestReachableSubsetSkipsUnusable(t *testing.T) {
	inv, err := parse("test.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	result := inv.ReachableSubset(context.Background(), []string{"LEAF-C", "LEAF-D", "NOT-IN-INVENTORY"}, 2)
	for _, name := range []string{"LEAF-C", "LEAF-D", "NOT-IN-INVENTORY"} {
		if result[name] {
			t.Errorf("%s should not be reachable (unusable or missing)", name)
		}
	}
}

func TestReachableSubsetFindsListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot bind local listener: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	yamlDoc := `
LISTENER:
  mgmt_ip: 127.0.0.1
  ssh_port: ` + strconv.Itoa(port) + `
`
	inv, err := parse("test.yaml", []byte(yamlDoc))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	result := inv.ReachableSubset(context.Background(), []string{"LISTENER"}, 1)
	if !result["LISTENER"] {
		t.Error("expected LISTENER to be reachable")
	}
}
