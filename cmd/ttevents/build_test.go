package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleEvent = `{
	"name": "checkout",
	"type": "ecommerce",
	"client": {
		"ip": "203.0.113.7",
		"user_agent": "Chrome/91.0.4472.124",
		"url": "https://shop.example.com/checkout",
		"referrer": "https://shop.example.com/cart",
		"timestamp": 1697783008,
		"cookies": {"_ttp": "cookie-ttp"}
	},
	"payload": {
		"event_id": "evt-9",
		"ecommerce": {"value": 12.5, "currency": "USD", "email": "Foo@Bar.com"}
	}
}`

type cliBody struct {
	Data []struct {
		Event      string         `json:"event"`
		EventID    string         `json:"event_id"`
		User       map[string]any `json:"user"`
		Properties map[string]any `json:"properties"`
	} `json:"data"`
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newBuildCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestBuildCmd_Stdin(t *testing.T) {
	out, err := runCLI(t, sampleEvent, "--hide-client-ip")
	if err != nil {
		t.Fatal(err)
	}

	var body cliBody
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("invalid output %s: %v", out, err)
	}

	data := body.Data[0]
	if data.Event != "checkout" || data.EventID != "evt-9" {
		t.Fatalf("unexpected envelope: %+v", data)
	}
	if data.User["email"] != "0c7e6a405862e402eb76a70f8a26fc732d07c32931e9fae9ab1582911d2e8a3b" {
		t.Fatalf("unexpected user: %v", data.User)
	}
	if data.User["ttp"] != "cookie-ttp" {
		t.Fatalf("expected ttp from cookies: %v", data.User)
	}
	if _, ok := data.User["ip"]; ok {
		t.Fatal("ip must be hidden")
	}
	if data.Properties["currency"] != "USD" || data.Properties["value"] != 12.5 {
		t.Fatalf("unexpected properties: %v", data.Properties)
	}
}

func TestBuildCmd_TypeFlagOverridesEventType(t *testing.T) {
	out, err := runCLI(t, sampleEvent, "--type", "pageview")
	if err != nil {
		t.Fatal(err)
	}

	var body cliBody
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data[0].Event != "Pageview" {
		t.Fatalf("expected Pageview, got %q", body.Data[0].Event)
	}
	if _, ok := body.Data[0].Properties["ecommerce"]; !ok {
		t.Fatal("non-ecommerce builds keep the ecommerce object as a property")
	}
}

func TestBuildCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(sampleEvent), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "", "-f", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"event_id": "evt-9"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestBuildCmd_InvalidInput(t *testing.T) {
	if _, err := runCLI(t, "{"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := runCLI(t, "", "-f", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestRootCmd_DoesNotPrintErrors(t *testing.T) {
	root := newRootCmd()
	var stderr bytes.Buffer
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&stderr)
	root.SetArgs([]string{"build", "-f", filepath.Join(t.TempDir(), "missing.json")})

	if err := root.Execute(); err == nil {
		t.Fatal("expected missing file error")
	}
	if strings.Contains(stderr.String(), "Error:") {
		t.Fatalf("error printed by cobra as well as main: %q", stderr.String())
	}
}

func TestBuildCmd_FractionalTimestamp(t *testing.T) {
	in := strings.Replace(sampleEvent, `"timestamp": 1697783008,`, `"timestamp": 1697783008.25,`, 1)

	out, err := runCLI(t, in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"event_time": "2023-10-20T06:23:28.250Z"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}
