package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"lxmf-chat/pkg/model"
)

type chatStub struct {
	mu    sync.Mutex
	sent  []string
	saved map[string]interface{}
}

func (c *chatStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch r.URL.Path {
	case "/api/chat/peers":
		_, _ = w.Write([]byte(`[
			{"identity_hash":"1111","hash":"aaaa","display_name":"Relay\u0007 One","online":true,"last_seen":50,"hops":3},
			{"identity_hash":"2222","hash":"bbbb","display_name":"Sensor","online":false,"last_seen":90,"hops":1}
		]`))
	case "/api/chat/messages":
		_, _ = w.Write([]byte(`[{"id":1,"timestamp":10,"direction":"incoming","from":"bbbb","to":"self","content":"hi there",
			"battery":{"charge_percent":64},"location":{"latitude":45.1,"longitude":7.6},
			"information":{"cpu":"12%","uptime":"2d 4h"}}]`))
	case "/api/identities/2222/group/work":
		_, _ = w.Write([]byte(`{"success":true,"groups":["work"],"added":true}`))
	case "/api/chat/send":
		var req struct{ Destination, Content string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		c.sent = append(c.sent, req.Destination+":"+req.Content)
		_, _ = w.Write([]byte(`{"success":true}`))
	case "/api/config":
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&c.saved)
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"delivery_mode":"direct","max_retries":3}`))
	default:
		http.NotFound(w, r)
	}
}

func execute(t *testing.T, stub http.Handler, args ...string) (string, error) {
	t.Helper()
	ts := httptest.NewServer(stub)
	t.Cleanup(ts.Close)
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--backend", ts.URL, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestPeersCommandSortsAndCleansNames(t *testing.T) {
	out, err := execute(t, &chatStub{}, "peers", "--sort", "hops")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 peers, 1 online") {
		t.Fatalf("summary missing:\n%s", out)
	}
	sensor := strings.Index(out, "Sensor")
	relay := strings.Index(out, "Relay One")
	if sensor < 0 || relay < 0 || sensor > relay {
		t.Fatalf("hops ascending order not applied:\n%s", out)
	}
}

func TestSendCommand(t *testing.T) {
	stub := &chatStub{}
	out, err := execute(t, stub, "send", "<BB:BB>", "hello", "world")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "sent" {
		t.Fatalf("out = %q", out)
	}
	if len(stub.sent) != 1 || stub.sent[0] != "bbbb:hello world" {
		t.Fatalf("sent = %v", stub.sent)
	}
}

func TestSendUnknownPeerFails(t *testing.T) {
	if _, err := execute(t, &chatStub{}, "send", "ffff", "hi"); err == nil {
		t.Fatal("send to unknown peer succeeded")
	}
}

func TestConfigSet(t *testing.T) {
	stub := &chatStub{}
	if _, err := execute(t, stub, "config", "set", "delivery_mode=propagated", "max_retries=5"); err != nil {
		t.Fatal(err)
	}
	if stub.saved["delivery_mode"] != "propagated" || stub.saved["max_retries"] != float64(5) {
		t.Fatalf("saved = %v", stub.saved)
	}
	if _, err := execute(t, stub, "config", "set", "delivery_mode=carrier"); err == nil {
		t.Fatal("invalid delivery mode saved")
	}
}

func TestApplyAssignments(t *testing.T) {
	cfg := model.ServerConfig{DeliveryMode: model.DeliveryDirect}
	got, err := applyAssignments(cfg, []string{"propagation_node=1234", "auto_retry=true"})
	if err != nil {
		t.Fatal(err)
	}
	if got.PropagationNode != "1234" || !got.AutoRetry {
		t.Fatalf("got %+v", got)
	}
	if _, err := applyAssignments(cfg, []string{"nope=1"}); err == nil {
		t.Fatal("unknown field accepted")
	}
	if _, err := applyAssignments(cfg, []string{"max_retries"}); err == nil {
		t.Fatal("missing value accepted")
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", "/does/not/exist.yaml", "version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "lxmf-agent ") {
		t.Fatalf("out = %q", out.String())
	}
}

func TestMessagesCommandPrintsTelemetry(t *testing.T) {
	out, err := execute(t, &chatStub{}, "messages", "bbbb")
	if err != nil {
		t.Fatal(err)
	}
	want := "-- battery 64%, at 45.10000,7.60000, up 2d 4h, cpu 12%, 1 telemetry samples"
	if !strings.Contains(out, want) {
		t.Fatalf("output = %q, want footer %q", out, want)
	}
}

func TestGroupCommandReportsMembership(t *testing.T) {
	out, err := execute(t, &chatStub{}, "group", "2222", "work")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "added to work, groups=work" {
		t.Fatalf("output = %q", out)
	}
}
