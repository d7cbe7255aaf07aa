package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"lxmf-chat/pkg/model"
)

func sampleDoc() Document {
	return Document{
		Peer:       model.Peer{IdentityHash: "ffee", Hash: "<AABBCCDDEEFF0011>"},
		Identity:   model.Identity{Name: "main", IdentityHash: "0102"},
		Messages:   []model.Message{{Timestamp: 1, Direction: model.Incoming, From: "aabbccddeeff0011", Content: "hi"}},
		ExportedAt: time.UnixMilli(1700000000123),
	}
}

func TestFileName(t *testing.T) {
	if got := sampleDoc().FileName(); got != "chat_aabbccdd_1700000000123.json" {
		t.Fatalf("name = %s", got)
	}
}

func TestLocalWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	loc, err := Save(context.Background(), &LocalWriter{Dir: dir}, sampleDoc())
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatal(err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Messages) != 1 || doc.Identity.Name != "main" {
		t.Fatalf("doc = %+v", doc)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestEmptyExportHasMessageArray(t *testing.T) {
	data, err := Document{}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(data, &raw)
	if string(raw["messages"]) != "[]" {
		t.Fatalf("messages = %s", raw["messages"])
	}
}

type mockS3 struct {
	key  string
	body []byte
	err  error
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.key = *in.Key
	m.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Writer(t *testing.T) {
	mock := &mockS3{}
	w := &S3Writer{Client: mock, Bucket: "chats", Prefix: "exports/2026"}
	loc, err := Save(context.Background(), w, sampleDoc())
	if err != nil {
		t.Fatal(err)
	}
	if mock.key != "exports/2026/chat_aabbccdd_1700000000123.json" || loc != "s3://chats/"+mock.key {
		t.Fatalf("key = %s loc = %s", mock.key, loc)
	}
	if len(mock.body) == 0 {
		t.Fatal("empty body uploaded")
	}

	mock.err = errors.New("denied")
	if _, err := Save(context.Background(), w, sampleDoc()); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestParseS3(t *testing.T) {
	cases := []struct {
		in             string
		bucket, prefix string
		ok             bool
	}{
		{"s3://b/p/q/", "b", "p/q", true},
		{"s3://b", "b", "", true},
		{"s3:///x", "", "", false},
		{"./exports", "", "", false},
	}
	for _, tc := range cases {
		b, p, ok := parseS3(tc.in)
		if b != tc.bucket || p != tc.prefix || ok != tc.ok {
			t.Errorf("parseS3(%q) = %q %q %v", tc.in, b, p, ok)
		}
	}
}
