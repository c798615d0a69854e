package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "run/1.txt", "text/plain", bytes.NewBufferString("content"))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://run/1.txt" {
		t.Fatalf("unexpected uri %s", uri)
	}

	got, ok := store.Get("run/1.txt")
	if !ok || string(got) != "content" {
		t.Fatalf("unexpected stored object %q (found=%v)", got, ok)
	}
	got[0] = 'C'
	again, _ := store.Get("run/1.txt")
	if string(again) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", again)
	}
	if store.ContentType("run/1.txt") != "text/plain" || store.Len() != 1 {
		t.Fatalf("unexpected metadata: type=%q len=%d", store.ContentType("run/1.txt"), store.Len())
	}
	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected missing object")
	}
}
