package ristretto_test

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/promptbox/internal/adapter/ristretto"
	"github.com/Strob0t/promptbox/internal/port/cache"
)

var _ cache.Cache = (*ristretto.Cache)(nil)

func newCache(t *testing.T) *ristretto.Cache {
	t.Helper()
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCache_SetAndGet(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "idem-key", []byte("response"), time.Minute); err != nil {
		t.Fatal(err)
	}
	val, found, err := c.Get(ctx, "idem-key")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected found after Set")
	}
	if string(val) != "response" {
		t.Fatalf("expected response, got %s", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := newCache(t)
	_, found, err := c.Get(context.Background(), "nonexistent-key")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss for nonexistent key")
	}
}

func TestCache_Delete(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "del-key", []byte("del-val"), time.Minute)
	if err := c.Delete(ctx, "del-key"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Get(ctx, "del-key"); found {
		t.Fatal("expected miss after Delete")
	}
	if err := c.Delete(ctx, "never-existed"); err != nil {
		t.Fatal("Delete of nonexistent key should not error")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "ow-key", []byte("v1"), time.Minute)
	_ = c.Set(ctx, "ow-key", []byte("v2"), time.Minute)
	val, found, _ := c.Get(ctx, "ow-key")
	if !found || string(val) != "v2" {
		t.Fatalf("expected v2 after overwrite, got %q (found=%v)", val, found)
	}
}

func TestNew_RejectsNonPositiveCost(t *testing.T) {
	if _, err := ristretto.New(0); err == nil {
		t.Fatal("expected error for zero max cost")
	}
}
