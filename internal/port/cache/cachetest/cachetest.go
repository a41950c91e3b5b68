// Package cachetest provides a compliance suite for cache.Cache implementations.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/NetBoxAssistant/internal/port/cache"
)

// RunComplianceTests runs the standard compliance suite against any Cache implementation.
func RunComplianceTests(t *testing.T, c cache.Cache, settle func()) {
	t.Helper()
	ctx := context.Background()
	if settle == nil {
		settle = func() {}
	}

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "q.sites", []byte(`{"site_list":[]}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		settle()
		val, found, err := c.Get(ctx, "q.sites")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"site_list":[]}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "q.never")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for unknown key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "q.del", []byte("v"), time.Minute)
		settle()
		if err := c.Delete(ctx, "q.del"); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, "q.del")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "q.ghost"); err != nil {
			t.Fatal("Delete of unknown key should not error")
		}
	})
}
