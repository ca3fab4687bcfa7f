package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/tbourn/go-storefront-backend/internal/config"
	"github.com/tbourn/go-storefront-backend/internal/repo"
)

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cases := []struct {
		name   string
		store  config.StoreConfig
		wantDB bool
	}{
		{"memory", config.StoreConfig{Driver: config.StoreMemory}, false},
		{"sqlite", config.StoreConfig{Driver: config.StoreSQL, DBDriver: repo.DriverSQLite, DBPath: filepath.Join(t.TempDir(), "store.db")}, true},
		{"redis", config.StoreConfig{Driver: config.StoreRedis, RedisAddr: mr.Addr(), RedisPrefix: "test:"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			st, db, closeFn, err := openStore(ctx, config.Config{Store: tc.store})
			if err != nil {
				t.Fatalf("openStore: %v", err)
			}
			t.Cleanup(closeFn)
			if (db != nil) != tc.wantDB {
				t.Fatalf("db = %v; want db: %v", db, tc.wantDB)
			}
			if err := st.Set(ctx, "k", []byte("v")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if got, err := st.Get(ctx, "k"); err != nil || string(got) != "v" {
				t.Fatalf("Get = %q, %v", got, err)
			}
		})
	}
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Config{Store: config.StoreConfig{Driver: config.StoreRedis, RedisAddr: addr}}
	if _, _, _, err := openStore(context.Background(), cfg); err == nil {
		t.Fatalf("expected ping error")
	}
}
