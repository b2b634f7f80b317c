package locations

import (
	"context"
	"errors"
	"testing"

	"github.com/xelth-com/watibridge/internal/database"
	"github.com/xelth-com/watibridge/internal/models"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("starts an embedded PostgreSQL")
	}
	db, err := database.OpenEmbedded(t.TempDir(), 5441, "locations_test")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.AutoMigrate(&models.LocationMapping{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGormStore(t *testing.T) {
	store := NewGormStore(openTestDB(t).DB)
	ctx := context.Background()

	active := models.LocationMapping{LocationCode: " avina14 ", Warehouse: "FTY-1", Active: true}
	if err := store.Save(ctx, &active); err != nil {
		t.Fatalf("save active: %v", err)
	}
	inactive := models.LocationMapping{LocationCode: "AVINA15", Warehouse: "FTY-2", Active: false}
	if err := store.Save(ctx, &inactive); err != nil {
		t.Fatalf("save inactive: %v", err)
	}

	t.Run("inactive stays inactive", func(t *testing.T) {
		got, err := store.Get(ctx, inactive.ID)
		if err != nil || got.Active {
			t.Fatalf("Get = %+v, %v", got, err)
		}
		m, err := store.FindActive(ctx, "AVINA15")
		if err != nil || m != nil {
			t.Fatalf("FindActive = %+v, %v", m, err)
		}
	})

	t.Run("codes are normalized", func(t *testing.T) {
		m, err := store.FindActive(ctx, "avina14")
		if err != nil || m == nil || m.Warehouse != "FTY-1" {
			t.Fatalf("FindActive = %+v, %v", m, err)
		}
	})

	t.Run("duplicate code", func(t *testing.T) {
		dup := models.LocationMapping{LocationCode: "AVINA14", Warehouse: "X", Active: true}
		if err := store.Save(ctx, &dup); !errors.Is(err, ErrDuplicateCode) {
			t.Fatalf("expected ErrDuplicateCode, got %v", err)
		}
	})

	t.Run("reactivate", func(t *testing.T) {
		inactive.Active = true
		if err := store.Save(ctx, &inactive); err != nil {
			t.Fatal(err)
		}
		wh, err := NewMapper(store).Resolve(ctx, "AVINA15")
		if err != nil || wh != "FTY-2" {
			t.Fatalf("Resolve = %q, %v", wh, err)
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		list, err := store.List(ctx)
		if err != nil || len(list) != 2 || list[0].LocationCode != "AVINA14" {
			t.Fatalf("List = %+v, %v", list, err)
		}
		if err := store.Delete(ctx, active.ID); err != nil {
			t.Fatal(err)
		}
		if err := store.Delete(ctx, active.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second delete: %v", err)
		}
		if _, err := store.Get(ctx, active.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("get deleted: %v", err)
		}
	})
}
