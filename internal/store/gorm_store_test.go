package store

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
	db, err := database.OpenEmbedded(t.TempDir(), 5442, "store_test")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.AutoMigrate(&models.WatiSettings{}, &models.WebhookLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGormStores(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t.Run("settings seeded on first load", func(t *testing.T) {
		defaults := models.WatiSettings{
			APIKey:                "key",
			DefaultCompany:        "SEMSB",
			WebhookURL:            "https://bridge.example.com/api/webhooks/wati",
			NotifySenderOnSuccess: true,
			NotifySenderOnError:   true,
		}
		st := NewGormSettingsStore(db.DB, defaults)

		s, err := st.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if s.ID != models.SettingsID || s.APIKey != "key" || s.DefaultCompany != "SEMSB" || !s.NotifySenderOnSuccess {
			t.Fatalf("seeded = %+v", s)
		}

		s.NotifySenderOnSuccess = false
		s.TestMode = true
		s.WebhookURL = "edited"
		if err := st.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}

		again, err := st.Load(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if again.NotifySenderOnSuccess || !again.TestMode || !again.NotifySenderOnError {
			t.Fatalf("reloaded = %+v", again)
		}
		if again.WebhookURL != defaults.WebhookURL {
			t.Fatalf("webhook url = %q", again.WebhookURL)
		}
		var count int64
		db.Model(&models.WatiSettings{}).Count(&count)
		if count != 1 {
			t.Fatalf("settings rows = %d", count)
		}
	})

	t.Run("webhook logs", func(t *testing.T) {
		logs := NewGormLogStore(db.DB)
		first := &models.WebhookLog{Status: models.WebhookReceived, WhatsAppNumber: "6012", Payload: []byte(`{"id":"a"}`)}
		if err := logs.Create(ctx, first); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if first.ID == "" {
			t.Fatal("id not assigned")
		}
		other := &models.WebhookLog{Status: models.WebhookIgnored, WhatsAppNumber: "6099", Payload: []byte(`{}`)}
		if err := logs.Create(ctx, other); err != nil {
			t.Fatal(err)
		}

		first.Status = models.WebhookSuccess
		first.SalesOrdersCreated = "SAL-ORD-00001"
		if err := logs.Update(ctx, first); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, err := logs.Get(ctx, first.ID)
		if err != nil || got.Status != models.WebhookSuccess || got.SalesOrdersCreated != "SAL-ORD-00001" {
			t.Fatalf("Get = %+v, %v", got, err)
		}

		list, err := logs.List(ctx, LogFilter{WaID: "6012"})
		if err != nil || len(list) != 1 || list[0].ID != first.ID {
			t.Fatalf("List by waId = %+v, %v", list, err)
		}
		list, err = logs.List(ctx, LogFilter{Status: models.WebhookIgnored})
		if err != nil || len(list) != 1 || list[0].ID != other.ID {
			t.Fatalf("List by status = %+v, %v", list, err)
		}

		if _, err := logs.Get(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("malformed id: %v", err)
		}
	})
}
