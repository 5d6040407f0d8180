package portal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	phone := "555-0100"
	saved := Credentials{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		User: &User{
			ID:          "u1",
			Email:       "t@example.local",
			FirstName:   "Test",
			LastName:    "Tenant",
			Role:        RoleTenant,
			PhoneNumber: &phone,
		},
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("save error: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if loaded.Token != saved.Token || loaded.RefreshToken != saved.RefreshToken {
		t.Fatalf("tokens lost: %+v", loaded)
	}
	if loaded.User == nil || loaded.User.ID != "u1" || loaded.User.Role != RoleTenant {
		t.Fatalf("user lost: %+v", loaded.User)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	loaded, err = store.Load()
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if !loaded.Empty() {
		t.Fatalf("expected empty credentials after clear")
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	creds, err := store.Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if !creds.Empty() {
		t.Fatalf("expected empty credentials, got %+v", creds)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear of missing file must not error: %v", err)
	}
}

func TestFileStoreMalformedUserClears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	raw := `{"token":"access-1","refreshToken":"refresh-1","user":"{not json"}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write error: %v", err)
	}

	store := NewFileStore(path)
	creds, err := store.Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if !creds.Empty() {
		t.Fatalf("malformed user must read as absent, got %+v", creds)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("store not cleared on malformed user")
	}
}

func TestFileStoreCorruptFileClears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("write error: %v", err)
	}

	store := NewFileStore(path)
	creds, err := store.Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if !creds.Empty() {
		t.Fatalf("corrupt file must read as absent")
	}
}
