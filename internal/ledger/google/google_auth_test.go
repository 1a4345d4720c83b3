package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const installedClient = `{"installed":{
	"client_id":"client.apps.googleusercontent.com",
	"client_secret":"secret",
	"auth_uri":"https://accounts.google.com/o/oauth2/auth",
	"token_uri":"https://oauth2.googleapis.com/token",
	"redirect_uris":["http://localhost"]
}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(installedClient))
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "client.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "spreadsheets") {
		t.Errorf("Scopes = %v", cfg.Scopes)
	}

	if _, err := OAuthConfig([]byte(`{"web":`)); err == nil {
		t.Error("expected error for malformed client")
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %v, want 0600", perm)
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.RefreshToken != want.RefreshToken || got.AccessToken != want.AccessToken || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("LoadToken = %+v, want %+v", got, want)
	}
}

func TestLoadToken_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken(path); err == nil {
		t.Error("expected error for a token without credentials")
	}
}

func TestAuthOptions(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")
	if err := SaveToken(tokenPath, &oauth2.Token{RefreshToken: "refresh"}); err != nil {
		t.Fatal(err)
	}
	clientPath := filepath.Join(dir, "client.json")
	if err := os.WriteFile(clientPath, []byte(installedClient), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		opts       Options
		wantMethod string
		wantErr    string
	}{
		{"service account json", Options{CredentialsJSON: []byte(`{"type":"service_account"}`)}, "service_account", ""},
		{"missing service account file", Options{CredentialsFile: filepath.Join(dir, "missing.json")}, "", "read service account file"},
		{"oauth client file", Options{OAuthClientFile: clientPath, OAuthTokenFile: tokenPath}, "oauth", ""},
		{"oauth client json", Options{OAuthClientJSON: []byte(installedClient), OAuthTokenFile: tokenPath}, "oauth", ""},
		{"oauth without client", Options{OAuthTokenFile: tokenPath}, "", "missing OAuth client"},
		{"oauth token missing", Options{OAuthClientJSON: []byte(installedClient), OAuthTokenFile: filepath.Join(dir, "nope.json")}, "", "read OAuth token"},
		{"nothing", Options{}, "", "missing service account credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, method, err := authOptions(context.Background(), tt.opts)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if method != tt.wantMethod {
				t.Errorf("method = %q, want %q", method, tt.wantMethod)
			}
			if len(opts) == 0 {
				t.Error("expected client options")
			}
		})
	}
}

func TestNew_RequiresSpreadsheet(t *testing.T) {
	if _, err := New(context.Background(), Options{CredentialsJSON: []byte(`{}`)}); err == nil {
		t.Error("expected error without spreadsheet id")
	}
}
