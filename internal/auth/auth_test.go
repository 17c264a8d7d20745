package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMintAndVerify(t *testing.T) {
	admin := New("test-secret", "platformd")

	token, err := admin.Mint()
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if err := admin.Verify(token); err != nil {
		t.Errorf("Verify rejected a freshly minted token: %v", err)
	}
}

func TestVerifyRejections(t *testing.T) {
	admin := New("test-secret", "platformd")
	token, err := admin.Mint()
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	tests := []struct {
		name  string
		admin *Admin
		token string
	}{
		{name: "wrong secret", admin: New("other-secret", "platformd"), token: token},
		{name: "wrong issuer", admin: New("test-secret", "other"), token: token},
		{name: "garbage", admin: admin, token: "not.a.token"},
		{name: "empty", admin: admin, token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.admin.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	admin := New("test-secret", "platformd")
	token, err := admin.Mint()
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	called := false
	handler := admin.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if wantCalled := tt.wantStatus == http.StatusOK; called != wantCalled {
				t.Errorf("handler called = %v, want %v", called, wantCalled)
			}
		})
	}
}
