package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbwebsolutions/datasender/pkg/config"
	"github.com/kbwebsolutions/datasender/pkg/enums"
)

func newTokenServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		if r.FormValue("grant_type") != "password" {
			t.Errorf("unexpected grant type %q", r.FormValue("grant_type"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok-123",
			"token_type":   "Bearer",
		})
	}))
}

func TestCallSendsBearerAndJSONBody(t *testing.T) {
	var tokenCalls int32
	tokenSrv := newTokenServer(t, &tokenCalls)
	defer tokenSrv.Close()

	var gotMethod, gotAuth string
	var gotBody map[string]any
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer apiSrv.Close()

	client, err := NewClient(config.CRMConfig{
		BaseURL:  apiSrv.URL,
		TokenURL: tokenSrv.URL,
		Timeout:  5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	payload := map[string]any{"Course__c": "ID01"}
	err = client.Call(context.Background(), apiSrv.URL+"/services/data/v53.0/sobjects/Quiz__c",
		enums.DispatchPostJSON, payload, "quiz attempt for johnsmith")
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["Course__c"] != "ID01" {
		t.Fatalf("payload not delivered: %v", gotBody)
	}
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	var tokenCalls int32
	tokenSrv := newTokenServer(t, &tokenCalls)
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer apiSrv.Close()

	client, err := NewClient(config.CRMConfig{BaseURL: apiSrv.URL, TokenURL: tokenSrv.URL}, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := client.Call(context.Background(), apiSrv.URL+"/x", enums.DispatchPatch, map[string]string{}, "update"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if atomic.LoadInt32(&tokenCalls) != 1 {
		t.Fatalf("expected one token fetch, got %d", tokenCalls)
	}
}

func TestCallFollowsInstanceURL(t *testing.T) {
	instanceSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/data/v53.0/sobjects/Quiz__c" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer instanceSrv.Close()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok-123",
			"instance_url": instanceSrv.URL + "/",
		})
	}))
	defer tokenSrv.Close()

	base := "https://login.crm.example"
	client, err := NewClient(config.CRMConfig{BaseURL: base, TokenURL: tokenSrv.URL}, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	err = client.Call(context.Background(), base+"/services/data/v53.0/sobjects/Quiz__c",
		enums.DispatchPostJSON, map[string]string{"Course__c": "ID01"}, "quiz attempt")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
}

func TestRemoteRejectionSurfacesAsError(t *testing.T) {
	var tokenCalls int32
	tokenSrv := newTokenServer(t, &tokenCalls)
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"INVALID_FIELD"}`, http.StatusBadRequest)
	}))
	defer apiSrv.Close()

	client, err := NewClient(config.CRMConfig{BaseURL: apiSrv.URL, TokenURL: tokenSrv.URL}, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	if err := client.Call(context.Background(), apiSrv.URL+"/x", enums.DispatchPostJSON, map[string]string{}, "create"); err == nil {
		t.Fatalf("expected error for remote rejection")
	}
}

func TestCallRejectsUnknownMethod(t *testing.T) {
	client, err := NewClient(config.CRMConfig{BaseURL: "https://crm.example.com"}, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := client.Call(context.Background(), "https://crm.example.com/x", enums.DispatchMethod("DELETE"), nil, "x"); err == nil {
		t.Fatalf("expected method validation error")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(config.CRMConfig{}, nil); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}
