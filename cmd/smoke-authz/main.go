package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Smoke test against a running tessera-api: logs in, lists available
// roles, activates one and verifies the resolved context matches the
// activated grant.

type tokenResponse struct {
	Token string `json:"token"`
}

type grant struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type grantList struct {
	Items []grant `json:"items"`
}

type roleContext struct {
	GrantID string `json:"grant_id"`
	Role    string `json:"role"`
}

type contextResponse struct {
	HasActiveRole bool         `json:"has_active_role"`
	Context       *roleContext `json:"context"`
}

func main() {
	base := os.Getenv("TESSERA_API_ADDR")
	if base == "" {
		base = "http://localhost:8080"
	}
	email := os.Getenv("TESSERA_SMOKE_EMAIL")
	password := os.Getenv("TESSERA_SMOKE_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("TESSERA_SMOKE_EMAIL and TESSERA_SMOKE_PASSWORD are required")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	var tok tokenResponse
	call(client, http.MethodPost, base+"/v1/auth/token", "", map[string]string{
		"email":    email,
		"password": password,
	}, &tok, http.StatusOK)
	if tok.Token == "" {
		log.Fatal("login returned no token")
	}

	var roles grantList
	call(client, http.MethodGet, base+"/v1/me/roles", tok.Token, nil, &roles, http.StatusOK)
	if len(roles.Items) == 0 {
		log.Fatal("smoke user has no available roles")
	}
	target := roles.Items[0]

	call(client, http.MethodPut, base+"/v1/me/active-role", tok.Token, map[string]string{
		"grant_id": target.ID,
	}, nil, http.StatusNoContent)

	var rc contextResponse
	call(client, http.MethodGet, base+"/v1/me/context", tok.Token, nil, &rc, http.StatusOK)
	if !rc.HasActiveRole || rc.Context == nil {
		log.Fatal("context missing after activation")
	}
	if rc.Context.GrantID != target.ID || rc.Context.Role != target.Role {
		log.Fatalf("context mismatch: got %+v, want grant %s role %s", rc.Context, target.ID, target.Role)
	}

	fmt.Printf("✅ authz smoke test passed: role=%s grant=%s\n", target.Role, target.ID)
}

func call(client *http.Client, method, url, token string, body any, out any, wantStatus int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("encode %s: %v", url, err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		log.Fatalf("request %s: %v", url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: status %d, want %d", method, url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s: %v", url, err)
		}
	}
}
