// trip-smoke drives the trip service end to end against a running instance:
// guest actor, group, invite join, availability submission, summary, claim.
// Intended for local stacks; it mints its own HS256 token.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lmeineke/tripsync/libs/auth"
)

func main() {
	var (
		baseURL = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "trip service base url")
		secret  = flag.String("secret", getenv("AUTH_HS256_SECRET", ""), "HS256 signing secret the service runs with")
		name    = flag.String("group-name", "Smoke test trip", "group name to create")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("AUTH_HS256_SECRET is required")
	}
	base := strings.TrimRight(*baseURL, "/")

	owner := call(http.MethodPost, base+"/api/actors", nil, nil)
	ownerID := owner["actorId"].(string)
	fmt.Printf("actor=%s\n", ownerID)

	group := call(http.MethodPost, base+"/api/groups",
		map[string]string{"name": *name, "displayName": "Smoke Owner"},
		map[string]string{"X-Actor-Id": ownerID})
	groupID := group["id"].(string)
	fmt.Printf("group=%s invite=%s\n", groupID, group["inviteLink"])

	joiner := call(http.MethodPost, base+"/api/actors", nil, nil)
	joinerID := joiner["actorId"].(string)
	join := call(http.MethodPost, base+"/api/groups/"+groupID+"/join",
		map[string]string{"displayName": "Smoke Joiner"},
		map[string]string{"X-Actor-Id": joinerID})
	fmt.Printf("joined member=%s\n", join["memberId"])

	call(http.MethodPost, base+"/api/groups/"+groupID+"/availabilities",
		map[string]string{"from": "2025-08-15", "to": "2025-09-09"},
		map[string]string{"X-Actor-Id": ownerID})
	call(http.MethodPost, base+"/api/groups/"+groupID+"/availabilities",
		map[string]string{"from": "2025-08-20", "to": "2025-08-25"},
		map[string]string{"X-Actor-Id": joinerID})

	summary := callList(http.MethodGet, base+"/api/groups/"+groupID+"/availability-summary",
		map[string]string{"X-Actor-Id": ownerID})
	for _, row := range summary {
		fmt.Printf("summary %v..%v count=%v/%v\n", row["from"], row["to"], row["availableCount"], row["totalMembers"])
	}

	token, err := auth.SignHS256(auth.Claims{
		Sub:          "smoke-user",
		Email:        "smoke@example.com",
		UserMetadata: auth.UserMetadata{FullName: "Smoke User"},
		Exp:          time.Now().Add(time.Hour).Unix(),
		Iat:          time.Now().Unix(),
	}, *secret)
	if err != nil {
		fatal(err.Error())
	}
	claim := call(http.MethodPost, base+"/api/auth/claim",
		map[string]string{"actorId": ownerID},
		map[string]string{"Authorization": "Bearer " + token})
	fmt.Printf("claimed user=%v memberships=%v\n", claim["userId"], claim["updatedMemberships"])
}

func call(method, url string, body any, headers map[string]string) map[string]any {
	var out map[string]any
	doJSON(method, url, body, headers, &out)
	return out
}

func callList(method, url string, headers map[string]string) []map[string]any {
	var out []map[string]any
	doJSON(method, url, nil, headers, &out)
	return out
}

func doJSON(method, url string, body any, headers map[string]string, out any) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			fatal(err.Error())
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		fatal(fmt.Sprintf("%s %s -> %d", method, url, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		fatal(err.Error())
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error:", msg)
	os.Exit(1)
}
