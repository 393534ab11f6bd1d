package http_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func createEvent(t *testing.T, env *testEnv, tok, body string) string {
	t.Helper()
	w := env.do("POST", "/api/events", body, tok)
	if w.Code != 201 {
		t.Fatalf("create event: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Event struct {
			ID string `json:"id"`
		} `json:"event"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Event.ID == "" {
		t.Fatalf("no event id: %s", w.Body.String())
	}
	return resp.Event.ID
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(time.RFC3339)
}

func Test_Event_Create_Defaults(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	_, tok := env.register("Alice", "alice@example.com", "StrongPass1")

	id := createEvent(t, env, tok,
		`{"title":"Boba run","event_dates":[{"date":"`+futureDate(1)+`","is_all_day":true}]}`)

	w := env.do("GET", "/api/events/"+id, "", tok)
	if w.Code != 200 {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Event struct {
			Status     string `json:"status"`
			Visibility string `json:"visibility"`
			Timezone   string `json:"timezone"`
			Attendees  []struct {
				Email  string `json:"email"`
				Status string `json:"status"`
			} `json:"attendees"`
		} `json:"event"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	e := resp.Event
	if e.Status != "scheduled" || e.Visibility != "private" || e.Timezone != "UTC" {
		t.Fatalf("defaults: %s", w.Body.String())
	}
	// the creator is seeded as an accepted attendee
	if len(e.Attendees) != 1 || e.Attendees[0].Email != "alice@example.com" || e.Attendees[0].Status != "accepted" {
		t.Fatalf("creator attendee: %s", w.Body.String())
	}
}

func Test_Event_Create_Validation(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	_, tok := env.register("Alice", "alice@example.com", "StrongPass1")

	cases := []string{
		`{"event_dates":[{"date":"` + futureDate(1) + `"}]}`, // no title
		`{"title":"No dates"}`,
		`{"title":"Bad status","status":"maybe","event_dates":[{"date":"` + futureDate(1) + `"}]}`,
		`{"title":"Bad vis","visibility":"secret","event_dates":[{"date":"` + futureDate(1) + `"}]}`,
	}
	for _, body := range cases {
		w := env.do("POST", "/api/events", body, tok)
		if w.Code != 400 {
			t.Fatalf("expected 400 for %s, got %d %s", body, w.Code, w.Body.String())
		}
	}
}

func Test_Event_Visibility(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	_, aliceTok := env.register("Alice", "alice@example.com", "StrongPass1")
	_, bobTok := env.register("Bob", "bob@example.com", "StrongPass1")

	privID := createEvent(t, env, aliceTok,
		`{"title":"Private","event_dates":[{"date":"`+futureDate(1)+`"}]}`)
	pubID := createEvent(t, env, aliceTok,
		`{"title":"Public","visibility":"public","event_dates":[{"date":"`+futureDate(1)+`"}]}`)

	w := env.do("GET", "/api/events/"+privID, "", bobTok)
	if w.Code != 403 {
		t.Fatalf("private to outsider: %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/api/events/"+pubID, "", bobTok)
	if w.Code != 200 {
		t.Fatalf("public to outsider: %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/api/events/ffffffffffffffffffffffff", "", bobTok)
	if w.Code != 404 {
		t.Fatalf("missing event: %d %s", w.Code, w.Body.String())
	}
}

func Test_Event_Update_Delete_CreatorOnly(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	_, aliceTok := env.register("Alice", "alice@example.com", "StrongPass1")
	_, bobTok := env.register("Bob", "bob@example.com", "StrongPass1")

	id := createEvent(t, env, aliceTok,
		`{"title":"Original","visibility":"public","event_dates":[{"date":"`+futureDate(1)+`"}]}`)

	w := env.do("PATCH", "/api/events/"+id, `{"title":"Hijacked"}`, bobTok)
	if w.Code != 403 {
		t.Fatalf("update by outsider: %d %s", w.Code, w.Body.String())
	}

	w = env.do("PATCH", "/api/events/"+id, `{"title":"Renamed","status":"confirmed"}`, aliceTok)
	if w.Code != 200 {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Event struct {
			Title  string `json:"title"`
			Status string `json:"status"`
		} `json:"event"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Event.Title != "Renamed" || resp.Event.Status != "confirmed" {
		t.Fatalf("update payload: %s", w.Body.String())
	}

	w = env.do("DELETE", "/api/events/"+id, "", bobTok)
	if w.Code != 403 {
		t.Fatalf("delete by outsider: %d %s", w.Code, w.Body.String())
	}
	w = env.do("DELETE", "/api/events/"+id, "", aliceTok)
	if w.Code != 204 {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/api/events/"+id, "", aliceTok)
	if w.Code != 404 {
		t.Fatalf("get after delete: %d %s", w.Code, w.Body.String())
	}
}

func Test_Event_Attendees(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	aliceID, aliceTok := env.register("Alice", "alice@example.com", "StrongPass1")
	bobID, bobTok := env.register("Bob", "bob@example.com", "StrongPass1")
	_, carolTok := env.register("Carol", "carol@example.com", "StrongPass1")

	id := createEvent(t, env, aliceTok,
		`{"title":"Tea party","event_dates":[{"date":"`+futureDate(2)+`"}]}`)

	// only the creator may invite
	w := env.do("POST", "/api/events/"+id+"/attendees", `{"userId":"`+bobID+`"}`, carolTok)
	if w.Code != 403 {
		t.Fatalf("invite by outsider: %d %s", w.Code, w.Body.String())
	}

	w = env.do("POST", "/api/events/"+id+"/attendees", `{"userId":"`+bobID+`"}`, aliceTok)
	if w.Code != 200 {
		t.Fatalf("invite: %d %s", w.Code, w.Body.String())
	}

	// inviting the same user again is a quiet success, no duplicate entry
	w = env.do("POST", "/api/events/"+id+"/attendees", `{"userId":"`+bobID+`"}`, aliceTok)
	if w.Code != 200 {
		t.Fatalf("re-invite: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Event struct {
			Attendees []struct {
				Email  string `json:"email"`
				Status string `json:"status"`
			} `json:"attendees"`
		} `json:"event"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Event.Attendees) != 2 {
		t.Fatalf("attendee count: %s", w.Body.String())
	}

	// re-adding the creator is also a no-op
	w = env.do("POST", "/api/events/"+id+"/attendees", `{"userId":"`+aliceID+`"}`, aliceTok)
	if w.Code != 200 {
		t.Fatalf("re-add creator: %d %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Event.Attendees) != 2 {
		t.Fatalf("creator duplicated: %s", w.Body.String())
	}

	// an email-only guest
	w = env.do("POST", "/api/events/"+id+"/attendees", `{"email":"guest@example.com"}`, aliceTok)
	if w.Code != 200 {
		t.Fatalf("email invite: %d %s", w.Code, w.Body.String())
	}

	// missing user is a 404
	w = env.do("POST", "/api/events/"+id+"/attendees", `{"userId":"ffffffffffffffffffffffff"}`, aliceTok)
	if w.Code != 404 {
		t.Fatalf("invite missing user: %d %s", w.Code, w.Body.String())
	}

	// bob, invited, can now see the private event and answer
	w = env.do("GET", "/api/events/"+id, "", bobTok)
	if w.Code != 200 {
		t.Fatalf("attendee get: %d %s", w.Code, w.Body.String())
	}
	w = env.do("PATCH", "/api/events/"+id+"/attendees/status", `{"status":"accepted"}`, bobTok)
	if w.Code != 200 {
		t.Fatalf("rsvp: %d %s", w.Code, w.Body.String())
	}

	// carol is not on the list: strict 403
	w = env.do("PATCH", "/api/events/"+id+"/attendees/status", `{"status":"accepted"}`, carolTok)
	if w.Code != 403 {
		t.Fatalf("rsvp by non-attendee: %d %s", w.Code, w.Body.String())
	}

	// bogus status
	w = env.do("PATCH", "/api/events/"+id+"/attendees/status", `{"status":"maybe"}`, bobTok)
	if w.Code != 400 {
		t.Fatalf("bad rsvp status: %d %s", w.Code, w.Body.String())
	}
}

func Test_Event_List_And_Upcoming(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	_, aliceTok := env.register("Alice", "alice@example.com", "StrongPass1")
	bobID, bobTok := env.register("Bob", "bob@example.com", "StrongPass1")

	createEvent(t, env, aliceTok,
		`{"title":"Soon","event_dates":[{"date":"`+futureDate(1)+`"}]}`)
	createEvent(t, env, aliceTok,
		`{"title":"Later","status":"confirmed","event_dates":[{"date":"`+futureDate(10)+`"}]}`)
	cancelledID := createEvent(t, env, aliceTok,
		`{"title":"Cancelled","event_dates":[{"date":"`+futureDate(3)+`"}]}`)
	w := env.do("PATCH", "/api/events/"+cancelledID, `{"status":"cancelled"}`, aliceTok)
	if w.Code != 200 {
		t.Fatalf("cancel: %d %s", w.Code, w.Body.String())
	}

	shared := createEvent(t, env, aliceTok,
		`{"title":"Shared","event_dates":[{"date":"`+futureDate(5)+`"}]}`)
	w = env.do("POST", "/api/events/"+shared+"/attendees", `{"userId":"`+bobID+`"}`, aliceTok)
	if w.Code != 200 {
		t.Fatalf("invite: %d %s", w.Code, w.Body.String())
	}

	var list struct {
		Events []struct {
			Title string `json:"title"`
		} `json:"events"`
		Count int `json:"count"`
	}

	w = env.do("GET", "/api/events", "", aliceTok)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 4 {
		t.Fatalf("alice events: %s", w.Body.String())
	}

	// bob sees only the event he is invited to
	w = env.do("GET", "/api/events", "", bobTok)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 || list.Events[0].Title != "Shared" {
		t.Fatalf("bob events: %s", w.Body.String())
	}

	// status filter
	w = env.do("GET", "/api/events?status=confirmed", "", aliceTok)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 || list.Events[0].Title != "Later" {
		t.Fatalf("status filter: %s", w.Body.String())
	}

	// date range keeps only the near event
	from := time.Now().UTC().Format("2006-01-02")
	to := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
	w = env.do("GET", "/api/events?startDate="+from+"&endDate="+to, "", aliceTok)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 || list.Events[0].Title != "Soon" {
		t.Fatalf("date filter: %s", w.Body.String())
	}

	// a range with nothing in it is an empty list, not an error
	w = env.do("GET", "/api/events?startDate=2020-01-01&endDate=2020-01-31", "", aliceTok)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if w.Code != 200 || list.Count != 0 {
		t.Fatalf("empty range: %d %s", w.Code, w.Body.String())
	}

	// upcoming skips cancelled, earliest first, limit applies
	w = env.do("GET", "/api/events/upcoming", "", aliceTok)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 3 || list.Events[0].Title != "Soon" {
		t.Fatalf("upcoming: %s", w.Body.String())
	}
	w = env.do("GET", "/api/events/upcoming?limit=1", "", aliceTok)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 {
		t.Fatalf("upcoming limit: %s", w.Body.String())
	}
}

func Test_GoogleCalendarConsent(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	_, tok := env.register("Alice", "alice@example.com", "StrongPass1")

	w := env.do("GET", "/api/events/google/consent", "", "")
	if w.Code != 401 {
		t.Fatalf("consent without token: %d", w.Code)
	}

	w = env.do("GET", "/api/events/google/consent", "", tok)
	if w.Code != 200 {
		t.Fatalf("consent: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		URL   string `json:"url"`
		State string `json:"state"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.State == "" {
		t.Fatalf("no state: %s", w.Body.String())
	}
	for _, want := range []string{
		"client_id=test-client",
		"calendar.events",
		"state=" + resp.State,
		"access_type=offline",
	} {
		if !strings.Contains(resp.URL, want) {
			t.Fatalf("consent url missing %q: %s", want, resp.URL)
		}
	}
}

func Test_Event_SyncGoogle(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	_, aliceTok := env.register("Alice", "alice@example.com", "StrongPass1")
	_, bobTok := env.register("Bob", "bob@example.com", "StrongPass1")

	id := createEvent(t, env, aliceTok,
		`{"title":"Synced","event_dates":[{"date":"`+futureDate(1)+`"}]}`)

	w := env.do("POST", "/api/events/"+id+"/sync-google", "", bobTok)
	if w.Code != 403 {
		t.Fatalf("sync by outsider: %d %s", w.Code, w.Body.String())
	}

	w = env.do("POST", "/api/events/"+id+"/sync-google", "", aliceTok)
	if w.Code != 200 {
		t.Fatalf("sync: %d %s", w.Code, w.Body.String())
	}
	var first struct {
		CalendarID string `json:"calendar_id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &first)
	if first.CalendarID != "primary" {
		t.Fatalf("calendar id: %s", w.Body.String())
	}

	// idempotent: a second sync keeps the existing link
	w = env.do("POST", "/api/events/"+id+"/sync-google", "", aliceTok)
	if w.Code != 200 {
		t.Fatalf("re-sync: %d %s", w.Code, w.Body.String())
	}
}
