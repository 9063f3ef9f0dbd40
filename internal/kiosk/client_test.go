package kiosk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openvisit/visitor-portal/internal/model"
)

func TestClientResolveByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/visitors/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]model.Visitor{
			"visitor": {ID: 42, FirstName: "Ada", LastName: "Lovelace"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	v, err := c.ResolveByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v.ID != 42 || v.FirstName != "Ada" {
		t.Errorf("visitor = %+v", v)
	}
}

func TestClientResolveMissAndTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"visitor not found"}`, http.StatusNotFound)
	}))
	c := NewClient(srv.URL, srv.Client())
	if _, err := c.ResolveByID(context.Background(), 99); err != ErrNotFound {
		t.Errorf("404 err = %v, want ErrNotFound", err)
	}
	if _, err := c.ResolveByPhoneYear(context.Background(), "0812345678", 1990); err != ErrNotFound {
		t.Errorf("404 lookup err = %v, want ErrNotFound", err)
	}

	// A dead server folds into the same outcome per the failure
	// taxonomy: route to the manual form.
	srv.Close()
	if _, err := c.ResolveByPhoneYear(context.Background(), "0812345678", 1990); err != ErrNotFound {
		t.Errorf("transport err = %v, want ErrNotFound", err)
	}
}

func TestClientCheckInNewSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/visitors/check-in" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var payload NewVisitorPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Phone != "0812345678" {
			t.Errorf("payload phone = %q", payload.Phone)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.VisitorVisit{
			Visitor: model.Visitor{ID: 5},
			Visit:   model.Visit{ID: 9, VisitorID: 5, CheckedInAt: time.Now().UTC()},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	pair, err := c.CheckInNew(context.Background(), NewVisitorPayload{Phone: "0812345678"})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if pair.Visitor.ID != 5 || pair.Visit.ID != 9 {
		t.Errorf("pair = %+v", pair)
	}
}

func TestClientCheckInConflictCarriesPair(t *testing.T) {
	nine := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(model.VisitorVisit{
			Visitor: model.Visitor{ID: 42},
			Visit:   model.Visit{ID: 7, VisitorID: 42, CheckedInAt: nine},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	pair, err := c.CheckInReturning(context.Background(), 42)
	if err != ErrDuplicateVisit {
		t.Fatalf("err = %v, want ErrDuplicateVisit", err)
	}
	if pair.Visit.ID != 7 || !pair.Visit.CheckedInAt.Equal(nine) {
		t.Errorf("conflict pair = %+v, want existing visit 7 at %v", pair, nine)
	}
}

func TestClientCheckInConflictMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	if _, err := c.CheckInReturning(context.Background(), 42); err != ErrMalformedResponse {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestClientActiveVisitAndCheckOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/visitors/42/active-visit":
			json.NewEncoder(w).Encode(model.VisitorVisit{
				Visitor: model.Visitor{ID: 42},
				Visit:   model.Visit{ID: 7, VisitorID: 42},
			})
		case "/api/visits/7/check-out":
			json.NewEncoder(w).Encode(map[string]model.Visit{"visit": {ID: 7}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	pair, err := c.ActiveVisit(context.Background(), 42)
	if err != nil {
		t.Fatalf("active visit: %v", err)
	}
	if pair.Visit.ID != 7 {
		t.Errorf("pair = %+v", pair)
	}
	if err := c.CheckOut(context.Background(), 7); err != nil {
		t.Fatalf("check out: %v", err)
	}
	if err := c.CheckOut(context.Background(), 999); err != ErrNotFound {
		t.Errorf("check out missing visit err = %v, want ErrNotFound", err)
	}
}
