package status

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkmn-tools/shinyhunt-go/encounterlog"
	"github.com/pkmn-tools/shinyhunt-go/hunt"
)

// Mock implementations for testing

type MockHunter struct {
	status hunt.Status
}

func (m *MockHunter) Status() hunt.Status {
	return m.status
}

type MockHistory struct {
	records []encounterlog.Record
	count   int
	shinies int
	fail    bool
}

func (m *MockHistory) Recent(limit int) ([]encounterlog.Record, error) {
	if m.fail {
		return nil, errors.New("disk exploded")
	}
	if limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *MockHistory) Count() (int, error) {
	if m.fail {
		return 0, errors.New("disk exploded")
	}
	return m.count, nil
}

func (m *MockHistory) ShinyCount() (int, error) {
	if m.fail {
		return 0, errors.New("disk exploded")
	}
	return m.shinies, nil
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := NewServer(&MockHunter{}, nil, nil)
	rec := doRequest(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	hunter := &MockHunter{status: hunt.Status{
		Mode:           "walk_to_grass",
		EncountersSeen: 42,
		ShinyFound:     false,
	}}
	history := &MockHistory{count: 1042, shinies: 2}
	s := NewServer(hunter, history, nil)

	rec := doRequest(t, s, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse status response: %v", err)
	}
	if body["mode"] != "walk_to_grass" {
		t.Errorf("Expected mode walk_to_grass, got %v", body["mode"])
	}
	if body["encounters_seen"] != float64(42) {
		t.Errorf("Expected encounters_seen 42, got %v", body["encounters_seen"])
	}
	if body["total_recorded"] != float64(1042) {
		t.Errorf("Expected total_recorded 1042, got %v", body["total_recorded"])
	}
	if body["total_shiny"] != float64(2) {
		t.Errorf("Expected total_shiny 2, got %v", body["total_shiny"])
	}
}

func TestStatusEndpointWithoutHistory(t *testing.T) {
	s := NewServer(&MockHunter{status: hunt.Status{Mode: "idle"}}, nil, nil)

	rec := doRequest(t, s, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse status response: %v", err)
	}
	if _, present := body["total_recorded"]; present {
		t.Error("total_recorded must be omitted without a history store")
	}
}

func TestStatusEndpointSurvivesHistoryFailure(t *testing.T) {
	s := NewServer(&MockHunter{}, &MockHistory{fail: true}, nil)

	rec := doRequest(t, s, "/api/status")
	if rec.Code != http.StatusOK {
		t.Errorf("Status must degrade gracefully on history failure, got %d", rec.Code)
	}
}

func TestEncountersEndpoint(t *testing.T) {
	history := &MockHistory{records: []encounterlog.Record{
		{Ordinal: 2, Species: 5, Shiny: true, SeenAt: time.Now().UTC()},
		{Ordinal: 1, Species: 16, SeenAt: time.Now().UTC()},
	}}
	s := NewServer(&MockHunter{}, history, nil)

	rec := doRequest(t, s, "/api/encounters")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Encounters []encounterlog.Record `json:"encounters"`
		Count      int                   `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse encounters response: %v", err)
	}
	if body.Count != 2 || len(body.Encounters) != 2 {
		t.Fatalf("Expected 2 encounters, got %+v", body)
	}
	if body.Encounters[0].Ordinal != 2 || !body.Encounters[0].Shiny {
		t.Errorf("Unexpected first encounter: %+v", body.Encounters[0])
	}
}

func TestEncountersEndpointLimit(t *testing.T) {
	history := &MockHistory{records: []encounterlog.Record{
		{Ordinal: 3}, {Ordinal: 2}, {Ordinal: 1},
	}}
	s := NewServer(&MockHunter{}, history, nil)

	rec := doRequest(t, s, "/api/encounters?limit=2")
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse encounters response: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("Expected limit to apply, got count %d", body.Count)
	}

	rec = doRequest(t, s, "/api/encounters?limit=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", rec.Code)
	}
	rec = doRequest(t, s, "/api/encounters?limit=-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative limit, got %d", rec.Code)
	}
}

func TestEncountersEndpointWithoutHistory(t *testing.T) {
	s := NewServer(&MockHunter{}, nil, nil)
	rec := doRequest(t, s, "/api/encounters")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without history store, got %d", rec.Code)
	}
}

func TestEncountersEndpointQueryFailure(t *testing.T) {
	s := NewServer(&MockHunter{}, &MockHistory{fail: true}, nil)
	rec := doRequest(t, s, "/api/encounters")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on query failure, got %d", rec.Code)
	}
}
