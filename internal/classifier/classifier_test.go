package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohits-web03/estately/internal/config"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		concepts []Concept
		want     bool
	}{
		{"allowed above threshold", []Concept{{"dog", 0.99}, {"interior design", 0.95}}, true},
		{"allowed at threshold", []Concept{{"house", 0.9}}, false},
		{"not allowed", []Concept{{"car", 0.99}}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.concepts, 0.9); got.Accepted != tt.want {
				t.Fatalf("Accepted = %v, want %v", got.Accepted, tt.want)
			}
		})
	}
}

func TestClarifaiClassify(t *testing.T) {
	var gotAuth, gotURL, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		var req clarifaiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Inputs) == 1 {
			gotURL = req.Inputs[0].Data.Image.URL
		}
		concept := "car"
		if gotURL == "https://img.example.com/house.jpg" {
			concept = "house"
		}
		_, _ = w.Write([]byte(`{"status":{"code":10000},"outputs":[{"data":{"concepts":[{"name":"` + concept + `","value":0.97}]}}]}`))
	}))
	defer srv.Close()

	c := NewClarifai(config.ClassifierConfig{
		PAT: "secret", BaseURL: srv.URL, ModelID: "m", ModelVersion: "v", Threshold: 0.9,
	})

	v, err := c.Classify(context.Background(), "https://img.example.com/house.jpg")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !v.Accepted || v.Concept != "house" {
		t.Fatalf("verdict = %+v", v)
	}
	if gotAuth != "Key secret" || gotPath != "/v2/models/m/versions/v/outputs" {
		t.Fatalf("auth=%q path=%q", gotAuth, gotPath)
	}

	v, err = c.Classify(context.Background(), "https://img.example.com/car.jpg")
	if err != nil || v.Accepted {
		t.Fatalf("car verdict = %+v, err = %v", v, err)
	}
}

func TestClarifaiUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClarifai(config.ClassifierConfig{PAT: "x", BaseURL: srv.URL, ModelID: "m", ModelVersion: "v"})
	if _, err := c.Classify(context.Background(), "https://img.example.com/a.jpg"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewWithoutPATAcceptsAll(t *testing.T) {
	c := New(config.ClassifierConfig{}, nil)
	v, err := c.Classify(context.Background(), "anything")
	if err != nil || !v.Accepted {
		t.Fatalf("verdict = %+v, err = %v", v, err)
	}
}
