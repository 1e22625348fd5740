package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLocateResolvesPublicIP(t *testing.T) {
	var requestedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"country": "United Kingdom",
			"countryCode": "GB",
			"regionName": "England",
			"city": "London",
			"timezone": "Europe/London",
			"isp": "Example ISP",
			"lat": 51.5074,
			"lon": -0.1278
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	loc, err := client.Locate(context.Background(), "81.2.69.142")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requestedPath != "/81.2.69.142" {
		t.Fatalf("unexpected request path %q", requestedPath)
	}
	if loc.Unknown {
		t.Fatal("expected a resolved location")
	}
	if loc.City != "London" || loc.CountryCode != "GB" {
		t.Fatalf("unexpected location %+v", loc)
	}
	if loc.Lat != 51.5074 || loc.Lon != -0.1278 {
		t.Fatalf("unexpected coordinates %f,%f", loc.Lat, loc.Lon)
	}
}

func TestLocateUpstreamFailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "fail", "message": "reserved range"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	loc, err := client.Locate(context.Background(), "192.88.99.1")
	if err == nil {
		t.Fatal("expected an error for fail status")
	}
	if !loc.Unknown {
		t.Fatal("failed lookup must return an unknown location")
	}
}

func TestLocateNon200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	loc, err := client.Locate(context.Background(), "8.8.8.8")
	if err == nil {
		t.Fatal("expected an error for non-200 status")
	}
	if !loc.Unknown {
		t.Fatal("failed lookup must return an unknown location")
	}
}

func TestLocatePrivateAddressesSkipLookup(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	for _, ip := range []string{"10.0.0.1", "192.168.1.5", "127.0.0.1", "169.254.0.9", "0.0.0.0", "::1"} {
		loc, err := client.Locate(context.Background(), ip)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", ip, err)
		}
		if !loc.Unknown {
			t.Fatalf("%s: expected unknown location", ip)
		}
	}
	if called {
		t.Fatal("private addresses must not hit the upstream")
	}
}

func TestLocateInvalidIP(t *testing.T) {
	client := NewClient("http://unused.invalid", time.Second)
	loc, err := client.Locate(context.Background(), "not-an-ip")
	if err == nil {
		t.Fatal("expected an error for an unparseable ip")
	}
	if !loc.Unknown {
		t.Fatal("expected unknown location")
	}
}
