package rakuten

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(serverURL string) *Client {
	c := NewClient("test-app-id", 2*time.Second)
	c.ichibaURL = serverURL
	c.booksURL = serverURL
	c.gamesURL = serverURL
	c.hotelURL = serverURL
	return c
}

func TestSearchEmptyKeywordSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	items, err := c.SearchIchiba(context.Background(), "", 5)
	if !errors.Is(err, ErrKeywordRequired) {
		t.Fatalf("expected ErrKeywordRequired, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty items, got %d", len(items))
	}
	if called {
		t.Error("empty keyword must not hit the network")
	}
}

func TestSearchIchibaNormalizesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("applicationId") != "test-app-id" {
			t.Errorf("missing applicationId: %v", q)
		}
		if q.Get("keyword") != "camera" {
			t.Errorf("keyword = %q", q.Get("keyword"))
		}
		w.Write([]byte(`{"Items":[{"Item":{"itemName":"Nice Camera","itemUrl":"https://example.com/1","itemPrice":19800}}]}`))
	}))
	defer srv.Close()

	items, err := testClient(srv.URL).SearchIchiba(context.Background(), "camera", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	want := Item{Name: "Nice Camera", URL: "https://example.com/1", Price: 19800}
	if items[0] != want {
		t.Errorf("got %+v, want %+v", items[0], want)
	}
}

func TestSearchGamesFieldFallbacks(t *testing.T) {
	// The games API mixes shapes: some entries have itemName/itemPrice,
	// others only title/price. Both must normalize to the common form.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Items":[
			{"Item":{"itemName":"Game A","itemUrl":"https://example.com/a","itemPrice":6500}},
			{"Item":{"title":"Game B","itemUrl":"https://example.com/b","price":5980}}
		]}`))
	}))
	defer srv.Close()

	items, err := testClient(srv.URL).SearchGames(context.Background(), "rpg", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name != "Game A" || items[0].Price != 6500 {
		t.Errorf("explicit fields lost: %+v", items[0])
	}
	if items[1].Name != "Game B" || items[1].Price != 5980 {
		t.Errorf("fallback fields not applied: %+v", items[1])
	}
}

func TestSearchUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	items, err := testClient(srv.URL).SearchBooks(context.Background(), "go", 5)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if len(items) != 0 {
		t.Errorf("expected empty items on failure, got %d", len(items))
	}
}

func TestSearchMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SearchBooks(context.Background(), "go", 5)
	if err == nil {
		t.Fatal("expected processing error")
	}
}

func TestHotelRankingBareEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g := r.URL.Query().Get("genre"); g != "onsen" {
			t.Errorf("genre = %q", g)
		}
		w.Write([]byte(`{"hotels":[
			{"hotelName":"Yu no Yado","hotelInformationUrl":"https://example.com/h1","hotelMinCharge":12000}
		]}`))
	}))
	defer srv.Close()

	hotels, err := testClient(srv.URL).HotelRanking(context.Background(), GenreOnsen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hotels) != 1 || hotels[0].Name != "Yu no Yado" || hotels[0].MinCharge != 12000 {
		t.Errorf("got %+v", hotels)
	}
}

func TestHotelRankingWrappedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hotels":[
			{"hotel":{"hotelName":"Grand Stay","hotelInformationUrl":"https://example.com/h2","hotelMinCharge":30000}}
		]}`))
	}))
	defer srv.Close()

	hotels, err := testClient(srv.URL).HotelRanking(context.Background(), GenrePremium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hotels) != 1 || hotels[0].Name != "Grand Stay" || hotels[0].MinCharge != 30000 {
		t.Errorf("got %+v", hotels)
	}
}

func TestHotelRankingUnknownGenre(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).HotelRanking(context.Background(), "luxury")
	if err == nil {
		t.Fatal("expected error for unknown genre")
	}
	if called {
		t.Error("unknown genre must not hit the network")
	}
}

func TestHotelRankingDefaultsToAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g := r.URL.Query().Get("genre"); g != GenreAll {
			t.Errorf("genre = %q, want all", g)
		}
		w.Write([]byte(`{"hotels":[]}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).HotelRanking(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
