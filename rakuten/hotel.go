package rakuten

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Travel ranking genres.
const (
	GenreAll     = "all"
	GenreOnsen   = "onsen"
	GenrePremium = "premium"
)

// ValidGenre reports whether g is a supported travel ranking genre.
func ValidGenre(g string) bool {
	switch g {
	case GenreAll, GenreOnsen, GenrePremium:
		return true
	}
	return false
}

type rawHotel struct {
	HotelName           string      `json:"hotelName"`
	HotelInformationURL string      `json:"hotelInformationUrl"`
	HotelMinCharge      json.Number `json:"hotelMinCharge"`
}

func (r rawHotel) normalize() Hotel {
	return Hotel{
		Name:      r.HotelName,
		URL:       r.HotelInformationURL,
		MinCharge: numberToInt(r.HotelMinCharge),
	}
}

// HotelRanking returns the travel ranking for one genre. The API has served
// two envelope shapes over time, a bare list of hotel objects or each hotel
// wrapped once more in a single-key container, so both are accepted.
func (c *Client) HotelRanking(ctx context.Context, genre string) ([]Hotel, error) {
	if genre == "" {
		genre = GenreAll
	}
	if !ValidGenre(genre) {
		return []Hotel{}, fmt.Errorf("unknown genre %q", genre)
	}

	params := url.Values{}
	params.Set("applicationId", c.appID)
	params.Set("genre", genre)
	params.Set("format", "json")

	body, err := c.get(ctx, c.hotelURL, params)
	if err != nil {
		return []Hotel{}, err
	}

	var envelope struct {
		Hotels []json.RawMessage `json:"hotels"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return []Hotel{}, fmt.Errorf("unexpected response payload: %w", err)
	}

	hotels := make([]Hotel, 0, len(envelope.Hotels))
	for _, raw := range envelope.Hotels {
		hotel, err := unwrapHotel(raw)
		if err != nil {
			return []Hotel{}, fmt.Errorf("unexpected response payload: %w", err)
		}
		hotels = append(hotels, hotel.normalize())
	}
	return hotels, nil
}

func unwrapHotel(raw json.RawMessage) (rawHotel, error) {
	var wrapper struct {
		Hotel *rawHotel `json:"hotel"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Hotel != nil {
		return *wrapper.Hotel, nil
	}

	var hotel rawHotel
	if err := json.Unmarshal(raw, &hotel); err != nil {
		return rawHotel{}, err
	}
	return hotel, nil
}
