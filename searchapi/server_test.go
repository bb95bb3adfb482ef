package searchapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	goahttp "goa.design/goa/v3/http"

	"example.com/concierge/searchapi"
)

func newFlightTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := goahttp.NewMuxer()
	searchapi.NewFlightServer(searchapi.NewFlightService()).Mount(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newHotelTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := goahttp.NewMuxer()
	searchapi.NewHotelServer(searchapi.NewHotelService()).Mount(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestFlightSearchEndpoint(t *testing.T) {
	srv := newFlightTestServer(t)

	resp := postJSON(t, srv.URL+"/search", map[string]string{
		"origin":         "Seattle",
		"destination":    "San Diego",
		"departure_date": "2026-09-10",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body searchapi.FlightSearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Flights, 4)
}

func TestFlightSearchEndpointRejectsMissingFields(t *testing.T) {
	srv := newFlightTestServer(t)

	resp := postJSON(t, srv.URL+"/search", map[string]string{"origin": "Seattle"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFlightSearchEndpointRejectsMalformedDate(t *testing.T) {
	srv := newFlightTestServer(t)

	resp := postJSON(t, srv.URL+"/search", map[string]string{
		"origin":         "Seattle",
		"destination":    "San Diego",
		"departure_date": "tomorrow",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFlightSearchEndpointRejectsInvalidJSON(t *testing.T) {
	srv := newFlightTestServer(t)

	resp, err := http.Post(srv.URL+"/search", "application/json", strings.NewReader("{oops"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFlightHealthEndpoint(t *testing.T) {
	srv := newFlightTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "flight_search_api", body["service"])
}

func TestHotelSearchEndpoint(t *testing.T) {
	srv := newHotelTestServer(t)

	resp := postJSON(t, srv.URL+"/search", map[string]string{
		"location":       "Seattle",
		"check_in_date":  "2026-09-10",
		"check_out_date": "2026-09-12",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body searchapi.HotelSearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Hotels, 4)
}

func TestHotelSearchEndpointRejectsInvertedDates(t *testing.T) {
	srv := newHotelTestServer(t)

	resp := postJSON(t, srv.URL+"/search", map[string]string{
		"location":       "Seattle",
		"check_in_date":  "2026-09-12",
		"check_out_date": "2026-09-10",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "Check-out date must be after check-in date", body["error"])
}

func TestHotelHealthEndpoint(t *testing.T) {
	srv := newHotelTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "hotel_search_api", body["service"])
}
