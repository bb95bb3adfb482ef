package searchapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"goa.design/clue/log"
	goahttp "goa.design/goa/v3/http"
)

type (
	// FlightServer exposes the flight search service over HTTP.
	FlightServer struct {
		svc *FlightService
	}

	// HotelServer exposes the hotel search service over HTTP.
	HotelServer struct {
		svc *HotelService
	}
)

// NewFlightServer constructs the flight search HTTP service.
func NewFlightServer(svc *FlightService) *FlightServer {
	return &FlightServer{svc: svc}
}

// Mount registers the flight service routes on the muxer.
func (s *FlightServer) Mount(mux goahttp.Muxer) {
	mux.Handle("POST", "/search", s.handleSearch)
	mux.Handle("GET", "/health", healthHandler("flight_search_api"))
}

func (s *FlightServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req FlightSearchRequest
	if err := decodeValidated(r, flightRequestSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.svc.Search(req)
	if err != nil {
		log.Errorf(r.Context(), err, "flight search failed")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// NewHotelServer constructs the hotel search HTTP service.
func NewHotelServer(svc *HotelService) *HotelServer {
	return &HotelServer{svc: svc}
}

// Mount registers the hotel service routes on the muxer.
func (s *HotelServer) Mount(mux goahttp.Muxer) {
	mux.Handle("POST", "/search", s.handleSearch)
	mux.Handle("GET", "/health", healthHandler("hotel_search_api"))
}

func (s *HotelServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req HotelSearchRequest
	if err := decodeValidated(r, hotelRequestSchema, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.svc.Search(req)
	if err != nil {
		if errors.Is(err, ErrCheckOutBeforeCheckIn) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Errorf(r.Context(), err, "hotel search failed")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeValidated decodes the request body, validates it against the schema
// and unmarshals it into v. Validation runs on the decoded document so error
// messages name the offending field.
func decodeValidated(r *http.Request, schema *jsonschema.Schema, v any) error {
	var doc any
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(&doc); err != nil {
		return errors.New("invalid JSON body")
	}
	if err := schema.Validate(doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func healthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": service,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encode errors mean the client went away; nothing useful to do.
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
