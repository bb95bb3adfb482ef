// Package searchapi implements the flight and hotel search stub services the
// travel agents call as tools. Both are static lookup tables wrapped in
// request validation: they exist so demo deployments have deterministic
// search results without external travel APIs.
package searchapi

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

type (
	// FlightSearchRequest is the POST /search body for the flight service.
	FlightSearchRequest struct {
		Origin        string `json:"origin"`
		Destination   string `json:"destination"`
		DepartureDate string `json:"departure_date"`
		ReturnDate    string `json:"return_date,omitempty"`
	}

	// AirportEvent is one endpoint of a flight leg.
	AirportEvent struct {
		CityName    string `json:"city_name"`
		AirportCode string `json:"airport_code"`
		Timestamp   string `json:"timestamp"`
	}

	// Flight is one sample flight offer.
	Flight struct {
		FlightNumber  string       `json:"flight_number"`
		Departure     AirportEvent `json:"departure"`
		Arrival       AirportEvent `json:"arrival"`
		Airlines      []string     `json:"airlines"`
		AirlineLogo   string       `json:"airline_logo"`
		PriceInUSD    int          `json:"price_in_usd"`
		NumberOfStops int          `json:"number_of_stops"`
	}

	// FlightSearchResponse is the flight service response.
	FlightSearchResponse struct {
		Flights []Flight `json:"flights"`
	}

	// FlightService generates sample flight offers.
	FlightService struct{}
)

// Sample inventory. Offers rotate through four carriers with fixed schedules.
var (
	flightAirlines = []string{"American Airlines", "United Airlines", "Delta Air Lines", "Alaska Airlines"}
	flightPrices   = []int{450, 520, 380, 490}
	flightStops    = []int{0, 1, 0, 0}

	outboundNumbers = []string{"AA1234", "UA5678", "DL9012", "AS3456"}
	outboundDeparts = []string{"08:00", "14:30", "06:45", "19:20"}
	outboundArrives = []string{"10:30", "17:15", "09:20", "22:05"}
	returnNumbers   = []string{"AA1235", "UA5679", "DL9013", "AS3457"}
	returnDeparts   = []string{"16:00", "11:30", "13:45", "08:20"}
	returnArrives   = []string{"18:30", "14:15", "16:20", "10:05"}

	airportCodes = map[string]string{
		"San Diego":     "SAN",
		"Seattle":       "SEA",
		"New York":      "JFK",
		"Los Angeles":   "LAX",
		"Chicago":       "ORD",
		"Miami":         "MIA",
		"San Francisco": "SFO",
		"Boston":        "BOS",
		"Washington":    "DCA",
		"Atlanta":       "ATL",
		"Lima":          "LIM",
		"Cusco":         "CUZ",
		"Peru":          "LIM",
	}

	airlineLogos = map[string]string{
		"American Airlines":  "/images/american.png",
		"United Airlines":    "/images/united.png",
		"Delta Air Lines":    "/images/delta1.jpg",
		"Alaska Airlines":    "/images/alaska.png",
		"Southwest Airlines": "/images/southwest.png",
	}
)

// NewFlightService constructs the flight search stub.
func NewFlightService() *FlightService {
	return &FlightService{}
}

// Search returns up to four outbound sample flights, plus four return
// flights when a return date is given. Dates must be YYYY-MM-DD.
func (s *FlightService) Search(req FlightSearchRequest) (*FlightSearchResponse, error) {
	if _, err := time.Parse(dateLayout, req.DepartureDate); err != nil {
		return nil, fmt.Errorf("invalid date format: %w", err)
	}
	originCode := airportCode(req.Origin)
	destCode := airportCode(req.Destination)

	var flights []Flight
	for i := range flightAirlines {
		flights = append(flights, sampleFlight(
			outboundNumbers[i], i,
			AirportEvent{CityName: req.Origin, AirportCode: originCode, Timestamp: req.DepartureDate + "T" + outboundDeparts[i] + ":00"},
			AirportEvent{CityName: req.Destination, AirportCode: destCode, Timestamp: req.DepartureDate + "T" + outboundArrives[i] + ":00"},
		))
	}
	if req.ReturnDate != "" {
		if _, err := time.Parse(dateLayout, req.ReturnDate); err != nil {
			return nil, fmt.Errorf("invalid date format: %w", err)
		}
		for i := range flightAirlines {
			flights = append(flights, sampleFlight(
				returnNumbers[i], i,
				AirportEvent{CityName: req.Destination, AirportCode: destCode, Timestamp: req.ReturnDate + "T" + returnDeparts[i] + ":00"},
				AirportEvent{CityName: req.Origin, AirportCode: originCode, Timestamp: req.ReturnDate + "T" + returnArrives[i] + ":00"},
			))
		}
	}
	return &FlightSearchResponse{Flights: flights}, nil
}

func sampleFlight(number string, i int, dep, arr AirportEvent) Flight {
	airline := flightAirlines[i]
	return Flight{
		FlightNumber:  number,
		Departure:     dep,
		Arrival:       arr,
		Airlines:      []string{airline},
		AirlineLogo:   airlineLogo(airline),
		PriceInUSD:    flightPrices[i],
		NumberOfStops: flightStops[i],
	}
}

// airportCode maps a city name to its airport code, defaulting to the
// placeholder "XXX" for cities outside the demo inventory.
func airportCode(city string) string {
	if code, ok := airportCodes[city]; ok {
		return code
	}
	return "XXX"
}

func airlineLogo(airline string) string {
	if logo, ok := airlineLogos[airline]; ok {
		return logo
	}
	return "/images/airplane.png"
}
