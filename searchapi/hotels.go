package searchapi

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// HotelSearchRequest is the POST /search body for the hotel service.
	HotelSearchRequest struct {
		Location     string `json:"location"`
		CheckInDate  string `json:"check_in_date"`
		CheckOutDate string `json:"check_out_date"`
	}

	// Hotel is one sample hotel offer.
	Hotel struct {
		Name         string `json:"name"`
		Address      string `json:"address"`
		CheckInTime  string `json:"check_in_time"`
		CheckOutTime string `json:"check_out_time"`
		Thumbnail    string `json:"thumbnail"`
		Price        int    `json:"price"`
	}

	// HotelSearchResponse is the hotel service response.
	HotelSearchResponse struct {
		Hotels []Hotel `json:"hotels"`
	}

	// HotelService generates sample hotel offers.
	HotelService struct{}
)

// ErrCheckOutBeforeCheckIn rejects stays whose check-out does not follow the
// check-in date.
var ErrCheckOutBeforeCheckIn = errors.New("Check-out date must be after check-in date")

// Sample inventory templated on the requested location.
var hotelInventory = []struct {
	name    string
	address string
	price   int
}{
	{"%s Marriott Waterfront", "2100 Alaskan Wy, %s, WA 98121, United States", 250},
	{"%s Hilton Downtown", "1301 6th Ave, %s, WA 98101, United States", 220},
	{"%s Hyatt Regency", "808 Howell St, %s, WA 98101, United States", 280},
	{"%s Westin Hotel", "1900 5th Ave, %s, WA 98101, United States", 240},
}

// NewHotelService constructs the hotel search stub.
func NewHotelService() *HotelService {
	return &HotelService{}
}

// Search returns four location-templated sample hotels. Dates must be
// YYYY-MM-DD and the check-out date must follow the check-in date.
func (s *HotelService) Search(req HotelSearchRequest) (*HotelSearchResponse, error) {
	checkIn, err := time.Parse(dateLayout, req.CheckInDate)
	if err != nil {
		return nil, fmt.Errorf("invalid date format: %w", err)
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOutDate)
	if err != nil {
		return nil, fmt.Errorf("invalid date format: %w", err)
	}
	if !checkOut.After(checkIn) {
		return nil, ErrCheckOutBeforeCheckIn
	}

	hotels := make([]Hotel, 0, len(hotelInventory))
	for _, h := range hotelInventory {
		name := fmt.Sprintf(h.name, req.Location)
		hotels = append(hotels, Hotel{
			Name:         name,
			Address:      fmt.Sprintf(h.address, req.Location),
			CheckInTime:  "16:00",
			CheckOutTime: "11:00",
			Thumbnail:    hotelThumbnail(name),
			Price:        h.price,
		})
	}
	return &HotelSearchResponse{Hotels: hotels}, nil
}

// hotelThumbnail picks a brand image by substring match on the hotel name.
func hotelThumbnail(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "hilton"):
		return "/src/images/hilton.png"
	case strings.Contains(lower, "marriott"), strings.Contains(lower, "mariott"):
		return "/src/images/mariott.png"
	case strings.Contains(lower, "conrad"):
		return "/src/images/conrad.jpg"
	case strings.Contains(lower, "hyatt"):
		return "/src/images/hyatt.png"
	case strings.Contains(lower, "westin"):
		return "/src/images/westin.png"
	default:
		return "/src/images/hotel.png"
	}
}
