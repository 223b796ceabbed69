package state

import "time"

// Vessel is the latest known state of one vessel.
type Vessel struct {
	MMSI        string    `json:"mmsi"`
	Name        string    `json:"name,omitempty"`
	Callsign    string    `json:"callsign,omitempty"`
	Destination string    `json:"destination,omitempty"`
	IMO         int       `json:"imo,omitempty"`
	ShipType    *int      `json:"ship_type,omitempty"`
	Status      *int      `json:"status,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Speed       *float64  `json:"speed,omitempty"`
	Course      *float64  `json:"course,omitempty"`
	Heading     *int      `json:"heading,omitempty"`
	Draught     *float64  `json:"draught,omitempty"`
	LastType    int       `json:"last_type"` // Message type of the latest report.
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	MsgCount    int       `json:"msg_count"`
}

// HasPosition returns true if the vessel has reported a position.
func (v *Vessel) HasPosition() bool {
	return v.Latitude != nil && v.Longitude != nil
}

// HasIdentity returns true if static voyage data has been received.
func (v *Vessel) HasIdentity() bool {
	return v.Name != "" || v.Callsign != ""
}

func (v *Vessel) clone() *Vessel {
	c := *v
	return &c
}
