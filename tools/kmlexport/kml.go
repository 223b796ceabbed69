package main

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ais_parser/internal/state"
	"ais_parser/internal/storage"
)

// KML structures for XML marshalling.
// These follow the KML 2.2 specification: https://developers.google.com/kml/documentation/kmlreference

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name `xml:"kml"`
	Namespace string   `xml:"xmlns,attr"`
	Document  Document `xml:"Document"`
}

// Document contains the document metadata and features.
type Document struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description,omitempty"`
	Styles      []Style     `xml:"Style,omitempty"`
	Placemarks  []Placemark `xml:"Placemark"`
}

// Style defines the visual appearance of features.
type Style struct {
	ID        string     `xml:"id,attr"`
	IconStyle *IconStyle `xml:"IconStyle,omitempty"`
	LineStyle *LineStyle `xml:"LineStyle,omitempty"`
}

// IconStyle defines how icons are displayed.
type IconStyle struct {
	Scale   float64 `xml:"scale,omitempty"`
	Heading *int    `xml:"heading,omitempty"`
	Icon    Icon    `xml:"Icon"`
}

// LineStyle defines how track lines are drawn.
type LineStyle struct {
	Color string  `xml:"color"` // aabbggrr
	Width float64 `xml:"width"`
}

// Icon specifies the icon image.
type Icon struct {
	Href string `xml:"href"`
}

// Placemark is a vessel position or a vessel track.
type Placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description,omitempty"`
	StyleURL     string        `xml:"styleUrl,omitempty"`
	Style        *Style        `xml:"Style,omitempty"`
	Point        *Point        `xml:"Point,omitempty"`
	LineString   *LineString   `xml:"LineString,omitempty"`
	ExtendedData *ExtendedData `xml:"ExtendedData,omitempty"`
}

// Point represents a geographic location.
type Point struct {
	Coordinates string `xml:"coordinates"` // Format: lon,lat,altitude
}

// LineString is a path through several locations.
type LineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"` // Space separated lon,lat,altitude tuples.
}

// ExtendedData holds custom data associated with a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data represents a single piece of extended data.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

const (
	vesselIcon = "http://maps.google.com/mapfiles/kml/shapes/sailing.png"
	timeLayout = "2006-01-02 15:04:05 UTC"
)

func coord(lat, lon float64) string {
	// KML coordinates are in the format: longitude,latitude,altitude
	return fmt.Sprintf("%.6f,%.6f,0", lon, lat)
}

func vesselName(v *state.Vessel) string {
	if name := strings.TrimSpace(v.Name); name != "" {
		return name
	}
	return v.MMSI
}

// vesselPlacemark returns the last known position of v, or nil when the
// vessel has never reported one.
func vesselPlacemark(v *state.Vessel) *Placemark {
	if !v.HasPosition() {
		return nil
	}

	description := fmt.Sprintf(
		"MMSI: %s\nMessages: %d\nFirst seen: %s\nLast seen: %s",
		v.MMSI, v.MsgCount,
		v.FirstSeen.UTC().Format(timeLayout),
		v.LastSeen.UTC().Format(timeLayout),
	)

	data := []Data{
		{Name: "mmsi", Value: v.MMSI},
		{Name: "msg_count", Value: strconv.Itoa(v.MsgCount)},
		{Name: "last_seen", Value: v.LastSeen.UTC().Format(time.RFC3339)},
	}
	if v.Callsign != "" {
		data = append(data, Data{Name: "callsign", Value: v.Callsign})
	}
	if v.Speed != nil {
		data = append(data, Data{Name: "speed", Value: strconv.FormatFloat(*v.Speed, 'f', 1, 64)})
	}
	if v.Course != nil {
		data = append(data, Data{Name: "course", Value: strconv.FormatFloat(*v.Course, 'f', 1, 64)})
	}

	pm := &Placemark{
		Name:         vesselName(v),
		Description:  description,
		StyleURL:     "#vesselStyle",
		Point:        &Point{Coordinates: coord(*v.Latitude, *v.Longitude)},
		ExtendedData: &ExtendedData{Data: data},
	}
	// Rotate the icon to the reported heading.
	if v.Heading != nil {
		pm.Style = &Style{IconStyle: &IconStyle{Heading: v.Heading, Icon: Icon{Href: vesselIcon}}}
	}
	return pm
}

// trackPlacemark joins positions into a line. Fewer than two positions
// make no line and return nil.
func trackPlacemark(name string, positions []storage.Position) *Placemark {
	if len(positions) < 2 {
		return nil
	}
	coords := make([]string, len(positions))
	for i, p := range positions {
		coords[i] = coord(p.Latitude, p.Longitude)
	}
	first, last := positions[0].ReportedAt, positions[len(positions)-1].ReportedAt
	return &Placemark{
		Name:        name + " track",
		Description: fmt.Sprintf("%d positions\n%s to %s", len(positions), first.UTC().Format(timeLayout), last.UTC().Format(timeLayout)),
		StyleURL:    "#trackStyle",
		LineString:  &LineString{Tessellate: 1, Coordinates: strings.Join(coords, " ")},
	}
}

// generateKML creates a KML document from vessels and their tracks, keyed
// by MMSI.
func generateKML(vessels []*state.Vessel, tracks map[string][]storage.Position, now time.Time) KML {
	var placemarks []Placemark
	for _, v := range vessels {
		if pm := vesselPlacemark(v); pm != nil {
			placemarks = append(placemarks, *pm)
		}
		if pm := trackPlacemark(vesselName(v), tracks[v.MMSI]); pm != nil {
			placemarks = append(placemarks, *pm)
		}
	}

	return KML{
		Namespace: "http://www.opengis.net/kml/2.2",
		Document: Document{
			Name:        "AIS Vessels",
			Description: fmt.Sprintf("Vessel positions decoded from AIS. Generated %s.", now.UTC().Format(timeLayout)),
			Styles: []Style{
				{
					ID:        "vesselStyle",
					IconStyle: &IconStyle{Scale: 0.8, Icon: Icon{Href: vesselIcon}},
				},
				{
					ID:        "trackStyle",
					LineStyle: &LineStyle{Color: "ff00a5ff", Width: 2},
				},
			},
			Placemarks: placemarks,
		},
	}
}
