package chat

import "strings"

// Kind tags a reply with the intent that produced it.
type Kind string

const (
	KindSalinity    Kind = "salinity"
	KindTemperature Kind = "temperature"
	KindBGC         Kind = "bgc"
	KindLocation    Kind = "location"
	KindFallback    Kind = "fallback"
)

// Payload is the structured card shown under a data reply. Only the fields
// relevant to the reply kind are set.
type Payload struct {
	Type        Kind   `json:"type"`
	Count       int    `json:"count,omitempty"`
	AvgValue    string `json:"avgValue,omitempty"`
	Trend       string `json:"trend,omitempty"`
	Range       string `json:"range,omitempty"`
	Floats      int    `json:"floats,omitempty"`
	Coordinates string `json:"coordinates,omitempty"`
}

// Reply is the assistant's answer to one query.
type Reply struct {
	Kind    Kind     `json:"kind"`
	Text    string   `json:"text"`
	Payload *Payload `json:"payload,omitempty"`
}

// IsData reports whether the reply carries a data card.
func (r Reply) IsData() bool {
	return r.Payload != nil
}

const fallbackText = "I understand your query about ARGO data. Let me process that information for you."

// Greeting opens every session.
const Greeting = "Hello! I'm your Indian Ocean ARGO data assistant. I can help you explore temperature, salinity, and biogeochemical data from over 240 active floats in the Indian Ocean region. Try asking about specific regions, time periods, or parameters!"

var sampleQueries = []string{
	"Show me salinity profiles near the equator in March 2023",
	"Compare BGC parameters in the Arabian Sea for the last 6 months",
	"What are the nearest ARGO floats to coordinates 25.4°N, 157.8°W?",
	"Display temperature trends in the Pacific Ocean",
	"Find floats with recent oxygen measurements",
}

// SampleQueries returns the suggested prompts offered on an empty session.
func SampleQueries() []string {
	return append([]string(nil), sampleQueries[:3]...)
}

type rule struct {
	keywords []string
	reply    Reply
}

// rules are matched in order against the lowercased query; the first rule
// with any matching keyword wins. Oxygen precedes bgc so a query naming
// both gets the oxygen answer.
var rules = []rule{
	{
		keywords: []string{"salinity"},
		reply: Reply{
			Kind: KindSalinity,
			Text: "I found 23 ARGO floats with salinity profiles in the Indian Ocean region. The average salinity was 35.2 PSU with variations between 34.8-35.6 PSU. Would you like me to show the depth profiles or map locations?",
			Payload: &Payload{Type: KindSalinity, Count: 23, AvgValue: "35.2 PSU"},
		},
	},
	{
		keywords: []string{"temperature"},
		reply: Reply{
			Kind: KindTemperature,
			Text: "Temperature data shows a warming trend of 0.3°C over the past decade in the Indian Ocean. Current surface temperatures range from 18-28°C depending on latitude. Shall I display the temperature-depth profiles?",
			Payload: &Payload{Type: KindTemperature, Trend: "+0.3°C/decade", Range: "18-28°C"},
		},
	},
	{
		keywords: []string{"oxygen"},
		reply: Reply{
			Kind: KindBGC,
			Text: "Currently tracking 78 floats with oxygen sensors in the Indian Ocean. Recent measurements show typical oceanic oxygen minimum zones at 800-1200m depth. Would you like specific regional data?",
			Payload: &Payload{Type: KindBGC, Floats: 78},
		},
	},
	{
		keywords: []string{"bgc"},
		reply: Reply{
			Kind: KindBGC,
			Text: "BGC (Biogeochemical) data from the Arabian Sea shows seasonal variations in oxygen levels (180-220 μmol/kg) and chlorophyll concentrations. 6 active BGC floats are currently monitoring this region.",
			Payload: &Payload{Type: KindBGC, Floats: 6},
		},
	},
	{
		keywords: []string{"float", "coordinates", "location"},
		reply: Reply{
			Kind: KindLocation,
			Text: "I found 2 ARGO floats within 100km of those coordinates: Float 2902345 (15.1°N, 73.5°E) and Float 2902346 (15.7°N, 74.1°E). Both are active with recent profiles.",
			Payload: &Payload{Type: KindLocation, Floats: 2, Coordinates: "15.4°N, 73.8°E"},
		},
	},
}

// Match returns the canned reply for query, or a fallback reply when no
// keyword matches.
func Match(query string) Reply {
	lower := strings.ToLower(query)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.reply.clone()
			}
		}
	}
	return Reply{Kind: KindFallback, Text: fallbackText}
}

func (r Reply) clone() Reply {
	if r.Payload != nil {
		p := *r.Payload
		r.Payload = &p
	}
	return r
}
