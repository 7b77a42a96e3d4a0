package model

// QueryKind discriminates the LocationQuery variants.
type QueryKind int

const (
	QueryCoords QueryKind = iota
	QueryAddress
)

func (k QueryKind) String() string {
	switch k {
	case QueryCoords:
		return "coords"
	case QueryAddress:
		return "address"
	default:
		return "unknown"
	}
}

// LocationQuery is a search location: either device coordinates or a free-text address.
// Only the fields of the active Kind are meaningful.
type LocationQuery struct {
	Kind    QueryKind
	Lat     float64
	Lon     float64
	Address string
}

// CoordsQuery builds a coordinates query.
func CoordsQuery(lat, lon float64) LocationQuery {
	return LocationQuery{Kind: QueryCoords, Lat: lat, Lon: lon}
}

// AddressQuery builds an address query.
func AddressQuery(address string) LocationQuery {
	return LocationQuery{Kind: QueryAddress, Address: address}
}

// Road is a suggested driving route.
type Road struct {
	Name        string   `json:"name" validate:"required"`
	Description []string `json:"description"`
	MapEmbedURL string   `json:"mapEmbedUrl"`
	StartLat    float64  `json:"startLat" validate:"latitude"`
	StartLon    float64  `json:"startLon" validate:"longitude"`
	EndLat      float64  `json:"endLat" validate:"latitude"`
	EndLon      float64  `json:"endLon" validate:"longitude"`
}

// RoadKey is the identity of a road. Two roads are the same road when their keys are equal.
type RoadKey struct {
	Name     string
	StartLat float64
	StartLon float64
}

// Key returns the identity key of the road.
func (r Road) Key() RoadKey {
	return RoadKey{Name: r.Name, StartLat: r.StartLat, StartLon: r.StartLon}
}

// SameRoad reports whether r and other share an identity key.
func (r Road) SameRoad(other Road) bool {
	return r.Key() == other.Key()
}

// SourceRef is a citation target. Both fields are optional.
type SourceRef struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// GroundingChunk is a citation record; at most one of Web or Maps is set.
type GroundingChunk struct {
	Web  *SourceRef `json:"web,omitempty"`
	Maps *SourceRef `json:"maps,omitempty"`
}

// Link returns the kind ("web" or "maps"), display label and uri of the chunk.
// ok is false when neither variant is present.
func (c GroundingChunk) Link() (kind, label, uri string, ok bool) {
	var ref *SourceRef
	switch {
	case c.Web != nil:
		kind, ref = "web", c.Web
	case c.Maps != nil:
		kind, ref = "maps", c.Maps
	default:
		return "", "", "", false
	}
	label = ref.Title
	if label == "" {
		label = ref.URI
	}
	return kind, label, ref.URI, true
}

// RoadResult is the outcome of one successful search.
type RoadResult struct {
	Roads   []Road
	Sources []GroundingChunk
}

// Position is a one-shot device position in decimal degrees.
type Position struct {
	Lat float64
	Lon float64
}

// GeoFailure is the reason a position request failed.
type GeoFailure int

const (
	GeoOther GeoFailure = iota
	GeoPermissionDenied
	GeoPositionUnavailable
	GeoTimeout
)

func (f GeoFailure) String() string {
	switch f {
	case GeoPermissionDenied:
		return "permission denied"
	case GeoPositionUnavailable:
		return "position unavailable"
	case GeoTimeout:
		return "timeout"
	default:
		return "other"
	}
}
