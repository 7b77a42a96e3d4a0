package search

import (
	"fmt"

	"scenic/internal/model"
)

const promptTemplate = `Act as an expert driving enthusiast who finds exhilarating routes for high-performance sports cars.

Based on %s, identify the 3 best driving roads for a sports car enthusiast. The absolute priority is finding twisty, technical, and scenic backroads.

Your suggestions MUST adhere to the following strict criteria:
*   **No Highways or Major Roads:** Absolutely NO interstates, freeways, highways, or major multi-lane arterial roads. Your focus is exclusively on smaller, two-lane roads.
*   **Driving Experience:** Prioritize roads with challenging corners, tight turns, significant elevation changes, and beautiful scenery.
*   **Road Quality:** The roads should have good pavement quality suitable for a sports car.

Your response MUST be a JSON array of objects, where each object represents a road and has the following properties: "name", "description", "mapEmbedUrl", "startLat", "startLon", "endLat", and "endLon".
- The "name" should be a common name for the route.
- The "description" must be a JSON array of 3-4 strings, where each string is a key highlight of the drive (e.g., "Features tight hairpins", "Stunning valley views", "Excellent pavement condition").
- The "mapEmbedUrl" must be a URL suitable for use in an HTML iframe tag to display a map of the route. This URL should show the route path, not just a point.
- "startLat" and "startLon" must be the decimal latitude and longitude for the starting point of the scenic drive.
- "endLat" and "endLon" must be the decimal latitude and longitude for the ending point of the scenic drive.

Again, I must stress: Do NOT recommend any highways or major roads. Only suggest routes that a true driving enthusiast would enjoy.`

// buildPrompt renders the recommendation prompt for a query.
func buildPrompt(q model.LocationQuery) string {
	var location string
	if q.Kind == model.QueryCoords {
		location = fmt.Sprintf("my current location at latitude %v and longitude %v", q.Lat, q.Lon)
	} else {
		location = fmt.Sprintf("the area of %q", q.Address)
	}
	return fmt.Sprintf(promptTemplate, location)
}

// roadSchema is the structured-output schema sent with every request.
var roadSchema = schema{
	Type: "ARRAY",
	Items: &schema{
		Type: "OBJECT",
		Properties: map[string]schema{
			"name":        {Type: "STRING"},
			"description": {Type: "ARRAY", Items: &schema{Type: "STRING"}},
			"mapEmbedUrl": {Type: "STRING"},
			"startLat":    {Type: "NUMBER"},
			"startLon":    {Type: "NUMBER"},
			"endLat":      {Type: "NUMBER"},
			"endLon":      {Type: "NUMBER"},
		},
		Required: []string{"name", "description", "mapEmbedUrl", "startLat", "startLon", "endLat", "endLon"},
	},
}
