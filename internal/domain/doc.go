// Package domain models DriveBC major traffic events and the view policy
// applied to them.
//
// # Data Source
//
// Event records originate from the DriveBC major events page
// (https://www.drivebc.ca/mobile/pub/events/majorevents.html). An upstream
// preparation job scrapes the page, extracts structured fields from each
// free-text description, geocodes the location, and writes the result as a
// JSON array. This service treats that array as a read-only snapshot.
//
// # Record Conventions
//
// Field names follow the upstream file verbatim, including its mixed casing:
//
//	{
//	  "title": "Highway 1",
//	  "Description": "Road closed due to a vehicle incident. Expect delays.",
//	  "Location": "Highway 1 near Hope",
//	  "Next update time": "Mon Oct 7 at 2:00 PM",
//	  "Last update time": "Mon Oct 7 at 11:42 AM",
//	  "latitude": 49.38,
//	  "longitude": -121.44
//	}
//
// Coordinates are absent when geocoding failed, and the upstream writer emits
// bare NaN tokens for unset floats. Such entries describe administrative
// notices with no place on the map; they are dropped without complaint.
//
// # Displayability
//
// A record is displayable iff both coordinates are JSON numbers that are
// finite (not NaN, not ±Inf). Strings that look like numbers ("49.38") are not
// accepted: the upstream contract is numeric coordinates.
//
// # Keyword Emphasis
//
// Descriptions are tokenized into plain and emphasized spans. Emphasis marks
// whole-word, case-insensitive occurrences of "No", "CLOSED", "CLOSURE",
// "Road closed" and "delays". Spans are data; turning them into markup is the
// render layer's job.
//
// # Layout
//
// Viewports at or below 768px wide, and any user agent matching
// "Mobi" or "Android", get a full-width map with no sidebar. Everything else
// gets a 20% sidebar on the left and an 80% map.
package domain
