package fetch

import (
	"fmt"
	"strconv"
	"strings"

	"imagery-timelapse/internal/common"
)

// DefaultTemplate is the Google Maps satellite (kh) tile endpoint.
const DefaultTemplate = "https://khms2.google.com/kh/v={v}?x={x}&y={y}&z={z}"

// DefaultUserAgent mimics a desktop browser; the kh endpoint rejects
// obviously robotic agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Request addresses one tile: slippy-map coordinates, the imagery
// version, and the viewing direction namespace.
type Request struct {
	Z, X, Y   int
	Version   common.Version
	Direction common.Direction
}

func (r Request) String() string {
	return fmt.Sprintf("v=%s z=%d x=%d y=%d dir=%s", r.Version, r.Z, r.X, r.Y, r.Direction)
}

// Key returns the cache key for this request.
func (r Request) Key() string {
	return fmt.Sprintf("%s/%s/%d/%d/%d", r.Direction, r.Version, r.Z, r.X, r.Y)
}

// Endpoint builds tile URLs from a provider-defined template with
// {v}, {x}, {y}, {z} and optionally {deg} placeholders. Oblique
// directions address a distinct namespace via their azimuth; when the
// template carries no {deg} placeholder the parameter is appended.
type Endpoint struct {
	Template string
}

// URL renders the request into a fetchable URL.
func (e Endpoint) URL(r Request) string {
	template := e.Template
	if template == "" {
		template = DefaultTemplate
	}

	url := strings.NewReplacer(
		"{v}", r.Version.String(),
		"{x}", strconv.Itoa(r.X),
		"{y}", strconv.Itoa(r.Y),
		"{z}", strconv.Itoa(r.Z),
	).Replace(template)

	if r.Direction.Oblique() {
		deg := strconv.Itoa(r.Direction.Degrees())
		if strings.Contains(url, "{deg}") {
			url = strings.ReplaceAll(url, "{deg}", deg)
		} else {
			url += "&deg=" + deg
		}
	} else {
		url = strings.ReplaceAll(url, "{deg}", "")
	}

	return url
}
