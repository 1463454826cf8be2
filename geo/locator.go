package geo

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang/v2"

	"chopfinder/models"
)

// ErrUnavailable is returned when no coordinate can be determined for a caller.
// Distance sorting degrades to the original order in that case.
var ErrUnavailable = errors.New("location unavailable")

// Locator supplies the current coordinate of a caller identified by IP address.
type Locator interface {
	Locate(ctx context.Context, addr netip.Addr) (*models.Coordinate, error)
}

// NoopLocator is used when no geolocation database is configured.
type NoopLocator struct{}

func (NoopLocator) Locate(context.Context, netip.Addr) (*models.Coordinate, error) {
	return nil, ErrUnavailable
}

// GeoIPLocator resolves coordinates from a MaxMind GeoLite2/GeoIP2 City database.
type GeoIPLocator struct {
	db *geoip2.Reader
}

// OpenGeoIP opens the City database at path.
func OpenGeoIP(path string) (*GeoIPLocator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIPLocator{db: db}, nil
}

func (g *GeoIPLocator) Locate(_ context.Context, addr netip.Addr) (*models.Coordinate, error) {
	rec, err := g.db.City(addr)
	if err != nil {
		return nil, err
	}
	if !rec.Location.HasCoordinates() || rec.Location.Latitude == nil || rec.Location.Longitude == nil {
		return nil, ErrUnavailable
	}
	return &models.Coordinate{Latitude: *rec.Location.Latitude, Longitude: *rec.Location.Longitude}, nil
}

func (g *GeoIPLocator) Close() error {
	return g.db.Close()
}

// ClientIP extracts the caller address, honouring an explicit ?ip= override and the
// usual proxy headers before falling back to RemoteAddr.
func ClientIP(r *http.Request) (netip.Addr, error) {
	rawIP := r.URL.Query().Get("ip")
	if rawIP == "" {
		for _, h := range []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"} {
			if v := r.Header.Get(h); v != "" {
				if h == "X-Forwarded-For" {
					if idx := strings.IndexByte(v, ','); idx >= 0 {
						v = v[:idx]
					}
				}
				rawIP = strings.TrimSpace(v)
				break
			}
		}
	}
	if rawIP == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			rawIP = host
		} else {
			rawIP = r.RemoteAddr
		}
	}
	return netip.ParseAddr(rawIP)
}

// ParseCoordinate parses a single coordinate component and checks its range.
func ParseCoordinate(s string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// FromRequest resolves the caller location: explicit lat/lon query parameters win,
// otherwise the locator is asked about the client IP. A nil coordinate with a nil
// error means the location is simply unknown.
func FromRequest(r *http.Request, locator Locator, logger *log.Logger) (*models.Coordinate, error) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr != "" && lonStr != "" {
		lat, err := ParseCoordinate(latStr, -90, 90)
		if err != nil {
			return nil, err
		}
		lon, err := ParseCoordinate(lonStr, -180, 180)
		if err != nil {
			return nil, err
		}
		return &models.Coordinate{Latitude: lat, Longitude: lon}, nil
	}
	if locator == nil {
		return nil, nil
	}
	addr, err := ClientIP(r)
	if err != nil {
		logger.Debug("no usable client ip", "err", err)
		return nil, nil
	}
	loc, err := locator.Locate(r.Context(), addr)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			logger.Warn("geoip lookup failed", "ip", addr, "err", err)
		}
		return nil, nil
	}
	return loc, nil
}
