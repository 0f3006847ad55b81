package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/handlers"
	"github.com/ukydev/campus-rath/internal/models"
	"github.com/ukydev/campus-rath/internal/session"
)

// Campus loop around the main gate, library and hostels.
var campusLoop = []models.Location{
	{Lat: 25.4358, Lon: 81.8463},
	{Lat: 25.4371, Lon: 81.8478},
	{Lat: 25.4389, Lon: 81.8470},
	{Lat: 25.4392, Lon: 81.8449},
	{Lat: 25.4376, Lon: 81.8436},
	{Lat: 25.4360, Lon: 81.8441},
}

var ErrAdminRequest = errors.New("admin request failed")

func jitterLocation(base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return models.Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func haversineKm(a, b models.Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func lerp(a, b models.Location, t float64) models.Location {
	return models.Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

// --- Routing & movement ---

// Route walks a closed loop of waypoints.
type Route struct {
	Points    []models.Location
	SegIndex  int
	SegOffset float64 // km along current segment
	Position  models.Location
	Laps      int
}

func NewRoute(points []models.Location) *Route {
	return &Route{Points: points, Position: points[0]}
}

// Step advances distanceKm along the loop and reports whether a lap was
// completed on the way.
func (r *Route) Step(distanceKm float64) bool {
	lapped := false
	for distanceKm > 0 {
		a := r.Points[r.SegIndex]
		b := r.Points[(r.SegIndex+1)%len(r.Points)]
		segLen := haversineKm(a, b)
		leftOnSeg := segLen - r.SegOffset
		if distanceKm >= leftOnSeg {
			r.Position = b
			r.SegIndex = (r.SegIndex + 1) % len(r.Points)
			r.SegOffset = 0
			distanceKm -= leftOnSeg
			if r.SegIndex == 0 {
				r.Laps++
				lapped = true
			}
			continue
		}
		r.SegOffset += distanceKm
		t := r.SegOffset / segLen
		r.Position = lerp(a, b, math.Min(math.Max(t, 0), 1))
		distanceKm = 0
	}
	return lapped
}

// AdminClient drives the admin API the way the driver console does.
type AdminClient struct {
	baseURL string
	client  *http.Client
}

func NewAdminClient(baseURL string) (*AdminClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &AdminClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}, nil
}

// Send posts one event and returns the resulting frame.
func (c *AdminClient) Send(ctx context.Context, event handlers.EventRequest) (session.Frame, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return session.Frame{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/admin/events", bytes.NewReader(data))
	if err != nil {
		return session.Frame{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return session.Frame{}, fmt.Errorf("failed to send %s: %w", event.Type, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return session.Frame{}, fmt.Errorf("%w: %s returned %d: %s", ErrAdminRequest, event.Type, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var frame session.Frame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		return session.Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	return frame, nil
}

// Simulator plays one driver's shift against the admin API.
type Simulator struct {
	Client      *AdminClient
	PIN         string
	Route       *Route
	SpeedKmh    float64
	Interval    time.Duration
	ChargeEvery int
	ChargeFor   time.Duration
}

// Start unlocks the console and goes online.
func (s *Simulator) Start(ctx context.Context) error {
	frame, err := s.Client.Send(ctx, handlers.EventRequest{Type: handlers.EventPIN, PIN: s.PIN})
	if err != nil {
		return err
	}
	if !frame.Session.Authenticated {
		return fmt.Errorf("%w: PIN not accepted", ErrAdminRequest)
	}
	_, err = s.Client.Send(ctx, handlers.EventRequest{Type: handlers.EventGoOnline})
	return err
}

// Tick moves the shuttle and reports its position. After every ChargeEvery
// laps it takes a charging break.
func (s *Simulator) Tick(ctx context.Context) error {
	lapped := s.Route.Step(s.SpeedKmh * s.Interval.Hours())
	sample := &models.LocationSample{Latitude: s.Route.Position.Lat, Longitude: s.Route.Position.Lon}

	frame, err := s.Client.Send(ctx, handlers.EventRequest{Type: handlers.EventTick, Location: sample})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"lat":    sample.Latitude,
		"lon":    sample.Longitude,
		"notice": frame.Notice,
	}).Info("Sent position")

	if lapped && s.ChargeEvery > 0 && s.Route.Laps%s.ChargeEvery == 0 {
		return s.Charge(ctx)
	}
	return nil
}

// Charge ends the shift, publishes "Charging", waits, then goes back online.
func (s *Simulator) Charge(ctx context.Context) error {
	steps := []handlers.EventRequest{
		{Type: handlers.EventEndShift},
		{Type: handlers.EventGoOffline},
		{Type: handlers.EventConfirmStatus, Reason: "Charging"},
	}
	for _, step := range steps {
		if _, err := s.Client.Send(ctx, step); err != nil {
			return err
		}
	}
	log.WithField("duration", s.ChargeFor).Info("Charging")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.ChargeFor):
	}

	for _, step := range []handlers.EventRequest{{Type: handlers.EventBack}, {Type: handlers.EventGoOnline}} {
		if _, err := s.Client.Send(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

// Run ticks until ctx is cancelled. Failed ticks are logged and retried on
// the next interval.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	tick := time.NewTicker(s.Interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := s.Tick(ctx); err != nil {
				log.WithError(err).Error("Simulation tick failed")
			}
		}
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	interval := time.Duration(envInt("SIM_TICK_SECONDS", 2)) * time.Second
	if interval < time.Second {
		interval = time.Second
	}

	client, err := NewAdminClient(apiURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to create admin client")
	}

	points := make([]models.Location, len(campusLoop))
	for i, p := range campusLoop {
		points[i] = jitterLocation(p, 5)
	}

	sim := &Simulator{
		Client:      client,
		PIN:         os.Getenv("ADMIN_PIN"),
		Route:       NewRoute(points),
		SpeedKmh:    float64(envInt("SIM_SPEED_KMH", 18)),
		Interval:    interval,
		ChargeEvery: envInt("SIM_CHARGE_EVERY", 3),
		ChargeFor:   time.Duration(envInt("SIM_CHARGE_SECONDS", 30)) * time.Second,
	}

	log.WithFields(log.Fields{
		"api_url":      apiURL,
		"interval":     interval,
		"charge_every": sim.ChargeEvery,
	}).Info("Starting shuttle simulation")

	if err := sim.Run(context.Background()); err != nil {
		log.WithError(err).Fatal("Simulation stopped")
	}
}
