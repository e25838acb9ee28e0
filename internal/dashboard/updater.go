package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lorasense/lorasense/internal/resilience"
)

// LatestReadingPath is the endpoint fetched relative to the API base URL.
const LatestReadingPath = "/v1/readings/latest"

// Status messages.
const (
	StatusFetching      = "Fetching data..."
	statusUpdatedPrefix = "Data updated successfully: "
	statusErrorFormat   = "Error connecting to backend: %s. Check your console and the API URL."
)

// ErrBadEnvelope is returned when the backend answers with a failed or malformed envelope.
var ErrBadEnvelope = errors.New("Backend data format incorrect or status failed.") //nolint:stylecheck,revive // shown verbatim to users

// maxBodyBytes caps how much of a response body is decoded.
const maxBodyBytes = 1 << 20

// State is the lifecycle of one Updater.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateRendered
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateRendered:
		return "rendered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fetcher issues GET requests. *resilience.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Config holds configuration for an Updater.
type Config struct {
	// BaseURL is the API origin, e.g. http://localhost:8080.
	BaseURL string

	// Client performs the request. Defaults to a single-attempt resilience client.
	Client Fetcher

	Display Display
	Logger  zerolog.Logger

	// Now returns the local time shown in the success status. Defaults to time.Now.
	Now func() time.Time
}

// Updater fetches the latest reading once and writes it into a Display.
type Updater struct {
	url     string
	client  Fetcher
	display Display
	logger  zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	state State
}

// envelope mirrors the backend's JSON response.
type envelope struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Data    *payload `json:"data"`
}

type payload struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Moisture    *float64 `json:"moisture"`
	Timestamp   string   `json:"timestamp"`
}

// NewUpdater creates an Updater in the idle state.
func NewUpdater(cfg Config) *Updater {
	client := cfg.Client
	if client == nil {
		rc := resilience.DefaultConfig("dashboard")
		rc.Logger = cfg.Logger
		client = resilience.NewClient(rc)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Updater{
		url:     strings.TrimRight(cfg.BaseURL, "/") + LatestReadingPath,
		client:  client,
		display: cfg.Display,
		logger:  cfg.Logger,
		now:     now,
	}
}

// State returns the current lifecycle state.
func (u *Updater) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Run performs the single fetch-and-render cycle. It returns the failure that
// was rendered, or nil on success. A second call is rejected.
func (u *Updater) Run(ctx context.Context) error {
	u.mu.Lock()
	if u.state != StateIdle {
		state := u.state
		u.mu.Unlock()
		return fmt.Errorf("updater already ran: state %s", state)
	}
	u.state = StateFetching
	u.mu.Unlock()

	u.display.SetText(TargetStatus, StatusFetching)

	data, err := u.fetch(ctx)
	if err != nil {
		u.fail(err)
		return err
	}
	u.render(data)
	return nil
}

func (u *Updater) fetch(ctx context.Context) (*payload, error) {
	resp, err := u.client.Get(ctx, u.url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Network response was not ok: %s", statusText(resp)) //nolint:stylecheck // shown verbatim to users
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Status != "success" || env.Data == nil ||
		env.Data.Temperature == nil || env.Data.Humidity == nil || env.Data.Moisture == nil {
		return nil, ErrBadEnvelope
	}
	return env.Data, nil
}

func (u *Updater) render(p *payload) {
	u.display.SetText(TargetTemperature, formatNumber(*p.Temperature)+"°F")
	u.display.SetText(TargetHumidity, formatNumber(*p.Humidity)+"%")
	u.display.SetText(TargetMoisture, formatNumber(*p.Moisture)+"%")
	u.display.SetText(TargetStatus, statusUpdatedPrefix+u.now().Format("15:04:05"))

	u.setState(StateRendered)
	u.logger.Debug().
		Str("url", u.url).
		Str("timestamp", p.Timestamp).
		Msg("dashboard updated")
}

func (u *Updater) fail(err error) {
	u.display.SetText(TargetTemperature, Placeholder)
	u.display.SetText(TargetHumidity, Placeholder)
	u.display.SetText(TargetMoisture, Placeholder)
	u.display.SetText(TargetStatus, fmt.Sprintf(statusErrorFormat, strings.TrimSuffix(err.Error(), ".")))

	u.setState(StateFailed)
	u.logger.Error().Err(err).
		Str("url", u.url).
		Msg("error fetching sensor data")
}

func (u *Updater) setState(s State) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state = s
}

// formatNumber prints the shortest decimal that round-trips, so 15.0 renders as "15".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// statusText returns the reason phrase of the response status line.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
