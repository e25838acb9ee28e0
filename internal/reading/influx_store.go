package reading

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// ErrInfluxUnavailable is returned when the InfluxDB ping does not pass.
var ErrInfluxUnavailable = errors.New("influxdb ping failed")

// InfluxConfig holds the parameters for an InfluxStore.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	Lookback    time.Duration
}

// InfluxStore reads the newest point of a measurement from an InfluxDB v2
// bucket. A new client is created per call and closed before returning.
type InfluxStore struct {
	cfg   InfluxConfig
	query string
}

// NewInfluxStore creates an InfluxStore.
func NewInfluxStore(cfg InfluxConfig) *InfluxStore {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 30 * 24 * time.Hour
	}
	return &InfluxStore{
		cfg:   cfg,
		query: LatestFluxQuery(cfg.Bucket, cfg.Measurement, cfg.Lookback),
	}
}

// LatestFluxQuery selects the last temperature, humidity and moisture value of
// a measurement, one row per field, whatever series or point each was written in.
func LatestFluxQuery(bucket, measurement string, lookback time.Duration) string {
	return fmt.Sprintf(`from(bucket: %s)
  |> range(start: -%ds)
  |> filter(fn: (r) => r._measurement == %s)
  |> filter(fn: (r) => r._field == "temperature" or r._field == "humidity" or r._field == "moisture")
  |> group(columns: ["_field"])
  |> sort(columns: ["_time"])
  |> last()`,
		strconv.Quote(bucket), int64(lookback.Seconds()), strconv.Quote(measurement))
}

// Name returns the backend name.
func (s *InfluxStore) Name() string {
	return "influx"
}

// Latest returns the newest reading.
func (s *InfluxStore) Latest(ctx context.Context) Latest {
	client, err := s.acquire(ctx)
	if err != nil {
		return Absent(ReasonConnectionFailed, err)
	}
	defer client.Close()

	result, err := client.QueryAPI(s.cfg.Org).Query(ctx, s.query)
	if err != nil {
		return Absent(ReasonQueryFailed, err)
	}
	defer result.Close()

	var r Reading
	values := make(map[string]float64, 3)
	for result.Next() {
		record := result.Record()
		v, err := toFloat(record.Value())
		if err != nil {
			return Absent(ReasonQueryFailed, fmt.Errorf("field %s: %w", record.Field(), err))
		}
		values[record.Field()] = v
		if record.Time().After(r.Timestamp) {
			r.Timestamp = record.Time()
		}
	}
	if err := result.Err(); err != nil {
		return Absent(ReasonQueryFailed, err)
	}
	if len(values) == 0 {
		return Absent(ReasonNoRecords, ErrNoRecords)
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"temperature", &r.Temperature},
		{"humidity", &r.Humidity},
		{"moisture", &r.Moisture},
	}
	for _, f := range fields {
		v, ok := values[f.name]
		if !ok {
			return Absent(ReasonQueryFailed, fmt.Errorf("field %s: missing value", f.name))
		}
		*f.dst = v
	}

	return Found(r)
}

// Ping creates a client, pings the server and closes the client.
func (s *InfluxStore) Ping(ctx context.Context) error {
	client, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	client.Close()
	return nil
}

func (s *InfluxStore) acquire(ctx context.Context) (influxdb2.Client, error) {
	client := influxdb2.NewClient(s.cfg.URL, s.cfg.Token)
	ok, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	if !ok {
		client.Close()
		return nil, ErrInfluxUnavailable
	}
	return client, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case nil:
		return 0, errors.New("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
