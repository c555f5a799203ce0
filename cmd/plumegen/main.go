// Command plumegen computes odor plumes offline from a farm registry CSV
// export and a fixed weather setting. It uses the service's domain package
// so the output matches what a live session would publish.
//
// Usage:
//
//	go run ./cmd/plumegen \
//	  -farms data/farms.csv \
//	  -complaints data/complaints.csv \
//	  -dir 270 -speed 0.8 -humidity 85 -stability stable \
//	  -out plumes.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
)

type options struct {
	farmsPath      string
	complaintsPath string
	outPath        string
	types          string
	scenario       string
	stability      string
	maxCountMode   string
	direction      float64
	speed          float64
	humidity       float64
	threshold      float64
}

type output struct {
	Weather  domain.Weather         `json:"weather"`
	Guidance string                 `json:"guidance"`
	Plumes   []domain.Plume         `json:"plumes"`
	Clusters []domain.Cluster       `json:"clusters,omitempty"`
	Stats    *domain.ComplaintStats `json:"stats,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.farmsPath, "farms", "", "farm registry CSV export")
	flag.StringVar(&opts.complaintsPath, "complaints", "", "optional complaint CSV export")
	flag.StringVar(&opts.outPath, "out", "", "output path for the JSON result (stdout when empty)")
	flag.StringVar(&opts.types, "types", "", "comma-separated livestock types to include (default: dashboard selection)")
	flag.StringVar(&opts.scenario, "scenario", "average", "weather scenario: average, worst or best")
	flag.StringVar(&opts.stability, "stability", "neutral", "atmospheric stability: stable, neutral or unstable")
	flag.StringVar(&opts.maxCountMode, "max-count-mode", "global", "normalization population: global or visible")
	flag.Float64Var(&opts.direction, "dir", 0, "wind direction in compass degrees")
	flag.Float64Var(&opts.speed, "speed", 1, "wind speed in m/s")
	flag.Float64Var(&opts.humidity, "humidity", 50, "relative humidity in percent")
	flag.Float64Var(&opts.threshold, "cluster-threshold", domain.DefaultClusterThresholdMeters, "complaint merge distance in meters")
	flag.Parse()

	if opts.farmsPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -farms")
	}

	out, err := generate(opts)
	if err != nil {
		return err
	}

	if err := writeJSON(opts.outPath, out); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	printStats(out)
	return nil
}

func generate(opts options) (output, error) {
	scenario, ok := domain.ParseScenario(opts.scenario)
	if !ok {
		return output{}, fmt.Errorf("unknown scenario %q", opts.scenario)
	}
	stability, ok := domain.ParseStability(opts.stability)
	if !ok {
		return output{}, fmt.Errorf("unknown stability %q", opts.stability)
	}
	mode, ok := domain.ParseMaxCountMode(opts.maxCountMode)
	if !ok {
		return output{}, fmt.Errorf("unknown max count mode %q", opts.maxCountMode)
	}

	farmTable, err := readTable(opts.farmsPath)
	if err != nil {
		return output{}, fmt.Errorf("reading farms: %w", err)
	}
	farms := farmsFromTable(farmTable)
	log.Printf("farms: %d records", len(farms))

	filter := domain.DefaultFarmFilter()
	if opts.types != "" {
		filter.Types = strings.Split(opts.types, ",")
	}
	visible := filter.Apply(farms)
	maxCount := domain.MaxLivestockCount(farms)
	if mode == domain.MaxCountVisible {
		maxCount = domain.MaxLivestockCount(visible)
	}

	live := domain.Weather{
		WindDirectionDeg: opts.direction,
		WindSpeedMps:     opts.speed,
		HumidityPct:      opts.humidity,
		Stability:        stability,
	}.Sanitize()
	active := domain.ActiveWeather(scenario, live, nil, 0, stability)

	out := output{
		Weather:  active,
		Guidance: domain.Guidance(active),
		Plumes:   domain.ComputePlumes(domain.LiteFarms(visible), active, maxCount, slog.New(slog.NewTextHandler(os.Stderr, nil))),
	}

	if opts.complaintsPath != "" {
		complaintTable, err := readTable(opts.complaintsPath)
		if err != nil {
			return output{}, fmt.Errorf("reading complaints: %w", err)
		}
		complaints := complaintsFromTable(complaintTable)
		clusters, err := domain.ClusterComplaints(complaints, opts.threshold)
		if err != nil {
			return output{}, err
		}
		stats := domain.SummarizeComplaints(complaints)
		out.Clusters = clusters
		out.Stats = &stats
		log.Printf("complaints: %d records, %d clusters", len(complaints), len(clusters))
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

type groupCount struct {
	color string
	count int
}

func printStats(out output) {
	byColor := map[string]int{}
	var maxRadius float64
	for _, p := range out.Plumes {
		byColor[p.Color]++
		maxRadius = max(maxRadius, p.Radius)
	}
	gc := make([]groupCount, 0, len(byColor))
	for c, n := range byColor {
		gc = append(gc, groupCount{c, n})
	}
	sort.Slice(gc, func(i, j int) bool { return gc[i].count > gc[j].count })

	fmt.Fprintln(os.Stderr, "\n=== Plume summary ===")
	fmt.Fprintf(os.Stderr, "Weather: dir=%g speed=%g humidity=%g stability=%s\n",
		out.Weather.WindDirectionDeg, out.Weather.WindSpeedMps, out.Weather.HumidityPct, out.Weather.Stability)
	fmt.Fprintf(os.Stderr, "Plumes: %d (max radius %gm)\n", len(out.Plumes), maxRadius)
	for _, g := range gc {
		fmt.Fprintf(os.Stderr, "  %s=%d\n", g.color, g.count)
	}
	if out.Stats != nil {
		fmt.Fprintf(os.Stderr, "Complaints: %d in %d clusters\n", out.Stats.Total, len(out.Clusters))
	}
}
