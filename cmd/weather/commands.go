package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/station-weather/internal/app"
	"github.com/couchcryptid/station-weather/internal/command"
	"github.com/couchcryptid/station-weather/internal/domain"
)

const usage = `usage: weather <command> [args]

commands:
  serve                                       run the HTTP API
  countries                                   list countries
  cities [country]                            list cities, optionally of one country
  stations [city]                             list stations, optionally of one city
  tree                                        print the full hierarchy
  add-country <id> <name>
  remove-country <id>                         also removes its cities and stations
  add-city <id> <name> <country>
  remove-city <id>                            also removes its stations
  add-station [-no-validate] <id> <name> <city> <url>
  remove-station <id>
  set-url [-no-validate] <station> <url>
  fetch <station>                             fetch and print measurements
  refresh <station>                           clear measurements, then fetch them again
  archive <station> [limit]                   print archived measurements, newest first
  validate-url <url>                          check that url serves a results document
`

var errUsage = errors.New("usage")

// run executes one non-serve command and prints its result as JSON to out.
func run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	name, rest := args[0], args[1:]
	s := a.Store()

	switch name {
	case "countries":
		return printJSON(out, s.Countries())
	case "cities":
		return printJSON(out, s.Cities(optional(rest)))
	case "stations":
		return printJSON(out, s.Stations(optional(rest)))
	case "tree":
		return printJSON(out, treeView(s.Hierarchy()))

	case "add-country":
		if len(rest) != 2 {
			return errUsage
		}
		return execute(ctx, a, out, &command.AddCountry{Store: s, ID: rest[0], Name: rest[1]})
	case "remove-country":
		if len(rest) != 1 {
			return errUsage
		}
		return executeRemoval(ctx, a, out, rest[0], &command.RemoveCountry{Store: s, ID: rest[0]})
	case "add-city":
		if len(rest) != 3 {
			return errUsage
		}
		return execute(ctx, a, out, &command.AddCity{Store: s, ID: rest[0], Name: rest[1], CountryID: rest[2]})
	case "remove-city":
		if len(rest) != 1 {
			return errUsage
		}
		return executeRemoval(ctx, a, out, rest[0], &command.RemoveCity{Store: s, ID: rest[0]})
	case "add-station":
		validator, pos, err := parseValidation(name, rest, a)
		if err != nil {
			return err
		}
		if len(pos) != 4 {
			return errUsage
		}
		return execute(ctx, a, out, &command.AddStation{
			Store: s, Validator: validator,
			ID: pos[0], Name: pos[1], CityID: pos[2], APIURL: pos[3],
		})
	case "remove-station":
		if len(rest) != 1 {
			return errUsage
		}
		return executeRemoval(ctx, a, out, rest[0], &command.RemoveStation{Store: s, ID: rest[0]})
	case "set-url":
		validator, pos, err := parseValidation(name, rest, a)
		if err != nil {
			return err
		}
		if len(pos) != 2 {
			return errUsage
		}
		return execute(ctx, a, out, &command.UpdateStationURL{Store: s, Validator: validator, ID: pos[0], URL: pos[1]})

	case "fetch":
		if len(rest) != 1 {
			return errUsage
		}
		st, err := a.SelectStation(ctx, rest[0])
		if err != nil {
			return err
		}
		// Each run starts with an empty station cache, so a zero fetch time
		// means this selection's fetch failed.
		if st.FetchedAt().IsZero() {
			return fmt.Errorf("fetch %q: %w", st.ID, command.ErrFetchFailed)
		}
		return printJSON(out, fetchView(st))
	case "refresh":
		if len(rest) != 1 {
			return errUsage
		}
		st, err := a.RefreshStation(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(out, fetchView(st))
	case "archive":
		if len(rest) < 1 || len(rest) > 2 {
			return errUsage
		}
		limit := 0
		if len(rest) == 2 {
			n, err := strconv.Atoi(rest[1])
			if err != nil || n <= 0 {
				return errUsage
			}
			limit = n
		}
		records, err := a.ArchivedMeasurements(ctx, rest[0], limit)
		if err != nil {
			return err
		}
		return printJSON(out, records)
	case "validate-url":
		if len(rest) != 1 {
			return errUsage
		}
		return printJSON(out, map[string]any{"url": rest[0], "valid": a.Ingest().ValidateURL(ctx, rest[0])})

	default:
		return errUsage
	}
}

func optional(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// parseValidation handles the -no-validate flag shared by add-station and set-url.
func parseValidation(name string, args []string, a *app.App) (command.URLValidator, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	noValidate := fs.Bool("no-validate", false, "skip the url pre-flight check")
	if err := fs.Parse(args); err != nil {
		return nil, nil, errUsage
	}
	if *noValidate {
		return nil, fs.Args(), nil
	}
	return a.Ingest(), fs.Args(), nil
}

func execute(ctx context.Context, a *app.App, out io.Writer, cmd command.Command) error {
	result, err := a.Execute(ctx, cmd)
	if err != nil {
		return err
	}
	return printJSON(out, result)
}

func executeRemoval(ctx context.Context, a *app.App, out io.Writer, id string, cmd command.Command) error {
	if _, err := a.Execute(ctx, cmd); err != nil {
		return err
	}
	return printJSON(out, map[string]string{"removed": id})
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

type stationView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	APIURL string `json:"api_url"`
}

type cityView struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Stations []stationView `json:"stations"`
}

type countryView struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Cities []cityView `json:"cities"`
}

func treeView(countries []*domain.Country) []countryView {
	out := make([]countryView, 0, len(countries))
	for _, country := range countries {
		cv := countryView{ID: country.ID, Name: country.Name, Cities: []cityView{}}
		for _, city := range country.Cities() {
			ci := cityView{ID: city.ID, Name: city.Name, Stations: []stationView{}}
			for _, st := range city.Stations() {
				ci.Stations = append(ci.Stations, stationView{ID: st.ID, Name: st.Name, APIURL: st.APIURL()})
			}
			cv.Cities = append(cv.Cities, ci)
		}
		out = append(out, cv)
	}
	return out
}

type measurementView struct {
	domain.Measurement
	Display string `json:"display"`
}

type fetchResult struct {
	StationID    string            `json:"station_id"`
	StationName  string            `json:"station_name"`
	FetchedAt    *time.Time        `json:"fetched_at"`
	Measurements []measurementView `json:"measurements"`
}

func fetchView(st *domain.Station) fetchResult {
	res := fetchResult{StationID: st.ID, StationName: st.Name, Measurements: []measurementView{}}
	if fetched := st.FetchedAt(); !fetched.IsZero() {
		utc := fetched.UTC()
		res.FetchedAt = &utc
	}
	for _, m := range st.Measurements() {
		res.Measurements = append(res.Measurements, measurementView{Measurement: m, Display: m.String()})
	}
	return res
}
