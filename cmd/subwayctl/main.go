package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/subwaycore/subway-go/internal/config"
	"github.com/subwaycore/subway-go/internal/models"
	"github.com/subwaycore/subway-go/pkg/subway"
)

func main() {
	if os.Getenv("SUBWAY_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if os.Getenv("SUBWAY_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	}

	app := &cli.App{
		Name:        "subwayctl",
		Description: "Query subway routes, travel times and live arrivals from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to YAML config file"},
		},
		Commands: []*cli.Command{
			routeCommand(),
			travelTimeCommand(),
			arrivalsCommand(),
			compareCommand(),
			scheduleCommand(),
			linesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func withClient(c *cli.Context, fn func(client *subway.LocalClient) error) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	client, err := subway.NewLocal(cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func routeCommand() *cli.Command {
	return &cli.Command{
		Name:      "route",
		Usage:     "Find the fastest route between two stations",
		ArgsUsage: "<from> <to>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: subwayctl route <from> <to>", 1)
			}
			return withClient(c, func(client *subway.LocalClient) error {
				route, err := client.FindRoute(c.Context, c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return err
				}
				printRoute(route)
				return nil
			})
		},
	}
}

func travelTimeCommand() *cli.Command {
	return &cli.Command{
		Name:      "travel-time",
		Usage:     "Estimate minutes between two stations on one line",
		ArgsUsage: "<from> <to>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "line", Required: true, Usage: "Line to ride"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: subwayctl travel-time <from> <to> --line <line>", 1)
			}
			return withClient(c, func(client *subway.LocalClient) error {
				minutes, err := client.TravelTimeOnLine(c.Context, c.Args().Get(0), c.Args().Get(1), c.String("line"))
				if err != nil {
					return err
				}
				fmt.Printf("%d min on the %s\n", minutes, c.String("line"))
				return nil
			})
		},
	}
}

func arrivalsCommand() *cli.Command {
	return &cli.Command{
		Name:      "arrivals",
		Usage:     "Show upcoming arrivals at a station",
		ArgsUsage: "<station>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "lines", Usage: "Comma-separated line filter"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: subwayctl arrivals <station>", 1)
			}
			return withClient(c, func(client *subway.LocalClient) error {
				var lines []string
				if raw := c.String("lines"); raw != "" {
					lines = strings.Split(raw, ",")
				}
				arrivals, err := client.GetArrivals(c.Context, c.Args().Get(0), lines)
				if err != nil {
					return err
				}
				if len(arrivals) == 0 {
					fmt.Println("No real-time data available")
					return nil
				}
				for _, a := range arrivals {
					fmt.Printf("%-3s %s  %2d min\n", a.Line, a.Direction, a.Minutes)
				}
				return nil
			})
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Compare staying on a line against switching to alternatives",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Required: true},
			&cli.StringFlag{Name: "to", Required: true},
			&cli.StringFlag{Name: "transfer", Usage: "Transfer station (defaults to the origin)"},
			&cli.StringFlag{Name: "current", Required: true, Usage: "Line currently boarded or about to board"},
			&cli.StringSliceFlag{Name: "alt", Usage: "Alternative line (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			return withClient(c, func(client *subway.LocalClient) error {
				cmp, err := client.Compare(c.Context, models.CompareRequest{
					FromStationID:     c.String("from"),
					ToStationID:       c.String("to"),
					TransferStationID: c.String("transfer"),
					CurrentLine:       c.String("current"),
					AlternativeLines:  c.StringSlice("alt"),
				})
				if err != nil {
					return err
				}
				printComparison(cmp)
				return nil
			})
		},
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Manage the cached schedule data",
		Subcommands: []*cli.Command{
			{
				Name:  "refresh",
				Usage: "Re-download the schedule archive and rebuild the index",
				Action: func(c *cli.Context) error {
					return withClient(c, func(client *subway.LocalClient) error {
						if err := client.RefreshSchedule(c.Context); err != nil {
							return err
						}
						fmt.Println("Schedule refreshed")
						return nil
					})
				},
			},
		},
	}
}

func linesCommand() *cli.Command {
	return &cli.Command{
		Name:  "lines",
		Usage: "List known lines, or the stations of one line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "line", Usage: "Show the stations of this line"},
		},
		Action: func(c *cli.Context) error {
			return withClient(c, func(client *subway.LocalClient) error {
				if line := c.String("line"); line != "" {
					stations, err := client.StationsOnLine(line)
					if err != nil {
						return err
					}
					for _, s := range stations {
						fmt.Printf("%-20s (%s)\n", s.Name, s.ID)
					}
					return nil
				}
				fmt.Println(strings.Join(client.Lines(), " "))
				return nil
			})
		},
	}
}

func printRoute(route *models.Route) {
	if len(route.Segments) == 0 {
		fmt.Println("Already there")
		return
	}
	for _, seg := range route.Segments {
		fmt.Printf("Take the %s from %s to %s (%d stops, ~%d min)\n",
			seg.Line, seg.FromStationID, seg.ToStationID, seg.Stops(), seg.TravelMinutes)
	}
	fmt.Printf("Total: ~%d min, %d transfer(s)\n", route.TotalMinutes, route.Transfers)
}

func printComparison(cmp *models.Comparison) {
	describe := func(label string, opt *models.CompareOption) {
		if opt == nil {
			fmt.Printf("%s: not available\n", label)
			return
		}
		fmt.Printf("%s (%s): ~%d min (%d wait + %d ride)\n",
			label, opt.Line, opt.TotalMinutes, opt.WaitMinutes, opt.TravelMinutes)
	}
	describe("Option 1, stay", cmp.Stay)
	describe("Option 2, switch", cmp.Switch)
	if cmp.Recommended == 1 {
		fmt.Println("Recommendation: stay put")
	} else {
		fmt.Println("Recommendation: make the switch")
	}
}
