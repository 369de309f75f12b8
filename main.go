package main

import (
	"fmt"
	"geoidx/common"
	"geoidx/importing"
	"geoidx/index"
	"geoidx/web"
	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"os"
	"strings"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Build   struct {
		Input   string `help:"The input file. An .osm.pbf file." placeholder:"<input-file>" arg:"" type:"existingfile"`
		Output  string `help:"The output index file." short:"o" default:"geo-objects.idx"`
		Depth   int    `help:"Number of depth levels of the cell hierarchy used for coverings." default:"21"`
		Workers int    `help:"Number of parallel cover workers." default:"4"`
	} `cmd:"" help:"Builds the covering index for the objects of the given OSM file."`
	Query struct {
		Index string `help:"The index file." placeholder:"<index-file>" arg:"" type:"existingfile"`
		Bbox  string `help:"The query rectangle as minX,minY,maxX,maxY." placeholder:"<bbox>" arg:""`
	} `cmd:"" help:"Lists the IDs of all objects within the given rectangle."`
	Closest struct {
		Index       string  `help:"The index file." placeholder:"<index-file>" arg:"" type:"existingfile"`
		X           float64 `help:"The x-coordinate of the query point." arg:""`
		Y           float64 `help:"The y-coordinate of the query point." arg:""`
		MaxDistance float64 `help:"Maximum distance of returned objects." short:"d" default:"1"`
		TopSize     int     `help:"Maximum number of returned objects." short:"n" default:"10"`
	} `cmd:"" help:"Lists the objects closest to the given point, ranked by proximity."`
	Server struct {
		Index string `help:"The index file." placeholder:"<index-file>" arg:"" type:"existingfile"`
		Port  string `help:"The port to listen on." short:"p" default:"8080"`
	} `cmd:"" help:"Starts the HTTP query API for the given index."`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("geoidx"),
		kong.Description("Builds and queries a compact spatial covering index for geo objects."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	switch ctx.Command() {
	case "build <input>":
		err := importing.Import(cli.Build.Input, cli.Build.Output, cli.Build.Depth, cli.Build.Workers)
		sigolo.FatalCheck(err)
	case "query <index> <bbox>":
		geoObjectsIndex := loadIndex(cli.Query.Index)
		rect, err := common.ParseBbox(cli.Query.Bbox)
		sigolo.FatalCheck(err)

		geoObjectsIndex.ForEachInRect(func(id index.GeoObjectID) {
			fmt.Println(uint64(id))
		}, rect)
	case "closest <index> <x> <y>":
		geoObjectsIndex := loadIndex(cli.Closest.Index)

		geoObjectsIndex.ForClosestToPoint(func(id index.GeoObjectID, weight float64) {
			fmt.Printf("%d %f\n", uint64(id), weight)
		}, orb.Point{cli.Closest.X, cli.Closest.Y}, cli.Closest.MaxDistance, cli.Closest.TopSize)
	case "server <index>":
		web.StartServer(cli.Server.Port, cli.Server.Index)
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func loadIndex(indexFile string) *index.GeoObjectsIndex {
	data, err := os.ReadFile(indexFile)
	sigolo.FatalCheck(err)

	geoObjectsIndex, err := index.LoadGeoObjectsIndex(data)
	sigolo.FatalCheck(err)

	return geoObjectsIndex
}
