/*

Neutfit fits a four-parameter logistic neutralization curve to
concentration versus fraction-surviving data and reports the fitted
parameters and the IC50.

The basic usage of neutfit looks like this:

	neutfit neutdata.csv

, this will fit with the top asymptote fixed at 1 and a default
optimizer (downhill simplex).

You can free or fix the asymptotes and change the optimizer:

	neutfit -fixtop free -fixbottom 0 -method lbfgsb neutdata.csv

To see all the options run:

	neutfit -h

*/
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	"dmsvar/neut"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("neutfit")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("neutfit", "neutralization curve fitter").Version(version)

	// input data
	dataFileName = app.Arg("data", "concentration and fraction surviving data (csv)").Required().ExistingFile()

	// fit parameters
	fixTop    = app.Flag("fixtop", "fix the top asymptote ('free' or a number)").Default("1").String()
	fixBottom = app.Flag("fixbottom", "fix the bottom asymptote ('free' or a number)").Default("free").String()
	method    = app.Flag("method", "optimization method to use "+
		"(simplex: downhill simplex, "+
		"lbfgsb: limited-memory Broyden-Fletcher-Goldfarb-Shanno with bounding constraints"+
		")").Default("simplex").Enum("simplex", "lbfgsb")
	ciLevel = app.Flag("level", "confidence interval level").Default("0.95").Float64()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	jsonF    = app.Flag("json", "write json output to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
)

// FitSummary holds the fit results for json output.
type FitSummary struct {
	Midpoint    float64  `json:"midpoint"`
	Slope       float64  `json:"slope"`
	Bottom      float64  `json:"bottom"`
	Top         float64  `json:"top"`
	SSR         float64  `json:"ssr"`
	IC50        *float64 `json:"ic50"`
	IC50Bound   string   `json:"ic50_str"`
	Version     string   `json:"version"`
	CommandLine []string `json:"commandLine"`
}

func parseParam(s, name string) (neut.Param, error) {
	if s == "free" {
		return neut.Free(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return neut.Param{}, fmt.Errorf("%s must be 'free' or a number, got %q", name, s)
	}
	return neut.Fix(v), nil
}

// readData reads the concentration and fraction surviving columns.
func readData(fileName string) (cs, fs []float64, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty data file %s", fileName)
	}
	ci, fi := -1, -1
	for i, name := range records[0] {
		switch strings.TrimSpace(name) {
		case "concentration":
			ci = i
		case "fraction":
			fi = i
		}
	}
	if ci < 0 || fi < 0 {
		return nil, nil, fmt.Errorf("%s needs concentration and fraction columns", fileName)
	}
	for _, record := range records[1:] {
		c, err := strconv.ParseFloat(record[ci], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad concentration %q", record[ci])
		}
		fr, err := strconv.ParseFloat(record[fi], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad fraction %q", record[fi])
		}
		cs = append(cs, c)
		fs = append(fs, fr)
	}
	return cs, fs, nil
}

func reportParam(cv *neut.Curve, p neut.ParamID) {
	v := cv.Value(p)
	if lo, hi, ok := cv.ConfInt(p, *ciLevel); ok {
		log.Noticef("%s = %g (%g%% CI %g - %g)", p, v, *ciLevel*100, lo, hi)
	} else {
		log.Noticef("%s = %g", p, v)
	}
}

func run() (*FitSummary, error) {
	cs, fs, err := readData(*dataFileName)
	if err != nil {
		return nil, err
	}
	log.Infof("Read %d data points", len(cs))

	opts := neut.Options{Method: *method}
	if opts.Top, err = parseParam(*fixTop, "-fixtop"); err != nil {
		return nil, err
	}
	if opts.Bottom, err = parseParam(*fixBottom, "-fixbottom"); err != nil {
		return nil, err
	}

	cv, err := neut.Fit(cs, fs, opts)
	if err != nil {
		return nil, err
	}

	for _, p := range []neut.ParamID{neut.ParamMidpoint, neut.ParamSlope,
		neut.ParamBottom, neut.ParamTop} {
		reportParam(cv, p)
	}
	log.Noticef("ssr = %g", cv.SSR)

	summary := &FitSummary{
		Midpoint:  cv.Midpoint,
		Slope:     cv.Slope,
		Bottom:    cv.Bottom,
		Top:       cv.Top,
		SSR:       cv.SSR,
		IC50Bound: cv.IC50String(),
	}
	if ic50, ok := cv.IC50(false); ok {
		summary.IC50 = &ic50
		log.Noticef("ic50 = %g", ic50)
	} else {
		log.Noticef("ic50 = %s", cv.IC50String())
	}
	return summary, nil
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(level, "neutfit")
	logging.SetLevel(level, "neut")

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	summary, err := run()
	if err != nil {
		log.Fatal(err)
	}
	summary.Version = version
	summary.CommandLine = os.Args

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
