/*

Dmsvar aggregates barcode-level sequencing counts of codon variants
of a gene into per-sample mutation and codon counts.

The basic usage of dmsvar looks like this:

	dmsvar gene.fasta variants.csv -counts lib_1:input:input.csv

, this will associate the barcode counts from input.csv with the
variants of lib_1 and write per-site codon counts.

To see all the options run:

	dmsvar -h

*/
package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	"dmsvar/countsdb"
	"dmsvar/variant"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("dmsvar")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("dmsvar", "barcoded codon-variant count aggregator").Version(version)

	// input gene and variants
	geneFileName     = app.Arg("gene", "reference gene (fasta)").Required().ExistingFile()
	variantsFileName = app.Arg("variants", "barcode-variant table (csv)").Required().ExistingFile()

	// variant table parameters
	codonSubs  = app.Flag("codon-subs", "substitutions are codon-level rather than nucleotide-level").Bool()
	extraCols  = app.Flag("extracol", "extra variant table column to retain (can be repeated)").Strings()
	minSupport = app.Flag("minsupport", "drop variants with call support below this value").Default("1").Int()

	// counts input
	countsSpecs = app.Flag("counts", "sample counts as library:sample:file.csv (can be repeated)").Strings()
	dbFileName  = app.Flag("db", "counts database; new counts are stored there and all stored counts are replayed").String()

	// output
	outDir    = app.Flag("outdir", "output directory").Default(".").String()
	countMode = app.Flag("mode", "codon count mode "+
		"(single: count unmutated and single-mutant variants only, "+
		"all: count every variant"+
		")").Default("single").Enum("single", "all")
	mutCounts = app.Flag("mutcounts", "write mutation counts at the given level "+
		"(none, codon or aa)").Default("none").Enum("none", "codon", "aa")
	singleOnly = app.Flag("single", "count mutations from single mutants only").Bool()
	merged     = app.Flag("merged", "also aggregate a merged copy of all libraries").Bool()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
)

// countsSpec is one parsed -counts argument.
type countsSpec struct {
	library, sample, fileName string
}

func parseCountsSpecs(specs []string) ([]countsSpec, error) {
	parsed := make([]countsSpec, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("counts specification %q is not library:sample:file", spec)
		}
		parsed = append(parsed, countsSpec{parts[0], parts[1], parts[2]})
	}
	return parsed, nil
}

func selection() variant.Selection {
	sel := variant.Selection{MinSupport: *minSupport}
	if *merged {
		sel.Libraries = nil
	}
	return sel
}

func run() error {
	g, err := readGene(*geneFileName)
	if err != nil {
		return err
	}
	log.Infof("Read gene of %d codon sites", g.NSites())

	rows, err := readVariantsCSV(*variantsFileName, *extraCols)
	if err != nil {
		return err
	}
	table, err := variant.New(g, rows, variant.Options{
		SubsAreCodon: *codonSubs,
		ExtraCols:    *extraCols,
	})
	if err != nil {
		return err
	}
	log.Infof("Read %d barcoded variants in %d libraries",
		len(table.Variants()), len(table.Libraries()))

	specs, err := parseCountsSpecs(*countsSpecs)
	if err != nil {
		return err
	}

	var db *countsdb.DB
	if *dbFileName != "" {
		db, err = countsdb.Open(*dbFileName)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	if db != nil {
		for _, spec := range specs {
			counts, err := readCountsCSV(spec.fileName)
			if err != nil {
				return err
			}
			if err := db.Save(spec.library, spec.sample, counts); err != nil {
				return err
			}
		}
		if err := db.AddAll(table); err != nil {
			return err
		}
	} else {
		for _, spec := range specs {
			counts, err := readCountsCSV(spec.fileName)
			if err != nil {
				return err
			}
			if err := table.AddSampleCounts(spec.library, spec.sample, counts); err != nil {
				return err
			}
		}
	}

	sel := selection()
	if len(specs) == 0 && db == nil {
		sel.Samples = []string{variant.NoSample}
	}

	libs := table.Libraries()
	if *merged {
		libs = append(libs, variant.MergedLibrary)
	}

	mode := variant.SingleMode
	if *countMode == "all" {
		mode = variant.AllMode
	}
	for _, lib := range libs {
		libSel := sel
		libSel.Libraries = []string{lib}
		all, err := table.CodonCountsAll(mode, libSel)
		if err != nil {
			return err
		}
		for _, cc := range all {
			fn, err := writeCodonCounts(*outDir, cc)
			if err != nil {
				return err
			}
			log.Noticef("Wrote codon counts for %s/%s to %s", cc.Library, cc.Sample, fn)
		}
	}

	if *mutCounts != "none" {
		gran := variant.ByCodon
		if *mutCounts == "aa" {
			gran = variant.ByAminoAcid
		}
		vtype := variant.AllMutants
		if *singleOnly {
			vtype = variant.SingleMutants
		}
		mutSel := sel
		mutSel.Libraries = libs
		counts, err := table.MutCounts(vtype, gran, mutSel)
		if err != nil {
			return err
		}
		fn, err := writeMutCounts(*outDir, counts)
		if err != nil {
			return err
		}
		log.Noticef("Wrote %d mutation count rows to %s", len(counts), fn)
	}

	n, err := table.NVariants(sel)
	if err != nil {
		return err
	}
	for _, lib := range table.Libraries() {
		for sample, count := range n[lib] {
			log.Infof("library %q sample %q: %d variants", lib, sample, count)
		}
	}
	return nil
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
	logging.SetLevel(level, "dmsvar")
	logging.SetLevel(level, "variant")
	logging.SetLevel(level, "countsdb")

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if err := run(); err != nil {
		log.Fatal(err)
	}
}
