// Command validate checks a single model-level NetCDF input the same way the
// service does and prints a per-phase PASS/FAIL summary. With -out, the
// sanitized dataset is written when validation passes.
//
// Usage:
//
//	go run ./cmd/validate -file D_20240426_T12.nc [-out D_20240426_T12_sanitized.nc] [-json]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	ncadapter "github.com/opera-adt/tropo-validator/internal/adapter/netcdf"
	"github.com/opera-adt/tropo-validator/internal/compute"
	"github.com/opera-adt/tropo-validator/internal/domain"
	"github.com/opera-adt/tropo-validator/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	errors  []string
	skipped bool
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "input NetCDF file to validate")
	out := flag.String("out", "", "optional path for the sanitized dataset")
	asJSON := flag.Bool("json", false, "print the validation report as JSON")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*file, *out, *asJSON, *logLevel))
}

func run(file, out string, asJSON bool, logLevel string) int {
	ctx := context.Background()
	logger := observability.NewLogger(logLevel, "text")

	pool, err := compute.New(compute.DefaultSettings())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: compute pool: %v\n", err)
		return 1
	}

	load := &phase{name: "Load input"}
	schema := &phase{name: "Coordinates and data variables"}
	audit := &phase{name: "NaNs and valid ranges"}
	write := &phase{name: "Write sanitized output", skipped: out == ""}
	phases := []*phase{load, schema, audit, write}

	fmt.Println("=== Tropo Input Validation ===")
	fmt.Printf("Input: %s\n\n", file)

	var report domain.Report
	ds, err := ncadapter.NewLoader(logger).Load(ctx, file)
	if err != nil {
		load.errorf("%v", err)
		schema.skipped, audit.skipped, write.skipped = true, true, true
	} else {
		report, err = domain.NewSanitizer(pool, logger).Sanitize(ctx, ds)
		report.Source = file
		var se *domain.SchemaError
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &se):
			for _, issue := range se.Issues {
				schema.errorf("%s", issue)
			}
			audit.skipped, write.skipped = true, true
		case errors.As(err, &ve):
			for _, issue := range ve.Issues {
				audit.errorf("%s", issue)
			}
			write.skipped = true
		case err != nil:
			audit.errorf("%v", err)
			write.skipped = true
		}
	}

	if !write.skipped {
		if err := ncadapter.Write(out, ds); err != nil {
			write.errorf("%v", err)
		} else {
			report.Output = out
		}
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	printVariables(report)

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: encode report: %v\n", err)
			return 1
		}
		fmt.Printf("\n%s\n", data)
	}

	if allPassed {
		fmt.Printf("\nValidation passed (%s).\n", report.Outcome())
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func printVariables(report domain.Report) {
	if len(report.Variables) == 0 {
		return
	}
	names := make([]string, 0, len(report.Variables))
	for name := range report.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	fmt.Printf("  %-6s %14s %14s %8s %24s  %s\n", "var", "min", "max", "nans", "valid range", "verdict")
	for _, name := range names {
		v := report.Variables[name]
		verdict := string(v.Verdict)
		if v.Clipped > 0 {
			verdict = fmt.Sprintf("%s (%d clipped)", verdict, v.Clipped)
		}
		fmt.Printf("  %-6s %14s %14s %8d %24s  %s\n",
			name, formatStat(v.Min), formatStat(v.Max), v.NaNCount,
			domain.Bounds{Lower: v.Lower, Upper: v.Upper}.String(), verdict)
	}
}

func formatStat(x *float64) string {
	if x == nil {
		return fmt.Sprintf("%g", math.NaN())
	}
	return fmt.Sprintf("%.6g", *x)
}
