// Package main provides a tool to export vessel positions and tracks from the
// PostgreSQL database to KML format. KML (Keyhole Markup Language) files can be
// viewed in Google Earth, Google Maps, and other mapping applications.
package main

import (
	"context"
	"encoding/xml"
	"flag"
	"fmt"
	"os"
	"time"

	"ais_parser/internal/state"
	"ais_parser/internal/storage"
)

func main() {
	// PostgreSQL connection flags.
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "ais", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDB := flag.String("pg-db", "ais_state", "PostgreSQL database")

	output := flag.String("output", "", "Output KML file (default: stdout)")
	mmsi := flag.String("mmsi", "", "Export a single vessel")
	limit := flag.Int("limit", 0, "Maximum vessels to export, most recently seen first (0 = all)")
	tracks := flag.Bool("tracks", false, "Include position tracks")
	since := flag.Duration("since", 24*time.Hour, "Track history window")
	showStats := flag.Bool("stats", false, "Show statistics only, don't export")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	ctx := context.Background()

	pg, err := storage.OpenPostgres(ctx, storage.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		Database: *pgDB,
		User:     *pgUser,
		Password: *pgPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Show stats mode.
	if *showStats {
		showVesselStats(ctx, pg)
		return
	}

	var vessels []*state.Vessel
	if *mmsi != "" {
		v, err := pg.GetVessel(ctx, *mmsi)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error querying vessel: %v\n", err)
			os.Exit(1)
		}
		if v != nil {
			vessels = append(vessels, v)
		}
	} else {
		vessels, err = pg.ListVessels(ctx, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error querying vessels: %v\n", err)
			os.Exit(1)
		}
	}

	if len(vessels) == 0 {
		fmt.Fprintf(os.Stderr, "No vessels found matching criteria\n")
		os.Exit(0)
	}

	trackMap := make(map[string][]storage.Position)
	if *tracks {
		from := time.Now().UTC().Add(-*since)
		for _, v := range vessels {
			positions, err := pg.GetTrack(ctx, v.MMSI, from)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error querying track for %s: %v\n", v.MMSI, err)
				os.Exit(1)
			}
			trackMap[v.MMSI] = positions
		}
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Exporting %d vessels to KML\n", len(vessels))
	}

	kml := generateKML(vessels, trackMap, time.Now())

	// Marshal to XML.
	xmlData, err := xml.MarshalIndent(kml, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating KML: %v\n", err)
		os.Exit(1)
	}

	// Add XML header.
	xmlOutput := xml.Header + string(xmlData)

	// Write output.
	if *output != "" {
		if err := os.WriteFile(*output, []byte(xmlOutput), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", *output)
		}
	} else {
		fmt.Println(xmlOutput)
	}
}

// showVesselStats displays statistics about the vessels in the database.
func showVesselStats(ctx context.Context, pg *storage.PostgresDB) {
	pool := pg.Pool()

	var total, withPosition, named int
	_ = pool.QueryRow(ctx, "SELECT COUNT(*), COUNT(latitude), COUNT(name) FROM vessels").Scan(&total, &withPosition, &named)

	var positions int
	_ = pool.QueryRow(ctx, "SELECT COUNT(*) FROM positions").Scan(&positions)

	var busiest string
	var busiestCount int
	_ = pool.QueryRow(ctx, "SELECT mmsi, msg_count FROM vessels ORDER BY msg_count DESC LIMIT 1").Scan(&busiest, &busiestCount)

	var oldestTime, newestTime *time.Time
	_ = pool.QueryRow(ctx, "SELECT MIN(first_seen), MAX(last_seen) FROM vessels").Scan(&oldestTime, &newestTime)

	fmt.Println("Vessel Statistics")
	fmt.Println("─────────────────")
	fmt.Printf("Total vessels:       %d\n", total)
	fmt.Printf("With position:       %d\n", withPosition)
	fmt.Printf("With name:           %d\n", named)
	fmt.Printf("Position reports:    %d\n", positions)
	if busiest != "" {
		fmt.Printf("Most heard:          %s (%d messages)\n", busiest, busiestCount)
	}
	if oldestTime != nil && newestTime != nil {
		fmt.Printf("Date range:          %s to %s\n", oldestTime.Format("2006-01-02"), newestTime.Format("2006-01-02"))
	}

	// Message count distribution.
	fmt.Println("\nMessage Count Distribution:")
	rows, err := pool.Query(ctx, `
		SELECT
			CASE
				WHEN msg_count = 1 THEN '1'
				WHEN msg_count <= 10 THEN '2-10'
				WHEN msg_count <= 100 THEN '11-100'
				WHEN msg_count <= 1000 THEN '101-1000'
				ELSE '1000+'
			END as bucket,
			COUNT(*) as cnt
		FROM vessels
		GROUP BY bucket
		ORDER BY MIN(msg_count)
	`)
	if err == nil {
		defer rows.Close()
		fmt.Printf("%-10s %10s\n", "Messages", "Count")
		for rows.Next() {
			var bucket string
			var cnt int
			_ = rows.Scan(&bucket, &cnt)
			fmt.Printf("%-10s %10d\n", bucket, cnt)
		}
	}
}
