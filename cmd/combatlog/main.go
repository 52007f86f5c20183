// Command combatlog reads rounds back out of a SQL combat log.
//
//	combatlog [flags] rounds
//	combatlog [flags] export <round id>...
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/internal/database"
	"github.com/frontierstation/damagecast/internal/logging"
	gormstorage "github.com/frontierstation/damagecast/internal/storage/gorm"
	"github.com/frontierstation/damagecast/internal/storage/memory"
)

func main() {
	flags := pflag.NewFlagSet("combatlog", pflag.ExitOnError)
	configDir := flags.String("config", ".", "directory containing "+config.FileName)
	sqlitePath := flags.String("sqlite", "", "read this SQLite file instead of Postgres")
	outDir := flags.String("out", ".", "directory exports are written to")
	compress := flags.Bool("gzip", true, "gzip exports")
	_ = flags.Parse(os.Args[1:])

	log := logging.NewZerolog(os.Stderr, "info", "combatlog")
	db, err := open(*configDir, *sqlitePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open combat log")
	}

	if err := run(db, flags.Args(), *outDir, *compress, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func open(configDir, sqlitePath string, log zerolog.Logger) (*gorm.DB, error) {
	if sqlitePath != "" {
		if _, err := os.Stat(sqlitePath); err != nil {
			return nil, err
		}
		return database.GetSqliteDB(sqlitePath, log)
	}
	if err := config.Load(configDir); err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
	}
	return database.GetPostgresDB(config.GetStorageConfig().DB, log)
}

func run(db *gorm.DB, args []string, outDir string, compress bool, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given, want rounds or export")
	}
	switch strings.ToLower(args[0]) {
	case "rounds":
		return listRounds(db, out)
	case "export":
		if len(args) < 2 {
			return fmt.Errorf("no round ids provided")
		}
		for _, arg := range args[1:] {
			id, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid round id %q: %w", arg, err)
			}
			path, err := exportRound(db, uint(id), outDir, compress)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, path)
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func listRounds(db *gorm.DB, out io.Writer) error {
	rounds, err := gormstorage.ListRounds(db)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTARTED\tHITS\tNARRATIONS")
	for _, r := range rounds {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n", r.ID, r.Name, r.StartedAt.UTC().Format(time.RFC3339), r.Hits, r.Narrations)
	}
	return w.Flush()
}

func exportRound(db *gorm.DB, id uint, outDir string, compress bool) (string, error) {
	round, hits, narrations, err := gormstorage.LoadRound(db, id)
	if err != nil {
		return "", err
	}
	export := memory.BuildExport(round.Name, round.StartedAt, time.Now(), hits, narrations)
	return memory.WriteExport(outDir, compress, export)
}
