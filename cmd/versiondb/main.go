// versiondb creates and inspects version-keyed address database files.
//
// Databases map stable numeric IDs to image-relative offsets for one
// build of a target executable. The create subcommand reads one
// "id offset" pair per line, e.g.:
//
//	403521 0x2fc19c8
//	41561  0x70ec10
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
	"gitlab.com/stephen-fox/patchkit/versiondb"
)

func main() {
	log.SetHandler(cli.Default)

	root := &cobra.Command{
		Use:           "versiondb",
		Short:         "Create and inspect version-keyed address databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newCreateCommand(),
		newInfoCommand(),
		newQueryCommand(),
	)

	err := root.Execute()
	if err != nil {
		log.Fatalf("%s", err)
	}
}

func newCreateCommand() *cobra.Command {
	var (
		version  string
		outPath  string
		fromPath string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a database from 'id offset' pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := io.Reader(os.Stdin)
			if fromPath != "" {
				f, err := os.Open(fromPath)
				if err != nil {
					return fmt.Errorf("failed to open input file - %w", err)
				}
				defer f.Close()
				input = f
			}

			db := versiondb.New(version)

			err := readEntries(input, db)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = versiondb.Filename(version)
			}

			err = db.Save(outPath)
			if err != nil {
				return fmt.Errorf("failed to save database - %w", err)
			}

			log.Infof("wrote %d entries for version %s to %s",
				db.NumEntries(), version, outPath)

			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "",
		"executable version the entries describe")
	cmd.Flags().StringVar(&outPath, "out", "",
		"output file (defaults to the conventional filename)")
	cmd.Flags().StringVar(&fromPath, "from", "",
		"input file of 'id offset' pairs (defaults to stdin)")
	cmd.MarkFlagRequired("version")

	return cmd
}

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <db-file>",
		Short: "Summarize a database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := versiondb.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("version: %s\nentries: %d\n",
				db.Version(), db.NumEntries())

			return nil
		},
	}
}

func newQueryCommand() *cobra.Command {
	var (
		id     uint64
		offset string
	)

	cmd := &cobra.Command{
		Use:   "query <db-file>",
		Short: "Look up an ID or a reverse-lookup offset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := versiondb.Load(args[0])
			if err != nil {
				return err
			}

			if offset != "" {
				value, err := parseHex(offset)
				if err != nil {
					return fmt.Errorf("bad offset %q - %w", offset, err)
				}

				foundID, hasIt := db.FindIDByOffset(value)
				if !hasIt {
					return fmt.Errorf("no id maps to offset 0x%x", value)
				}

				fmt.Printf("%d\n", foundID)

				return nil
			}

			foundOffset, hasIt := db.FindOffsetByID(id)
			if !hasIt {
				return fmt.Errorf("id %d is not in the database", id)
			}

			fmt.Printf("0x%x\n", foundOffset)

			return nil
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0,
		"id to look up")
	cmd.Flags().StringVar(&offset, "offset", "",
		"image-relative offset to reverse-look-up")

	return cmd
}

func readEntries(r io.Reader, db *versiondb.DB) error {
	scanner := bufio.NewScanner(r)

	lineNum := 0
	for scanner.Scan() {
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("line %d: expected 'id offset' - got %q",
				lineNum, line)
		}

		id, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: bad id %q - %w", lineNum, fields[0], err)
		}

		offset, err := parseHex(fields[1])
		if err != nil {
			return fmt.Errorf("line %d: bad offset %q - %w", lineNum, fields[1], err)
		}

		err = db.Add(id, offset)
		if err != nil {
			return fmt.Errorf("line %d - %w", lineNum, err)
		}
	}

	return scanner.Err()
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}
