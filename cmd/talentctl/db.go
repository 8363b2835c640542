package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/talentflow/db"
	"github.com/garnizeh/talentflow/internal/db"
	"github.com/garnizeh/talentflow/internal/repository/sqlite"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the service or workspace database",
}

var (
	dbWorkspace   bool
	dbBackupTo    string
	dbRestoreFrom string
)

// dbPath picks the service database, or the workspace one with --workspace.
func dbPath() (string, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return "", err
	}
	if dbWorkspace {
		return cfg.Workspace.DatabasePath, nil
	}
	return cfg.DatabasePath, nil
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema and load the seed data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		d, err := db.New(ctx, path, nil)
		if err != nil {
			return err
		}
		defer d.Close()
		if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
			return fmt.Errorf("migrate %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s initialized.\n", path)
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a consistent copy of the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		dst := dbBackupTo
		if dst == "" {
			dst = path + ".bak"
		}
		if _, err := os.Stat(dst); err == nil {
			if err := os.Remove(dst); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		d, err := db.New(ctx, path, nil)
		if err != nil {
			return err
		}
		defer d.Close()
		if _, err := d.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
			return fmt.Errorf("backup %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database backed up to %s.\n", dst)
		return nil
	},
}

var dbRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the database with a backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		src := dbRestoreFrom
		if src == "" {
			src = path + ".bak"
		}
		if err := copyFile(src, path); err != nil {
			return fmt.Errorf("restore %s: %w", path, err)
		}
		for _, suffix := range []string{"-wal", "-shm"} {
			if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s restored from %s.\n", path, src)
		return nil
	},
}

var dbExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print every table as JSON in insertion order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		d, err := db.New(ctx, path, nil)
		if err != nil {
			return err
		}
		defer d.Close()
		snap, err := sqlite.New(d, nil).Export(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), snap)
	},
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func init() {
	dbCmd.PersistentFlags().BoolVar(&dbWorkspace, "workspace", false, "Operate on the workspace database instead of the service one")
	dbBackupCmd.Flags().StringVarP(&dbBackupTo, "out", "o", "", "Backup file (default <db>.bak)")
	dbRestoreCmd.Flags().StringVarP(&dbRestoreFrom, "from", "f", "", "Backup file (default <db>.bak)")

	dbCmd.AddCommand(dbInitCmd, dbBackupCmd, dbRestoreCmd, dbExportCmd)
	rootCmd.AddCommand(dbCmd)
}
