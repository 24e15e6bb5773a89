package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/academy/internal/importer"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.json>...",
		Short: "Import course bundles (course, modules, exams and questions)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	dbFlags(cmd)
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()
	return importFiles(ctx, db, args)
}

// importFiles imports each path once. Unchanged files are skipped; files
// changed since their last import are skipped with a warning.
func importFiles(ctx context.Context, db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res, err := importer.Import(ctx, db, filepath.Base(path), data)
		switch {
		case errors.Is(err, importer.ErrDuplicate):
			slog.Info("bundle unchanged, skipping", "path", path)
			continue
		case errors.Is(err, importer.ErrChanged):
			slog.Warn("bundle changed since last import, skipping to avoid duplicate exams", "path", path)
			continue
		case err != nil:
			return err
		}
		fmt.Printf("%s: course %d, %d modules, %d exams, %d questions, %d students enrolled\n",
			path, res.CourseID, res.Modules, res.Exams, res.Questions, res.Enrolled)
	}
	return nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a course's exams, results and completions as JSON",
		RunE:  runExport,
	}
	dbFlags(cmd)
	f := cmd.Flags()
	f.Int64("course-id", 0, "Course to export (required)")
	f.Int64("year-id", 0, "Academic year to export (0 = all years)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("course-id")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	out, err := db.ExportCourse(ctx, v.GetInt64("course-id"), v.GetInt64("year-id"))
	if err != nil {
		return fmt.Errorf("export course: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeExport(w, out)
}

func writeExport(w io.Writer, out *model.CourseExport) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin user, or reset its password",
		RunE:  runSeedAdmin,
	}
	dbFlags(cmd)
	cmd.Flags().String("admin-password", "", "Admin password (or set ACADEMY_ADMIN_PASSWORD)")
	return cmd
}

func runSeedAdmin(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()
	return ensureAdmin(ctx, db, v.GetString("admin-password"), true)
}

// ensureAdmin creates the "admin" user on an empty database. With reset,
// an existing admin gets the new password instead.
func ensureAdmin(ctx context.Context, db *store.Store, password string, reset bool) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	existing, err := db.GetUserByUsername(ctx, "admin")
	if err != nil {
		return err
	}
	if count > 0 && !(reset && existing != nil) {
		if reset {
			return errors.New(`no user named "admin" to reset`)
		}
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or ACADEMY_ADMIN_PASSWORD env var")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if existing != nil {
		if err := db.SetPasswordHash(ctx, existing.ID, string(hash)); err != nil {
			return fmt.Errorf("reset admin password: %w", err)
		}
		slog.Info("reset admin password", "username", existing.Username)
		return nil
	}
	_, err = db.CreateUser(ctx, model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
